package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"strdep/internal/registry/cache"
	"strdep/internal/registry/events"
	"strdep/internal/registry/models"
	"strdep/internal/registry/store"
	"strdep/pkg/domain"
	dErrors "strdep/pkg/domain-errors"
	"strdep/pkg/platform/sentinel"
	"strdep/pkg/requestcontext"
)

// SubmitAreaInput carries a decoded area submission. An empty AreaID starts a
// new chain under a generated id.
type SubmitAreaInput struct {
	AreaID   string
	Name     string
	Filename string
	FileData []byte
}

// SubmitArea appends a new version to the caller's area chain, starting the
// chain when no version exists yet. Requires the competent authority role.
func (s *Service) SubmitArea(ctx context.Context, input SubmitAreaInput) (*models.Area, error) {
	ctx, span := s.tracer.Start(ctx, "registry.SubmitArea")
	defer span.End()

	p, err := requirePrincipal(ctx, requestcontext.RoleAuthority)
	if err != nil {
		return nil, err
	}
	owner, err := s.resolveOwner(ctx, models.OwnerAuthority, p)
	if err != nil {
		return nil, err
	}

	areaID := domain.FunctionalID(input.AreaID)
	if input.AreaID == "" {
		areaID = domain.NewFunctionalID()
	} else if areaID, err = domain.ParseFunctionalID(input.AreaID); err != nil {
		return nil, err
	}

	area, err := models.NewArea(areaID, input.Name, owner.ID, input.Filename, input.FileData, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	stored, err := s.store.SubmitArea(ctx, area)
	if err != nil {
		return nil, s.translateSubmit(err, "area")
	}

	s.incSubmitted(domain.KindArea)
	s.emit(ctx, domain.KindArea, stored.AreaID, owner.OwnerID, events.ActionSubmitted)
	s.invalidateBlob(ctx, stored.AreaID)
	s.logger.Info("area version submitted",
		zap.String("area_id", string(stored.AreaID)),
		zap.String("competent_authority_id", string(owner.OwnerID)))
	return stored, nil
}

// DeactivateArea closes the caller's area chain without a replacement
// version. The chain can never be reopened.
func (s *Service) DeactivateArea(ctx context.Context, rawAreaID string) error {
	ctx, span := s.tracer.Start(ctx, "registry.DeactivateArea")
	defer span.End()

	p, err := requirePrincipal(ctx, requestcontext.RoleAuthority)
	if err != nil {
		return err
	}
	owner, err := s.resolveOwner(ctx, models.OwnerAuthority, p)
	if err != nil {
		return err
	}
	areaID, err := domain.ParseFunctionalID(rawAreaID)
	if err != nil {
		return err
	}

	if err := s.store.DeactivateArea(ctx, owner.ID, areaID, requestcontext.Now(ctx)); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "area not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate area")
	}

	s.incDeactivated(domain.KindArea)
	s.emit(ctx, domain.KindArea, areaID, owner.OwnerID, events.ActionDeactivated)
	s.invalidateBlob(ctx, areaID)
	s.logger.Info("area deactivated",
		zap.String("area_id", string(areaID)),
		zap.String("competent_authority_id", string(owner.OwnerID)))
	return nil
}

// AreaPage is one window of the area listing.
type AreaPage struct {
	Items  []*models.AreaListing `json:"areas"`
	Total  int                   `json:"total"`
	Offset int                   `json:"offset"`
	Limit  int                   `json:"limit"`
}

// ListAreas returns current area versions, newest first. Authorities see
// their own areas; platforms see every authority's current areas.
func (s *Service) ListAreas(ctx context.Context, page Page) (*AreaPage, error) {
	ctx, span := s.tracer.Start(ctx, "registry.ListAreas")
	defer span.End()

	filter, err := s.areaScope(ctx)
	if err != nil {
		return nil, err
	}
	offset, limit, err := page.normalize()
	if err != nil {
		return nil, err
	}
	filter.Offset = offset
	filter.Limit = limit

	items, err := s.store.ListAreas(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list areas")
	}
	total, err := s.store.CountAreas(ctx, store.AreaFilter{AuthorityRef: filter.AuthorityRef})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count areas")
	}

	return &AreaPage{Items: items, Total: total, Offset: offset, Limit: limit}, nil
}

// CountAreas returns the number of current area versions visible to the
// caller, under the same scoping as ListAreas.
func (s *Service) CountAreas(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "registry.CountAreas")
	defer span.End()

	filter, err := s.areaScope(ctx)
	if err != nil {
		return 0, err
	}
	total, err := s.store.CountAreas(ctx, filter)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count areas")
	}
	return total, nil
}

// areaScope builds the listing filter implied by the caller's role.
func (s *Service) areaScope(ctx context.Context) (store.AreaFilter, error) {
	p, err := anyPrincipal(ctx)
	if err != nil {
		return store.AreaFilter{}, err
	}
	var filter store.AreaFilter
	if p.Role == requestcontext.RoleAuthority {
		owner, err := s.resolveOwner(ctx, models.OwnerAuthority, p)
		if err != nil {
			return store.AreaFilter{}, err
		}
		filter.AuthorityRef = owner.ID
	}
	return filter, nil
}

// AreaFile is a shapefile blob with the metadata needed to serve it.
type AreaFile struct {
	Filename string
	Data     []byte
}

// GetAreaFile returns the shapefile of the most recent current version of the
// given area id, served from cache when possible.
func (s *Service) GetAreaFile(ctx context.Context, rawAreaID string) (*AreaFile, error) {
	ctx, span := s.tracer.Start(ctx, "registry.GetAreaFile")
	defer span.End()

	if _, err := anyPrincipal(ctx); err != nil {
		return nil, err
	}
	areaID, err := domain.ParseFunctionalID(rawAreaID)
	if err != nil {
		return nil, err
	}

	if s.blobs != nil {
		blob, err := s.blobs.Get(ctx, areaID)
		if err == nil {
			if s.metrics != nil {
				s.metrics.IncCacheHits()
			}
			return &AreaFile{Filename: blob.Filename, Data: blob.Data}, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("blob cache read failed", zap.String("area_id", string(areaID)), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.IncCacheMisses()
		}
	}

	area, err := s.store.ResolveLatestArea(ctx, areaID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "area not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load area file")
	}

	if s.blobs != nil {
		if err := s.blobs.Set(ctx, areaID, &cache.Blob{Filename: area.Filename, Data: area.FileData}); err != nil {
			s.logger.Warn("blob cache write failed", zap.String("area_id", string(areaID)), zap.Error(err))
		}
	}
	return &AreaFile{Filename: area.Filename, Data: area.FileData}, nil
}

func (s *Service) invalidateBlob(ctx context.Context, areaID domain.FunctionalID) {
	if s.blobs == nil {
		return
	}
	if err := s.blobs.Invalidate(ctx, areaID); err != nil {
		s.logger.Warn("blob cache invalidation failed", zap.String("area_id", string(areaID)), zap.Error(err))
	}
}
