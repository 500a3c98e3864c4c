package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"strdep/internal/registry/events"
	"strdep/internal/registry/models"
	"strdep/internal/registry/store"
	"strdep/pkg/domain"
	dErrors "strdep/pkg/domain-errors"
	"strdep/pkg/platform/sentinel"
	platformstrings "strdep/pkg/platform/strings"
	"strdep/pkg/requestcontext"
)

// AddressInput carries the decoded address fields of an activity submission.
type AddressInput struct {
	Street     string
	Number     int
	Letter     string
	Addition   string
	PostalCode string
	City       string
}

// SubmitActivityInput carries a decoded activity submission. An empty
// ActivityID starts a new chain under a generated id.
type SubmitActivityInput struct {
	ActivityID         string
	Name               string
	AreaID             string
	URL                string
	RegistrationNumber string
	Address            AddressInput
	NumberOfGuests     *int
	CountryOfGuests    []string
	Start              time.Time
	End                time.Time
}

// SubmitActivity appends a new version to the caller's activity chain after
// resolving the referenced area. Requires the platform role.
func (s *Service) SubmitActivity(ctx context.Context, input SubmitActivityInput) (*models.Activity, error) {
	ctx, span := s.tracer.Start(ctx, "registry.SubmitActivity")
	defer span.End()

	p, err := requirePrincipal(ctx, requestcontext.RolePlatform)
	if err != nil {
		return nil, err
	}
	owner, err := s.resolveOwner(ctx, models.OwnerPlatform, p)
	if err != nil {
		return nil, err
	}

	activityID := domain.FunctionalID(input.ActivityID)
	if input.ActivityID == "" {
		activityID = domain.NewFunctionalID()
	} else if activityID, err = domain.ParseFunctionalID(input.ActivityID); err != nil {
		return nil, err
	}

	areaID, err := domain.ParseFunctionalID(input.AreaID)
	if err != nil {
		return nil, err
	}
	area, err := s.store.ResolveLatestArea(ctx, areaID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeBusinessRule, "area %s does not exist", areaID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve area")
	}

	address, err := models.NewAddress(input.Address.Street, input.Address.Number,
		input.Address.Letter, input.Address.Addition, input.Address.PostalCode, input.Address.City)
	if err != nil {
		return nil, err
	}
	temporal, err := models.NewTemporal(input.Start, input.End)
	if err != nil {
		return nil, err
	}

	countries := input.CountryOfGuests
	if countries != nil {
		countries = platformstrings.DedupeAndTrim(countries)
	}

	activity, err := models.NewActivity(activityID, input.Name, owner.ID, area.ID,
		input.URL, input.RegistrationNumber, address, input.NumberOfGuests,
		countries, temporal, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	stored, err := s.store.SubmitActivity(ctx, activity)
	if err != nil {
		return nil, s.translateSubmit(err, "activity")
	}

	s.incSubmitted(domain.KindActivity)
	s.emit(ctx, domain.KindActivity, stored.ActivityID, owner.OwnerID, events.ActionSubmitted)
	s.logger.Info("activity version submitted",
		zap.String("activity_id", string(stored.ActivityID)),
		zap.String("platform_id", string(owner.OwnerID)),
		zap.String("area_id", string(areaID)))
	return stored, nil
}

// DeactivateActivity closes the caller's activity chain without a replacement
// version. The chain can never be reopened.
func (s *Service) DeactivateActivity(ctx context.Context, rawActivityID string) error {
	ctx, span := s.tracer.Start(ctx, "registry.DeactivateActivity")
	defer span.End()

	p, err := requirePrincipal(ctx, requestcontext.RolePlatform)
	if err != nil {
		return err
	}
	owner, err := s.resolveOwner(ctx, models.OwnerPlatform, p)
	if err != nil {
		return err
	}
	activityID, err := domain.ParseFunctionalID(rawActivityID)
	if err != nil {
		return err
	}

	if err := s.store.DeactivateActivity(ctx, owner.ID, activityID, requestcontext.Now(ctx)); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "activity not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate activity")
	}

	s.incDeactivated(domain.KindActivity)
	s.emit(ctx, domain.KindActivity, activityID, owner.OwnerID, events.ActionDeactivated)
	s.logger.Info("activity deactivated",
		zap.String("activity_id", string(activityID)),
		zap.String("platform_id", string(owner.OwnerID)))
	return nil
}

// ActivityQuery scopes an activity listing beyond the caller's implicit scope.
type ActivityQuery struct {
	AreaID             string
	URL                string
	RegistrationNumber string
	PostalCode         string
	Page               Page
}

// ActivityPage is one window of the activity listing.
type ActivityPage struct {
	Items  []*models.ActivityListing `json:"activities"`
	Total  int                       `json:"total"`
	Offset int                       `json:"offset"`
	Limit  int                       `json:"limit"`
}

// ListActivities returns current activity versions, newest first. Platforms
// see their own activities; authorities see the activities located in their
// areas.
func (s *Service) ListActivities(ctx context.Context, q ActivityQuery) (*ActivityPage, error) {
	ctx, span := s.tracer.Start(ctx, "registry.ListActivities")
	defer span.End()

	filter, err := s.activityScope(ctx, q)
	if err != nil {
		return nil, err
	}
	offset, limit, err := q.Page.normalize()
	if err != nil {
		return nil, err
	}

	pageFilter := filter
	pageFilter.Offset = offset
	pageFilter.Limit = limit
	items, err := s.store.ListActivities(ctx, pageFilter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list activities")
	}

	total, err := s.store.CountActivities(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count activities")
	}

	return &ActivityPage{Items: items, Total: total, Offset: offset, Limit: limit}, nil
}

// CountActivities returns the number of current activity versions matching
// the query, under the same scoping as ListActivities.
func (s *Service) CountActivities(ctx context.Context, q ActivityQuery) (int, error) {
	ctx, span := s.tracer.Start(ctx, "registry.CountActivities")
	defer span.End()

	filter, err := s.activityScope(ctx, q)
	if err != nil {
		return 0, err
	}
	total, err := s.store.CountActivities(ctx, filter)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count activities")
	}
	return total, nil
}

// activityScope builds the unpaged filter implied by the caller's role and the
// query's equality filters.
func (s *Service) activityScope(ctx context.Context, q ActivityQuery) (store.ActivityFilter, error) {
	p, err := anyPrincipal(ctx)
	if err != nil {
		return store.ActivityFilter{}, err
	}

	filter := store.ActivityFilter{
		URL:                q.URL,
		RegistrationNumber: q.RegistrationNumber,
		PostalCode:         q.PostalCode,
	}
	if q.AreaID != "" {
		areaID, err := domain.ParseFunctionalID(q.AreaID)
		if err != nil {
			return store.ActivityFilter{}, err
		}
		filter.AreaID = areaID
	}

	switch p.Role {
	case requestcontext.RolePlatform:
		owner, err := s.resolveOwner(ctx, models.OwnerPlatform, p)
		if err != nil {
			return store.ActivityFilter{}, err
		}
		filter.PlatformRef = owner.ID
	case requestcontext.RoleAuthority:
		owner, err := s.resolveOwner(ctx, models.OwnerAuthority, p)
		if err != nil {
			return store.ActivityFilter{}, err
		}
		filter.AuthorityRef = owner.ID
	default:
		return store.ActivityFilter{}, dErrors.New(dErrors.CodeForbidden, "unknown caller role")
	}
	return filter, nil
}
