// Package service orchestrates the registry: it resolves caller identities to
// owner records, validates submissions, runs them through the store's
// version-chain protocol and translates store sentinels into coded domain
// errors for the transport layer.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"strdep/internal/registry/cache"
	"strdep/internal/registry/events"
	"strdep/internal/registry/metrics"
	"strdep/internal/registry/models"
	"strdep/internal/registry/store"
	"strdep/pkg/domain"
	dErrors "strdep/pkg/domain-errors"
	"strdep/pkg/platform/sentinel"
	"strdep/pkg/requestcontext"
)

const (
	// DefaultPageLimit applies when a listing request carries no limit.
	DefaultPageLimit = 50
	// MaxPageLimit caps a single listing page.
	MaxPageLimit = 200
)

// Service is the registry's application core.
type Service struct {
	store   store.Store
	events  events.Publisher
	blobs   cache.BlobCache
	metrics *metrics.Metrics
	logger  *zap.Logger
	tracer  trace.Tracer

	// provision collapses concurrent first-contact owner lookups for the
	// same claim into a single store round trip.
	provision singleflight.Group
}

type Option func(s *Service)

func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithBlobCache(c cache.BlobCache) Option {
	return func(s *Service) { s.blobs = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs a Service. Events, cache and metrics default to no-ops so
// tests can construct a bare service from a store alone.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:  st,
		events: events.Noop{},
		logger: zap.NewNop(),
		tracer: otel.Tracer("strdep/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requirePrincipal returns the caller's principal if it carries the wanted
// role.
func requirePrincipal(ctx context.Context, role requestcontext.Role) (requestcontext.Principal, error) {
	p := requestcontext.GetPrincipal(ctx)
	if p.IsZero() {
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if p.Role != role {
		return requestcontext.Principal{}, dErrors.Newf(dErrors.CodeForbidden, "operation requires the %s role", role)
	}
	return p, nil
}

// anyPrincipal returns the caller's principal regardless of role.
func anyPrincipal(ctx context.Context) (requestcontext.Principal, error) {
	p := requestcontext.GetPrincipal(ctx)
	if p.IsZero() {
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return p, nil
}

// resolveOwner maps a verified principal to its current owner record,
// provisioning the first version on first contact. A deactivated owner chain
// is never resurrected.
func (s *Service) resolveOwner(ctx context.Context, kind models.OwnerKind, p requestcontext.Principal) (*models.Owner, error) {
	ownerID, err := domain.ParseFunctionalID(p.OwnerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid owner claim")
	}

	key := string(kind) + ":" + string(ownerID)
	v, err, _ := s.provision.Do(key, func() (any, error) {
		// The winning call may outlive the request that started it, so
		// detach from its cancellation but keep the request-scoped time.
		return s.lookupOrProvision(context.WithoutCancel(ctx), kind, ownerID, p.DisplayName)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Owner), nil
}

func (s *Service) lookupOrProvision(ctx context.Context, kind models.OwnerKind, ownerID domain.FunctionalID, name string) (*models.Owner, error) {
	owner, err := s.store.FindCurrentOwner(ctx, kind, ownerID)
	if err == nil {
		return owner, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve owner")
	}

	fresh, err := models.NewOwner(kind, ownerID, name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	err = s.store.CreateOwner(ctx, fresh)
	switch {
	case err == nil:
		s.logger.Info("provisioned owner record",
			zap.String("kind", string(kind)),
			zap.String("owner_id", string(ownerID)))
		return fresh, nil
	case errors.Is(err, sentinel.ErrConflict):
		// Lost a provisioning race; the winner's row is the record.
		owner, err := s.store.FindCurrentOwner(ctx, kind, ownerID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve owner")
		}
		return owner, nil
	case errors.Is(err, sentinel.ErrDeactivated):
		return nil, dErrors.New(dErrors.CodeDeactivated, "owner record has been deactivated")
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to provision owner")
	}
}

// emit publishes a lifecycle event without blocking the request on delivery.
func (s *Service) emit(ctx context.Context, kind domain.EntityKind, functionalID domain.FunctionalID, ownerID domain.FunctionalID, action events.Action) {
	s.events.Emit(ctx, events.Event{
		Kind:         kind,
		FunctionalID: functionalID,
		OwnerID:      ownerID,
		Action:       action,
		OccurredAt:   requestcontext.Now(ctx),
	})
}

func (s *Service) incSubmitted(kind domain.EntityKind) {
	if s.metrics != nil {
		s.metrics.IncVersionsSubmitted(string(kind))
	}
}

func (s *Service) incDeactivated(kind domain.EntityKind) {
	if s.metrics != nil {
		s.metrics.IncDeactivations(string(kind))
	}
}

func (s *Service) incConflict() {
	if s.metrics != nil {
		s.metrics.IncSubmitConflicts()
	}
}

// translateSubmit maps store sentinels from a submit to domain errors.
func (s *Service) translateSubmit(err error, what string) error {
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		s.incConflict()
		return dErrors.Newf(dErrors.CodeConflict, "a %s version with this timestamp already exists", what)
	case errors.Is(err, sentinel.ErrDeactivated):
		return dErrors.Newf(dErrors.CodeDeactivated, "%s has been deactivated and cannot be resubmitted", what)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to submit %s", what))
	}
}

// Page is a listing window.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) normalize() (offset, limit int, err error) {
	if p.Offset < 0 {
		return 0, 0, dErrors.New(dErrors.CodeValidationSyntax, "offset must not be negative")
	}
	if p.Limit < 0 {
		return 0, 0, dErrors.New(dErrors.CodeValidationSyntax, "limit must not be negative")
	}
	limit = p.Limit
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return p.Offset, limit, nil
}
