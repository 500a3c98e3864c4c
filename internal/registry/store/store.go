// Package store persists the append-only version rows of the registry.
//
// Two implementations exist with identical semantics: InMemory (unit tests,
// dev mode) and Postgres. Both enforce the chain invariants themselves so the
// guarantees hold regardless of how services compose calls:
//
//   - at most one version per (functional id, owner) has a null endedAt
//   - submitting against a fully-ended chain fails with sentinel.ErrDeactivated
//   - a (functional id, owner, createdAt) collision fails with sentinel.ErrConflict
//   - rows are never deleted; endedAt is the only mutable column
//
// Chain operations (submit, deactivate) are linearizable per
// (kind, functional id, owner): the memory store holds one mutex across the
// whole operation and the Postgres store takes a transaction-scoped advisory
// lock on the chain before reading it.
package store

import (
	"context"
	"time"

	"strdep/internal/registry/models"
	"strdep/pkg/domain"
)

// OwnerStore persists competent authority and platform version rows.
type OwnerStore interface {
	// FindCurrentOwner returns the current version for (kind, ownerID).
	// Returns sentinel.ErrNotFound when the chain is empty or fully ended.
	FindCurrentOwner(ctx context.Context, kind models.OwnerKind, ownerID domain.FunctionalID) (*models.Owner, error)

	// CreateOwner inserts a new owner version and fills in its RecordID.
	// Returns sentinel.ErrDeactivated when the chain exists but is fully
	// ended, sentinel.ErrConflict on a (ownerID, createdAt) collision.
	CreateOwner(ctx context.Context, owner *models.Owner) error

	// OwnerByRecord resolves a surrogate id to its version row (any version).
	OwnerByRecord(ctx context.Context, kind models.OwnerKind, ref domain.RecordID) (*models.Owner, error)
}

// AreaFilter scopes area listings. Zero values mean "no filter".
type AreaFilter struct {
	AuthorityRef domain.RecordID
	Offset       int
	Limit        int // <= 0 means no limit
}

// AreaStore persists area version rows.
type AreaStore interface {
	// SubmitArea runs the stacking protocol for the area's
	// (AreaID, AuthorityRef) chain: closes the current version at
	// area.CreatedAt if one exists, then inserts area as the new current
	// version. Returns the inserted row.
	SubmitArea(ctx context.Context, area *models.Area) (*models.Area, error)

	// DeactivateArea stamps endedAt = now on the current version of the
	// chain without inserting a replacement. Returns sentinel.ErrNotFound
	// when no current version exists.
	DeactivateArea(ctx context.Context, authorityRef domain.RecordID, areaID domain.FunctionalID, now time.Time) error

	// ResolveLatestArea returns the most recently created current area
	// version for areaID across all owning authorities (created_at, then
	// surrogate id, descending). Returns sentinel.ErrNotFound when every
	// chain for areaID is empty or deactivated.
	ResolveLatestArea(ctx context.Context, areaID domain.FunctionalID) (*models.Area, error)

	// AreaByRecord resolves a surrogate id to its version row (any version).
	AreaByRecord(ctx context.Context, ref domain.RecordID) (*models.Area, error)

	// ListAreas returns current versions joined with their authority,
	// createdAt descending.
	ListAreas(ctx context.Context, f AreaFilter) ([]*models.AreaListing, error)

	// CountAreas returns the cardinality of the ListAreas result set.
	CountAreas(ctx context.Context, f AreaFilter) (int, error)

	// AreaVersions returns the full history of one chain, oldest first.
	AreaVersions(ctx context.Context, authorityRef domain.RecordID, areaID domain.FunctionalID) ([]*models.Area, error)
}

// ActivityFilter scopes activity listings. Zero values mean "no filter".
type ActivityFilter struct {
	PlatformRef        domain.RecordID
	AuthorityRef       domain.RecordID // activities whose area belongs to this authority
	AreaID             domain.FunctionalID
	URL                string
	RegistrationNumber string
	PostalCode         string
	Offset             int
	Limit              int // <= 0 means no limit
}

// ActivityStore persists activity version rows.
type ActivityStore interface {
	// SubmitActivity runs the stacking protocol for the activity's
	// (ActivityID, PlatformRef) chain, mirroring SubmitArea.
	SubmitActivity(ctx context.Context, activity *models.Activity) (*models.Activity, error)

	// DeactivateActivity stamps endedAt = now on the current version of the
	// chain. Returns sentinel.ErrNotFound when no current version exists.
	DeactivateActivity(ctx context.Context, platformRef domain.RecordID, activityID domain.FunctionalID, now time.Time) error

	// ListActivities returns current versions joined with platform, area and
	// authority, createdAt descending.
	ListActivities(ctx context.Context, f ActivityFilter) ([]*models.ActivityListing, error)

	// CountActivities returns the cardinality of the ListActivities result set.
	CountActivities(ctx context.Context, f ActivityFilter) (int, error)

	// ActivityVersions returns the full history of one chain, oldest first.
	ActivityVersions(ctx context.Context, platformRef domain.RecordID, activityID domain.FunctionalID) ([]*models.Activity, error)
}

// Store is the full persistence surface; both implementations satisfy it.
type Store interface {
	OwnerStore
	AreaStore
	ActivityStore
}
