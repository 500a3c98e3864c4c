package models

import (
	"time"

	"strdep/pkg/domain"
	dErrors "strdep/pkg/domain-errors"
)

// OwnerKind discriminates the two owning record kinds. Competent authorities
// own areas; platforms own activities. Both share the same version-row shape,
// so one Go type covers them while the store keeps separate tables.
type OwnerKind string

const (
	OwnerAuthority OwnerKind = OwnerKind(domain.KindAuthority)
	OwnerPlatform  OwnerKind = OwnerKind(domain.KindPlatform)
)

// Owner is one version row of a competent authority or platform record.
//
// Invariants:
//   - OwnerID is a valid functional id taken from the verified owner claim
//   - CreatedAt is immutable after construction
//   - EndedAt is written at most once (close or deactivate), never cleared
type Owner struct {
	ID        domain.RecordID     `json:"-"`
	Kind      OwnerKind           `json:"-"`
	OwnerID   domain.FunctionalID `json:"ownerId"`
	Name      string              `json:"name,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	EndedAt   *time.Time          `json:"endedAt,omitempty"`
}

// NewOwner builds the first (or a fresh) version row for an owner claim.
func NewOwner(kind OwnerKind, ownerID domain.FunctionalID, name string, now time.Time) (*Owner, error) {
	if kind != OwnerAuthority && kind != OwnerPlatform {
		return nil, dErrors.Newf(dErrors.CodeValidationSyntax, "unknown owner kind %q", kind)
	}
	if ownerID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidationSyntax, "owner id is required")
	}
	if len(name) > MaxNameLen {
		return nil, dErrors.Newf(dErrors.CodeValidationSyntax, "owner name exceeds %d characters", MaxNameLen)
	}
	return &Owner{
		Kind:      kind,
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: now.UTC(),
	}, nil
}

// IsCurrent reports whether this version is the open head of its chain.
func (o *Owner) IsCurrent() bool { return o.EndedAt == nil }
