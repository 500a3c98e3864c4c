// Package domain holds the shared identifier types of the registry.
//
// Records carry two identifiers: a functional id (business-facing, stable
// across versions, part of the API surface) and a surrogate RecordID (the
// database primary key, used only for referential integrity and never exposed
// as the primary handle).
package domain

import (
	"github.com/google/uuid"

	dErrors "strdep/pkg/domain-errors"
)

// MaxFunctionalIDLen bounds every functional identifier.
const MaxFunctionalIDLen = 64

// FunctionalID is a business-facing identifier: lowercase alphanumeric plus
// hyphens, at most 64 characters. Callers may supply their own or have one
// generated.
type FunctionalID string

func (f FunctionalID) String() string { return string(f) }

// IsZero reports whether the identifier is absent.
func (f FunctionalID) IsZero() bool { return f == "" }

// ParseFunctionalID validates a caller-supplied functional identifier.
func ParseFunctionalID(raw string) (FunctionalID, error) {
	if raw == "" {
		return "", dErrors.New(dErrors.CodeValidationSyntax, "functional id cannot be empty")
	}
	if len(raw) > MaxFunctionalIDLen {
		return "", dErrors.Newf(dErrors.CodeValidationSyntax, "functional id exceeds %d characters", MaxFunctionalIDLen)
	}
	for _, r := range raw {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return "", dErrors.New(dErrors.CodeValidationSyntax, "functional id must be lowercase alphanumeric with hyphens")
		}
	}
	return FunctionalID(raw), nil
}

// NewFunctionalID generates a random v4 UUID identifier for submissions that
// do not supply one.
func NewFunctionalID() FunctionalID {
	return FunctionalID(uuid.NewString())
}

// RecordID is the surrogate database key of a version row. Zero means "not
// yet persisted".
type RecordID int64

func (r RecordID) IsZero() bool { return r == 0 }

// EntityKind discriminates the four version-row tables.
type EntityKind string

const (
	KindAuthority EntityKind = "competent_authority"
	KindPlatform  EntityKind = "platform"
	KindArea      EntityKind = "area"
	KindActivity  EntityKind = "activity"
)
