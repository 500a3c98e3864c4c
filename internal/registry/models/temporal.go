package models

import (
	"time"

	dErrors "strdep/pkg/domain-errors"
)

// MinStartYear is the earliest allowed year for an activity period start.
const MinStartYear = 2025

// Temporal is a composite value object embedded in Activity, a half-open
// rental period.
//
// Invariants:
//   - Start < End
//   - Start.Year() >= MinStartYear
type Temporal struct {
	Start time.Time `json:"startDateTime"`
	End   time.Time `json:"endDateTime"`
}

// NewTemporal validates and builds a temporal composite. Ordering violations
// are semantic (both fields are individually fine), so they carry
// CodeValidationSemantic rather than CodeValidationSyntax.
func NewTemporal(start, end time.Time) (Temporal, error) {
	if start.IsZero() || end.IsZero() {
		return Temporal{}, dErrors.New(dErrors.CodeValidationSyntax, "start and end datetimes are required")
	}
	if start.Year() < MinStartYear {
		return Temporal{}, dErrors.Newf(dErrors.CodeValidationSemantic, "start datetime year must be at least %d", MinStartYear)
	}
	if !start.Before(end) {
		return Temporal{}, dErrors.New(dErrors.CodeValidationSemantic, "start datetime must be before end datetime")
	}
	return Temporal{Start: start.UTC(), End: end.UTC()}, nil
}
