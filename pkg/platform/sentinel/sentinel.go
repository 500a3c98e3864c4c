package sentinel

import "errors"

// Sentinel errors for store-level facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors without
// the stores knowing about HTTP or the error taxonomy.
//
// - ErrNotFound: no matching row
// - ErrConflict: uniqueness constraint lost (same functional id, owner and timestamp)
// - ErrDeactivated: every version of the functional id chain has ended
// - ErrUnavailable: backing service temporarily unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrDeactivated = errors.New("deactivated")
	ErrUnavailable = errors.New("unavailable")
)
