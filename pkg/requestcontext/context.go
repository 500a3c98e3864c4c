// Package requestcontext provides HTTP-independent accessors for
// request-scoped values. Middleware sets them, services read them; keeping the
// package free of net/http lets services stay transport-agnostic and lets
// tests inject values directly.
package requestcontext

import (
	"context"
	"time"
)

// Role is the verified role claim of a caller.
type Role string

const (
	// RoleAuthority marks a competent authority: manages areas, reads activities.
	RoleAuthority Role = "competent-authority"
	// RolePlatform marks an STR platform: manages activities, reads areas.
	RolePlatform Role = "platform"
)

// Principal is the verified caller identity produced by the authentication
// collaborator. The core trusts these values as-is.
type Principal struct {
	OwnerID     string
	DisplayName string
	Role        Role
}

// IsZero reports whether no principal was attached (unauthenticated request).
func (p Principal) IsZero() bool { return p.OwnerID == "" }

type (
	principalKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// GetPrincipal retrieves the verified principal, or a zero Principal when the
// request was unauthenticated.
func GetPrincipal(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok {
		return p
	}
	return Principal{}
}

// WithPrincipal injects a verified principal into the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// RequestID retrieves the request ID, or "" when not set.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Now retrieves the request-scoped time, falling back to time.Now for
// non-HTTP contexts. Version rows are stamped with this value, so a single
// request observes a single instant.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}

// WithTime pins the request-scoped time. Middleware sets it once per request;
// tests use it to make version timestamps deterministic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
