// Package middleware holds the HTTP middleware chain: authentication,
// request identity, request-scoped time, logging and panic recovery.
package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	dErrors "strdep/pkg/domain-errors"
	"strdep/pkg/platform/httputil"
	"strdep/pkg/requestcontext"
)

// PrincipalValidator validates a bearer token and maps it to a principal.
type PrincipalValidator interface {
	Validate(tokenString string) (requestcontext.Principal, error)
}

// RequireAuth rejects requests without a valid bearer token and attaches the
// verified principal to the request context.
func RequireAuth(validator PrincipalValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok {
				logger.Warn("unauthorized access - missing token",
					zap.String("request_id", requestcontext.RequestID(r.Context())))
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			principal, err := validator.Validate(token)
			if err != nil {
				logger.Warn("unauthorized access - invalid token",
					zap.String("request_id", requestcontext.RequestID(r.Context())),
					zap.Error(err))
				httputil.WriteError(w, err)
				return
			}

			ctx := requestcontext.WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
