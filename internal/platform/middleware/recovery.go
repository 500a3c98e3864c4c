package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	dErrors "strdep/pkg/domain-errors"
	"strdep/pkg/platform/httputil"
	"strdep/pkg/requestcontext"
)

// Recovery converts panics into 500 responses instead of dropped connections.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("request_id", requestcontext.RequestID(r.Context())),
						zap.ByteString("stack", debug.Stack()))
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
