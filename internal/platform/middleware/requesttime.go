package middleware

import (
	"net/http"
	"time"

	"strdep/pkg/requestcontext"
)

// RequestTime captures the current time at the start of the request and pins
// it in the context. Every version row stamped during one request shares this
// instant.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
