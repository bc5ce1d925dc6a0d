package middleware

import (
	"context"
	"net/http"
	"time"
)

const timeoutBody = `{"success":false,"error":{"code":"TIMEOUT","message":"request timed out"}}`

// Timeout bounds every request to the given limit. Bank callback posts get
// a definite answer within the bound, so the gateway's retry scheduler is
// never left hanging on a stuck handler.
func Timeout(limit time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		bounded := http.TimeoutHandler(next, limit, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()

			bounded.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
