// Package requesttime pins one "now" per HTTP request so the report
// timestamp, logs and audit events of a request agree.
package requesttime

import (
	"net/http"
	"time"

	"landtrust/pkg/requestcontext"
)

// Middleware stores the request start time in the context. Read it with
// requestcontext.Now.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock is Middleware with an injectable clock.
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithNow(r.Context(), now().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
