// Package requesttime pins a single "now" per HTTP request so audit records
// and log lines produced by one request agree on the timestamp.
package requesttime

import (
	"net/http"
	"time"

	"ballotledger/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
