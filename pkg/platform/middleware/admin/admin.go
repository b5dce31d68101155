package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "ballotledger/pkg/domain-errors"
	"ballotledger/pkg/platform/httputil"
	"ballotledger/pkg/requestcontext"
)

// AdminTokenHeader carries the operator token for /ops routes.
const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken gates operator routes behind a shared secret. An empty
// expected token disables the routes entirely.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(AdminTokenHeader)
			// Use constant-time comparison to prevent timing attacks
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"client_ip", requestcontext.ClientIP(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin token required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
