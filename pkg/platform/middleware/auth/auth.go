// Package auth resolves the calling account from a bearer token.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"ballotledger/pkg/domain"
	dErrors "ballotledger/pkg/domain-errors"
	"ballotledger/pkg/platform/httputil"
	"ballotledger/pkg/requestcontext"
)

// TokenValidator turns a bearer token into the account it was issued to.
type TokenValidator interface {
	ValidateAccount(tokenString string) (domain.Account, error)
}

// RequireAccount rejects requests without a valid bearer token and stores the
// resolved account in the request context.
func RequireAccount(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			account, err := validator.ValidateAccount(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithAccount(ctx, account)))
		})
	}
}
