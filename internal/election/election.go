package election

import (
	"log/slog"

	"ballotledger/internal/election/handler"
	"ballotledger/internal/election/service"
	"ballotledger/pkg/platform/middleware/auth"
)

// Service runs election operations against a store.
type Service = service.Service

// Handler wires HTTP endpoints to the election service.
type Handler = handler.Handler

func NewService(store service.Store, opts ...service.Option) *Service {
	return service.New(store, opts...)
}

// NewHandler constructs the HTTP handler for the public election API and
// the token-guarded ops endpoint.
func NewHandler(s *Service, validator auth.TokenValidator, adminToken string, logger *slog.Logger, opts ...handler.Option) *Handler {
	return handler.New(s, validator, adminToken, logger, opts...)
}
