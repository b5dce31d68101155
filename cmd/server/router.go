package main

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"ballotledger/internal/election"
	"ballotledger/internal/platform/config"
	"ballotledger/internal/platform/metrics"
	platformmw "ballotledger/internal/platform/middleware"
	"ballotledger/pkg/platform/middleware/metadata"
	"ballotledger/pkg/platform/middleware/request"
	"ballotledger/pkg/platform/middleware/requesttime"
)

func newRouter(cfg *config.Config, log *slog.Logger, m *metrics.Metrics, h *election.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(log))
	r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(request.ContentTypeJSON)
	r.Use(platformmw.LatencyMiddleware(m))

	r.Handle("/metrics", metrics.Handler())
	h.Register(r)
	return r
}
