package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballotledger/internal/election"
	"ballotledger/internal/election/service"
	"ballotledger/internal/election/store/memory"
	jwttoken "ballotledger/internal/jwt_token"
	"ballotledger/internal/platform/config"
	"ballotledger/internal/platform/metrics"
	"ballotledger/pkg/platform/middleware/request"
)

func TestRouter(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 5 * time.Second

	svc := election.NewService(memory.New(), service.WithLogger(log))
	h := election.NewHandler(svc, jwttoken.NewJWTService("router-test", "ballotledger", "ballotledger-api"), "ops-token", log)
	router := newRouter(cfg, log, metrics.New(), h)

	t.Run("Given a router over an empty store", func(t *testing.T) {
		t.Run("When calling GET /healthz", func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			t.Run("Then it reports the election as not ready", func(t *testing.T) {
				assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
				assert.NotEmpty(t, rec.Header().Get(request.RequestIDHeader))
			})
		})

		t.Run("When posting a form-encoded body", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ops/election", strings.NewReader("admin=x"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			t.Run("Then it is rejected before reaching the handler", func(t *testing.T) {
				assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
			})
		})

		t.Run("When scraping /metrics", func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			t.Run("Then the HTTP latency histogram is exported", func(t *testing.T) {
				require.Equal(t, http.StatusOK, rec.Code)
				assert.Contains(t, rec.Body.String(), "ballot_http_request_duration_seconds")
			})
		})
	})
}
