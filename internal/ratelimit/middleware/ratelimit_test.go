package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballotledger/internal/ratelimit/limiter"
	"ballotledger/pkg/domain"
	"ballotledger/pkg/requestcontext"
)

type recordingLimiter struct {
	keys   []string
	result limiter.Result
}

func (l *recordingLimiter) Allow(key string, _ time.Time) limiter.Result {
	l.keys = append(l.keys, key)
	return l.result
}

func TestRateLimitCaller(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	voter := domain.MustParseAccount("0x2222222222222222222222222222222222222222")

	t.Run("keys by account when authenticated", func(t *testing.T) {
		l := &recordingLimiter{result: limiter.Result{Allowed: true, Limit: 5, Remaining: 4}}
		req := httptest.NewRequest(http.MethodPost, "/election/votes", nil)
		req = req.WithContext(requestcontext.WithAccount(req.Context(), voter))
		rec := httptest.NewRecorder()
		New(l, logger).RateLimitCaller()(ok).ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []string{"account:" + voter.String()}, l.keys)
		assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("falls back to client ip", func(t *testing.T) {
		l := &recordingLimiter{result: limiter.Result{Allowed: true}}
		req := httptest.NewRequest(http.MethodPost, "/election/votes", nil)
		req = req.WithContext(requestcontext.WithClientIP(req.Context(), "192.0.2.1"))
		New(l, logger).RateLimitCaller()(ok).ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, []string{"ip:192.0.2.1"}, l.keys)
	})

	t.Run("rejects with retry-after", func(t *testing.T) {
		l := &recordingLimiter{result: limiter.Result{Allowed: false, Limit: 1, RetryAfter: 1500 * time.Millisecond}}
		rec := httptest.NewRecorder()
		New(l, logger).RateLimitCaller()(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/election/votes", nil))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	})

	t.Run("disabled passes through", func(t *testing.T) {
		l := &recordingLimiter{result: limiter.Result{Allowed: false}}
		rec := httptest.NewRecorder()
		New(l, logger, WithDisabled(true)).RateLimitCaller()(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, l.keys)
	})
}
