package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"ballotledger/internal/ratelimit/limiter"
	"ballotledger/internal/ratelimit/metrics"
	"ballotledger/pkg/platform/httputil"
	"ballotledger/pkg/requestcontext"
)

// RateLimiter decides whether key may proceed at now.
type RateLimiter interface {
	Allow(key string, now time.Time) limiter.Result
}

type Middleware struct {
	limiter  RateLimiter
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

func New(l RateLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: l,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled || m.limiter == nil {
		logger.Info("rate limiting disabled")
	}
	return m
}

type rateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"error_description"`
	RetryAfter int    `json:"retry_after"`
}

// RateLimitCaller limits by authenticated account, falling back to client IP
// for anonymous requests. Mount it after the auth middleware.
func (m *Middleware) RateLimitCaller() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled || m.limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key, keyType := requestcontext.Account(ctx).String(), "account"
			if key == "" {
				key, keyType = requestcontext.ClientIP(ctx), "ip"
			}

			result := m.limiter.Allow(keyType+":"+key, requestcontext.Now(ctx))
			if result.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			}
			if !result.Allowed {
				retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"key_type", keyType,
					"retry_after", retryAfter,
					"request_id", requestcontext.RequestID(ctx),
				)
				m.metrics.IncrementRejections(keyType)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				httputil.WriteJSON(w, http.StatusTooManyRequests, &rateLimitExceededResponse{
					Error:      "rate_limited",
					Message:    "Too many requests. Please try again later.",
					RetryAfter: retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
