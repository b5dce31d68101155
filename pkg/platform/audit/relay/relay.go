// Package relay moves pending outbox rows to the event bus.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ballotledger/pkg/platform/audit/store/postgres"
	"ballotledger/pkg/platform/circuit"
)

// ErrCircuitOpen is returned by RunOnce while the breaker rejects publishes.
var ErrCircuitOpen = errors.New("relay: publisher circuit open")

type Outbox interface {
	ListPending(ctx context.Context, limit int) ([]postgres.OutboxRecord, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
}

type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload []byte) error
}

type Relay struct {
	outbox    Outbox
	publisher Publisher
	breaker   *circuit.Breaker
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Relay)

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Relay) {
		r.breaker = b
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		r.now = now
	}
}

func New(outbox Outbox, publisher Publisher, opts ...Option) *Relay {
	r := &Relay{
		outbox:    outbox,
		publisher: publisher,
		batchSize: 100,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = circuit.New("audit-relay",
			circuit.WithFailureThreshold(3),
			circuit.WithCooldown(30*time.Second),
			circuit.WithClock(r.now),
		)
	}
	return r
}

// RunOnce publishes one bounded batch. A row is marked published only after
// the broker accepted it, and the cycle stops at the first failure so the
// next tick retries from the same row.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	if !r.breaker.Allow() {
		return 0, ErrCircuitOpen
	}

	pending, err := r.outbox.ListPending(ctx, r.batchSize)
	if err != nil {
		r.logger.ErrorContext(ctx, "outbox list failed",
			"event", "outbox_list_failed",
			"error", err,
		)
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	published := 0
	for _, row := range pending {
		if err := r.publisher.Publish(ctx, row.EventType, row.Key, row.Payload); err != nil {
			_, change := r.breaker.RecordFailure()
			r.logger.ErrorContext(ctx, "outbox publish failed",
				"event", "outbox_publish_failed",
				"outbox_id", row.ID,
				"event_type", row.EventType,
				"circuit_opened", change.Opened,
				"error", err,
			)
			return published, err
		}
		if _, change := r.breaker.RecordSuccess(); change.Closed {
			r.logger.InfoContext(ctx, "outbox publisher recovered", "event", "outbox_circuit_closed")
		}
		if err := r.outbox.MarkPublished(ctx, row.ID, r.now().UTC()); err != nil {
			r.logger.ErrorContext(ctx, "outbox mark published failed",
				"event", "outbox_mark_published_failed",
				"outbox_id", row.ID,
				"error", err,
			)
			return published, err
		}
		published++
	}

	r.logger.InfoContext(ctx, "outbox relay cycle completed",
		"event", "outbox_relay_completed",
		"published_count", published,
	)
	return published, nil
}

// Run calls RunOnce every interval until ctx is cancelled. Cycle errors are
// logged by RunOnce and retried on the next tick.
func (r *Relay) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && errors.Is(err, ErrCircuitOpen) {
				r.logger.DebugContext(ctx, "outbox relay skipped", "event", "outbox_relay_circuit_open")
			}
		}
	}
}
