package election

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"ballotledger/internal/election/service"
	"ballotledger/internal/election/store/memory"
	electionpostgres "ballotledger/internal/election/store/postgres"
	electionredis "ballotledger/internal/election/store/redis"
	"ballotledger/internal/platform/config"
	"ballotledger/internal/platform/db"
	platformredis "ballotledger/internal/platform/redis"
	"ballotledger/pkg/platform/audit"
	auditmemory "ballotledger/pkg/platform/audit/store/memory"
	auditpostgres "ballotledger/pkg/platform/audit/store/postgres"
)

// Backend bundles the stores selected by BALLOT_STORAGE_BACKEND.
type Backend struct {
	Name     string
	Election service.Store
	Audit    audit.Store
	// Outbox is set for the postgres backend only; the Kafka relay reads it.
	Outbox *auditpostgres.Store

	closers []func() error
}

// OpenBackend connects the configured storage and creates schemas where
// needed. Close releases every connection it opened.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	b := &Backend{Name: cfg.Storage.Backend}
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		b.Election = memory.New()
		b.Audit = auditmemory.NewInMemoryStore()

	case config.BackendPostgres:
		pool, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		if err := b.openPostgres(ctx, pool); err != nil {
			_ = b.Close()
			return nil, err
		}

	case config.BackendRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, errors.New("redis backend selected without BALLOT_REDIS_URL")
		}
		b.closers = append(b.closers, client.Close)
		b.Election = electionredis.NewRedis(client.Client,
			electionredis.WithKeyPrefix(cfg.Redis.KeyPrefix),
			electionredis.WithMaxRetries(cfg.Redis.TxRetries),
		)
		b.Audit = auditmemory.NewInMemoryStore()

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	logger.InfoContext(ctx, "election storage ready", "backend", b.Name)
	return b, nil
}

func (b *Backend) openPostgres(ctx context.Context, pool *sql.DB) error {
	store := electionpostgres.NewPostgres(pool)
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	outbox := auditpostgres.New(pool)
	if err := outbox.Migrate(ctx); err != nil {
		return err
	}
	b.Election = store
	b.Audit = outbox
	b.Outbox = outbox
	return nil
}

func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}
