package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"ballotledger/internal/election"
	"ballotledger/internal/election/handler"
	electionmetrics "ballotledger/internal/election/metrics"
	"ballotledger/internal/election/seed"
	"ballotledger/internal/election/service"
	jwttoken "ballotledger/internal/jwt_token"
	"ballotledger/internal/platform/config"
	"ballotledger/internal/platform/httpserver"
	"ballotledger/internal/platform/logger"
	"ballotledger/internal/platform/metrics"
	"ballotledger/internal/ratelimit/limiter"
	ratelimitmetrics "ballotledger/internal/ratelimit/metrics"
	ratelimitmw "ballotledger/internal/ratelimit/middleware"
	"ballotledger/pkg/domain"
	"ballotledger/pkg/platform/audit/kafka"
	auditpublisher "ballotledger/pkg/platform/audit/publisher"
	"ballotledger/pkg/platform/audit/relay"
)

var version = "dev"

const auditBufferSize = 1024

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ballotledger: %v\n", err)
		os.Exit(1)
	}
}

// run wires dependencies and blocks until a signal arrives or a component
// fails. Business logic lives in the internal packages.
func run() error {
	cfg, err := config.Environment()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("starting ballotledger",
		"version", version,
		"addr", cfg.Server.Addr,
		"env", cfg.Server.Env,
		"backend", cfg.Storage.Backend,
	)
	log.Debug("configuration", "config", config.SafeConfig(*cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := election.OpenBackend(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("failed to close storage", "error", err)
		}
	}()

	publisher := auditpublisher.NewPublisher(backend.Audit,
		auditpublisher.WithAsyncBuffer(auditBufferSize),
		auditpublisher.WithLogger(log),
	)
	defer publisher.Close()

	httpMetrics := metrics.New()
	httpMetrics.SetBuildInfo(version, backend.Name)

	svc := election.NewService(backend.Election,
		service.WithLogger(log),
		service.WithMetrics(electionmetrics.New()),
		service.WithAuditPublisher(publisher),
	)
	if err := bootstrap(ctx, svc, cfg, log); err != nil {
		return err
	}

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	voteLimiter := ratelimitmw.New(
		limiter.New(cfg.RateLimit.VotesPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL),
		log,
		ratelimitmw.WithDisabled(cfg.RateLimit.Disabled),
		ratelimitmw.WithMetrics(ratelimitmetrics.New()),
	)
	if cfg.Auth.AdminAPIToken == "" {
		log.Warn("BALLOT_AUTH_ADMIN_API_TOKEN is empty; /ops endpoints reject every request")
	}
	h := election.NewHandler(svc, jwtService, cfg.Auth.AdminAPIToken, log,
		handler.WithVoteRateLimit(voteLimiter.RateLimitCaller()),
	)

	srv := httpserver.New(cfg.Server.Addr, newRouter(cfg, log, httpMetrics, h))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if backend.Outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			log.Warn("failed to ensure audit topic", "topic", cfg.Kafka.Topic, "error", err)
		}

		outboxRelay := relay.New(backend.Outbox, producer,
			relay.WithBatchSize(cfg.Kafka.RelayBatchSize),
			relay.WithLogger(log),
		)
		g.Go(func() error {
			log.Info("audit relay started", "topic", cfg.Kafka.Topic, "interval", cfg.Kafka.RelayInterval)
			return outboxRelay.Run(gctx, cfg.Kafka.RelayInterval)
		})
	}

	return g.Wait()
}

// bootstrap creates the election for BALLOT_ELECTION_ADMIN when the store
// is empty and seeds it from BALLOT_ELECTION_SEED_FILE.
func bootstrap(ctx context.Context, svc *election.Service, cfg *config.Config, log *slog.Logger) error {
	if cfg.Election.Admin == "" {
		log.Info("no BALLOT_ELECTION_ADMIN set; waiting for POST /ops/election")
		return nil
	}
	admin, err := domain.ParseAccount(cfg.Election.Admin)
	if err != nil {
		return fmt.Errorf("election admin: %w", err)
	}

	var names []string
	if cfg.Election.SeedFile != "" {
		f, err := seed.Load(cfg.Election.SeedFile)
		if err != nil {
			return err
		}
		names = f.Names()
	}

	created, err := svc.Bootstrap(ctx, admin, names)
	if err != nil {
		return fmt.Errorf("bootstrap election: %w", err)
	}
	if created {
		log.Info("election created", "admin", admin.Checksum(), "seeded", len(names))
	} else {
		log.Info("election already exists; skipping bootstrap")
	}
	return nil
}
