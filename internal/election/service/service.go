package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	electionmetrics "ballotledger/internal/election/metrics"
	"ballotledger/internal/election/models"
	"ballotledger/pkg/domain"
	"ballotledger/pkg/platform/audit"
)

// Store is the single-writer boundary around the election aggregate.
// Implementations return pkg/platform/sentinel errors for infrastructure
// facts and pass errors from fn through unchanged.
type Store interface {
	Create(ctx context.Context, e *models.Election) error
	Load(ctx context.Context) (*models.Election, error)
	HasVoted(ctx context.Context, account domain.Account) (bool, error)
	Execute(ctx context.Context, caller domain.Account, fn models.MutateFunc) (models.Change, error)
	Ping(ctx context.Context) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs election operations against the store and reports them to
// logs, metrics and the audit trail.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *electionmetrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *electionmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tracer: otel.Tracer("ballotledger/internal/election/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
