package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ballotledger/internal/election/models"
	"ballotledger/pkg/domain"
	dErrors "ballotledger/pkg/domain-errors"
	"ballotledger/pkg/platform/audit"
	"ballotledger/pkg/platform/sentinel"
	"ballotledger/pkg/requestcontext"
)

const (
	opInitialize        = "initialize"
	opRegisterCandidate = "register_candidate"
	opCastVote          = "cast_vote"
	opRead              = "read"
	opDeclareResults    = "declare_results"
)

// Initialize creates the election with admin as its administrator. It
// succeeds exactly once per store.
func (s *Service) Initialize(ctx context.Context, admin domain.Account) (e *models.Election, err error) {
	ctx, span, start := s.begin(ctx, opInitialize)
	defer func() { s.finish(span, opInitialize, start, err) }()

	e, err = models.NewElection(admin, requestcontext.Now(ctx).UTC())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, translate(err, "failed to create election")
	}

	s.emitAudit(ctx, audit.Event{Type: audit.EventElectionInitialized, Actor: admin})
	return e, nil
}

// RegisterCandidate appends a candidate. Only the administrator may call it;
// registration stays open after voting has started.
func (s *Service) RegisterCandidate(ctx context.Context, caller domain.Account, name string) (c models.Candidate, err error) {
	ctx, span, start := s.begin(ctx, opRegisterCandidate)
	defer func() { s.finish(span, opRegisterCandidate, start, err) }()

	change, err := s.store.Execute(ctx, caller, func(e *models.Election) (models.Change, error) {
		c, err := e.RegisterCandidate(caller, name)
		if err != nil {
			return models.Change{}, err
		}
		return models.Change{Kind: models.ChangeCandidateRegistered, Candidate: c}, nil
	})
	if err != nil {
		return models.Candidate{}, translate(err, "failed to register candidate")
	}

	span.SetAttributes(attribute.Int64("candidate.id", int64(change.Candidate.ID)))
	if s.metrics != nil {
		s.metrics.IncrementCandidatesRegistered()
	}
	s.emitAudit(ctx, audit.Event{
		Type:        audit.EventCandidateRegistered,
		Actor:       caller,
		CandidateID: change.Candidate.ID,
		Name:        change.Candidate.Name,
	})
	return change.Candidate, nil
}

// CastVote records caller's one vote for candidate id and returns the
// candidate with its updated tally.
func (s *Service) CastVote(ctx context.Context, caller domain.Account, id domain.CandidateID) (c models.Candidate, err error) {
	ctx, span, start := s.begin(ctx, opCastVote)
	defer func() { s.finish(span, opCastVote, start, err) }()
	defer func() {
		if err != nil && s.metrics != nil {
			s.metrics.IncrementVotesRejected(string(dErrors.CodeOf(err)))
		}
	}()

	if caller.IsNil() {
		return models.Candidate{}, dErrors.New(dErrors.CodeUnauthorized, "caller account is required")
	}
	span.SetAttributes(attribute.Int64("candidate.id", int64(id)))

	change, err := s.store.Execute(ctx, caller, func(e *models.Election) (models.Change, error) {
		c, err := e.CastVote(caller, id)
		if err != nil {
			return models.Change{}, err
		}
		return models.Change{Kind: models.ChangeVoteCast, Candidate: c, Voter: caller}, nil
	})
	if err != nil {
		return models.Candidate{}, translate(err, "failed to record vote")
	}

	if s.metrics != nil {
		s.metrics.IncrementVotesCast()
	}
	s.emitAudit(ctx, audit.Event{
		Type:        audit.EventVoteCast,
		Actor:       caller,
		CandidateID: change.Candidate.ID,
	})
	return change.Candidate, nil
}

func (s *Service) CandidateCount(ctx context.Context) (int, error) {
	e, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return e.CandidateCount(), nil
}

func (s *Service) Candidate(ctx context.Context, id domain.CandidateID) (models.Candidate, error) {
	e, err := s.load(ctx)
	if err != nil {
		return models.Candidate{}, err
	}
	c, err := e.Candidate(id)
	if err != nil {
		return models.Candidate{}, translate(err, "failed to load candidate")
	}
	return c, nil
}

// ListCandidates returns every candidate in id order.
func (s *Service) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	e, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return e.ListCandidates(), nil
}

func (s *Service) HasVoted(ctx context.Context, account domain.Account) (bool, error) {
	voted, err := s.store.HasVoted(ctx, account)
	if err != nil {
		return false, translate(err, "failed to look up voter")
	}
	return voted, nil
}

// DeclareResults returns the current leader; ties go to the lowest id.
func (s *Service) DeclareResults(ctx context.Context) (r models.Result, err error) {
	ctx, span, start := s.begin(ctx, opDeclareResults)
	defer func() { s.finish(span, opDeclareResults, start, err) }()

	e, err := s.load(ctx)
	if err != nil {
		return models.Result{}, err
	}
	r, err = e.DeclareResults()
	if err != nil {
		return models.Result{}, translate(err, "failed to declare results")
	}
	return r, nil
}

func (s *Service) Standings(ctx context.Context) (models.Standings, error) {
	e, err := s.load(ctx)
	if err != nil {
		return models.Standings{}, err
	}
	return e.Standings(), nil
}

func (s *Service) Admin(ctx context.Context) (domain.Account, error) {
	e, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return e.Admin, nil
}

func (s *Service) Overview(ctx context.Context) (models.Overview, error) {
	e, err := s.load(ctx)
	if err != nil {
		return models.Overview{}, err
	}
	return e.Overview(), nil
}

// Health pings the store and reports whether the election exists. The
// error is non-nil only when the store cannot be reached.
func (s *Service) Health(ctx context.Context) (models.Health, error) {
	var h models.Health
	if err := s.store.Ping(ctx); err != nil {
		return h, dErrors.Wrap(err, dErrors.CodeUnavailable, "election store unreachable")
	}
	h.StoreReachable = true

	e, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return h, nil
	case err != nil:
		return h, translate(err, "failed to load election")
	}
	h.Initialized = true
	h.CandidateCount = e.CandidateCount()
	return h, nil
}

// Seed registers each name that is not already a candidate, in order, and
// returns the candidates it created. Re-running with the same list is a
// no-op.
func (s *Service) Seed(ctx context.Context, caller domain.Account, names []string) ([]models.Candidate, error) {
	e, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]struct{}, len(e.Candidates))
	for _, c := range e.Candidates {
		existing[c.Name] = struct{}{}
	}

	var created []models.Candidate
	for _, raw := range names {
		name, err := models.NormalizeName(raw)
		if err != nil {
			return created, translate(err, "invalid seed name")
		}
		if _, ok := existing[name]; ok {
			continue
		}
		c, err := s.RegisterCandidate(ctx, caller, name)
		if err != nil {
			return created, err
		}
		existing[name] = struct{}{}
		created = append(created, c)
	}
	return created, nil
}

// Bootstrap initializes the election for admin when it does not exist yet
// and seeds names into a freshly created election only. An existing
// election is left alone; created reports which case happened.
func (s *Service) Bootstrap(ctx context.Context, admin domain.Account, names []string) (created bool, err error) {
	if _, err := s.Initialize(ctx, admin); err != nil {
		if dErrors.HasCode(err, dErrors.CodeAlreadyInitialized) {
			return false, nil
		}
		return false, err
	}
	if len(names) == 0 {
		return true, nil
	}
	seeded, err := s.Seed(ctx, admin, names)
	if err != nil {
		return true, err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "seeded candidates", "count", len(seeded))
	}
	return true, nil
}

func (s *Service) load(ctx context.Context) (*models.Election, error) {
	ctx, span := s.tracer.Start(ctx, "election."+opRead)
	defer span.End()

	e, err := s.store.Load(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, translate(err, "failed to load election")
	}
	return e, nil
}

func (s *Service) begin(ctx context.Context, op string) (context.Context, trace.Span, time.Time) {
	ctx, span := s.tracer.Start(ctx, "election."+op)
	return ctx, span, time.Now()
}

func (s *Service) finish(span trace.Span, op string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, start)
	}
}
