package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ballotledger/internal/election/models"
	"ballotledger/pkg/domain"
	dErrors "ballotledger/pkg/domain-errors"
	"ballotledger/pkg/platform/httputil"
	"ballotledger/pkg/platform/middleware/admin"
	"ballotledger/pkg/platform/middleware/auth"
	"ballotledger/pkg/requestcontext"
)

// Service is the election surface the HTTP layer needs.
type Service interface {
	Initialize(ctx context.Context, admin domain.Account) (*models.Election, error)
	RegisterCandidate(ctx context.Context, caller domain.Account, name string) (models.Candidate, error)
	CastVote(ctx context.Context, caller domain.Account, id domain.CandidateID) (models.Candidate, error)
	CandidateCount(ctx context.Context) (int, error)
	Candidate(ctx context.Context, id domain.CandidateID) (models.Candidate, error)
	ListCandidates(ctx context.Context) ([]models.Candidate, error)
	HasVoted(ctx context.Context, account domain.Account) (bool, error)
	DeclareResults(ctx context.Context) (models.Result, error)
	Standings(ctx context.Context) (models.Standings, error)
	Admin(ctx context.Context) (domain.Account, error)
	Overview(ctx context.Context) (models.Overview, error)
	Health(ctx context.Context) (models.Health, error)
}

// Handler serves the election API.
type Handler struct {
	election   Service
	logger     *slog.Logger
	validator  auth.TokenValidator
	adminToken string
	voteLimit  func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithVoteRateLimit wraps POST /election/votes. It runs after the caller
// has been authenticated.
func WithVoteRateLimit(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.voteLimit = mw
	}
}

func New(election Service, validator auth.TokenValidator, adminToken string, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		election:   election,
		logger:     logger,
		validator:  validator,
		adminToken: adminToken,
		voteLimit:  func(next http.Handler) http.Handler { return next },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the election, ops and health routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/election", func(r chi.Router) {
		r.Get("/", h.handleOverview)
		r.Get("/admin", h.handleGetAdmin)
		r.Get("/candidates", h.handleListCandidates)
		r.Get("/candidates/count", h.handleCandidateCount)
		r.Get("/candidates/{id}", h.handleGetCandidate)
		r.Get("/voters/{account}", h.handleHasVoted)
		r.Get("/results", h.handleDeclareResults)
		r.Get("/results/standings", h.handleStandings)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAccount(h.validator, h.logger))
			r.Post("/candidates", h.handleRegisterCandidate)
			r.With(h.voteLimit).Post("/votes", h.handleCastVote)
		})
	})

	r.With(admin.RequireAdminToken(h.adminToken, h.logger)).Post("/ops/election", h.handleInitialize)
}

func (h *Handler) handleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req InitializeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(ctx, w, err, "invalid initialize request")
		return
	}
	account, err := req.Validate()
	if err != nil {
		h.writeError(ctx, w, err, "invalid initialize request")
		return
	}
	e, err := h.election.Initialize(ctx, account)
	if err != nil {
		h.writeError(ctx, w, err, "failed to initialize election")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, OverviewResponse{
		Admin:     e.Admin.String(),
		CreatedAt: e.CreatedAt,
	})
}

func (h *Handler) handleRegisterCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req RegisterCandidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(ctx, w, err, "invalid register candidate request")
		return
	}
	c, err := h.election.RegisterCandidate(ctx, requestcontext.Account(ctx), req.Name)
	if err != nil {
		h.writeError(ctx, w, err, "failed to register candidate")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, RegisteredCandidateResponse{ID: uint64(c.ID), Name: c.Name})
}

func (h *Handler) handleCastVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CastVoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(ctx, w, err, "invalid vote request")
		return
	}
	id, err := req.Validate()
	if err != nil {
		h.writeError(ctx, w, err, "invalid vote request")
		return
	}
	if _, err := h.election.CastVote(ctx, requestcontext.Account(ctx), id); err != nil {
		h.writeError(ctx, w, err, "failed to cast vote")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	o, err := h.election.Overview(ctx)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load election")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OverviewResponse{
		Admin:          o.Admin.String(),
		CandidateCount: o.CandidateCount,
		TotalVotes:     o.TotalVotes,
		CreatedAt:      o.CreatedAt,
	})
}

func (h *Handler) handleGetAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := h.election.Admin(ctx)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load administrator")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AdminResponse{Admin: a.String(), AdminChecksum: a.Checksum()})
}

func (h *Handler) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cs, err := h.election.ListCandidates(ctx)
	if err != nil {
		h.writeError(ctx, w, err, "failed to list candidates")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CandidateListResponse{
		Candidates: toCandidateResponses(cs),
		Count:      len(cs),
	})
}

func (h *Handler) handleCandidateCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := h.election.CandidateCount(ctx)
	if err != nil {
		h.writeError(ctx, w, err, "failed to count candidates")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: n})
}

func (h *Handler) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseCandidateID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, err, "invalid candidate id")
		return
	}
	c, err := h.election.Candidate(ctx, id)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load candidate")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCandidateResponse(c))
}

func (h *Handler) handleHasVoted(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := domain.ParseAccount(chi.URLParam(r, "account"))
	if err != nil {
		h.writeError(ctx, w, err, "invalid account")
		return
	}
	voted, err := h.election.HasVoted(ctx, account)
	if err != nil {
		h.writeError(ctx, w, err, "failed to look up voter")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VoterResponse{Account: account.String(), HasVoted: voted})
}

func (h *Handler) handleDeclareResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.election.DeclareResults(ctx)
	if err != nil {
		h.writeError(ctx, w, err, "failed to declare results")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ResultResponse{
		CandidateID: res.CandidateID,
		Winner:      res.Name,
		VoteCount:   res.VoteCount,
	})
}

func (h *Handler) handleStandings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.election.Standings(ctx)
	if err != nil {
		h.writeError(ctx, w, err, "failed to load standings")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStandingsResponse(s))
}

// handleHealth answers 200 only when the store is reachable and the
// election exists.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	health, err := h.election.Health(ctx)
	resp := HealthResponse{
		Status:         "ok",
		Store:          "ok",
		Initialized:    health.Initialized,
		CandidateCount: health.CandidateCount,
	}
	if err != nil || !health.StoreReachable {
		resp.Store = "unreachable"
		h.logger.WarnContext(ctx, "health check failed", "error", err)
	}
	status := http.StatusOK
	if !health.Ready() {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	requestID := requestcontext.RequestID(ctx)
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestID)
	} else {
		h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestID)
	}
	httputil.WriteError(w, err)
}
