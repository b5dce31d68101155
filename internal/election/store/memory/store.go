// Package memory keeps the election in process memory behind one RWMutex.
package memory

import (
	"context"
	"maps"
	"sync"

	"ballotledger/internal/election/models"
	"ballotledger/pkg/domain"
	"ballotledger/pkg/platform/sentinel"
)

// InMemory holds the election without its voter set; voters live in their
// own map so reads and mutations never copy it.
type InMemory struct {
	mu       sync.RWMutex
	election *models.Election
	voters   map[domain.Account]struct{}
}

func New() *InMemory {
	return &InMemory{}
}

// Create stores the initial election. A second call fails with
// sentinel.ErrAlreadyUsed.
func (s *InMemory) Create(_ context.Context, e *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.election != nil {
		return sentinel.ErrAlreadyUsed
	}
	s.election = e.Snapshot()
	s.voters = maps.Clone(e.Voters)
	if s.voters == nil {
		s.voters = make(map[domain.Account]struct{})
	}
	return nil
}

// Load returns admin and candidates. Voters are not hydrated; use HasVoted.
func (s *InMemory) Load(_ context.Context) (*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.election == nil {
		return nil, sentinel.ErrNotFound
	}
	return s.election.Snapshot(), nil
}

func (s *InMemory) HasVoted(_ context.Context, account domain.Account) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.election == nil {
		return false, sentinel.ErrNotFound
	}
	_, ok := s.voters[account]
	return ok, nil
}

// Execute runs fn against a working copy that knows only whether caller has
// voted. On success the copy's candidates replace the live ones and any
// accounts it recorded join the voter set; on failure nothing changes.
func (s *InMemory) Execute(_ context.Context, caller domain.Account, fn models.MutateFunc) (models.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.election == nil {
		return models.Change{}, sentinel.ErrNotFound
	}
	working := s.election.Snapshot()
	if _, ok := s.voters[caller]; ok && !caller.IsNil() {
		working.Voters[caller] = struct{}{}
	}
	change, err := fn(working)
	if err != nil {
		return models.Change{}, err
	}
	maps.Copy(s.voters, working.Voters)
	working.Voters = make(map[domain.Account]struct{})
	s.election = working
	return change, nil
}

func (s *InMemory) Ping(context.Context) error {
	return nil
}
