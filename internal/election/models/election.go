package models

import (
	"fmt"
	"maps"
	"strings"
	"time"
	"unicode/utf8"

	"ballotledger/pkg/domain"
	dErrors "ballotledger/pkg/domain-errors"
)

// MaxNameLength bounds candidate names in runes.
const MaxNameLength = 128

// Candidate is one registered option. ID and Name never change after
// registration; VoteCount only grows through CastVote.
type Candidate struct {
	ID        domain.CandidateID `json:"id"`
	Name      string             `json:"name"`
	VoteCount uint64             `json:"vote_count"`
}

// Election is the aggregate every operation runs against.
//
// Invariants:
//   - Candidates[i].ID == i+1, so ids are exactly 1..CandidateCount()
//   - the sum of VoteCount equals the number of accounts that voted
//   - an account votes at most once
//   - Admin is fixed at construction
//
// Stores may hydrate Voters with only the accounts an operation touches
// (the caller); HasVoted is authoritative for those accounts.
type Election struct {
	Admin      domain.Account
	Candidates []Candidate
	Voters     map[domain.Account]struct{}
	CreatedAt  time.Time
}

// NewElection creates an empty election owned by admin.
func NewElection(admin domain.Account, now time.Time) (*Election, error) {
	if admin.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "administrator account is required")
	}
	return &Election{
		Admin:     admin,
		Voters:    make(map[domain.Account]struct{}),
		CreatedAt: now,
	}, nil
}

// RequireAdmin is the access-control check for privileged operations.
func (e *Election) RequireAdmin(caller domain.Account) error {
	if caller.IsNil() || caller != e.Admin {
		return ErrUnauthorized
	}
	return nil
}

// NormalizeName trims incidental whitespace and validates the result.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name must not be empty", ErrInvalidName)
	}
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: name must be valid UTF-8", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name must be at most %d characters", ErrInvalidName, MaxNameLength)
	}
	return name, nil
}

// RegisterCandidate appends a candidate with the next sequential id.
func (e *Election) RegisterCandidate(caller domain.Account, name string) (Candidate, error) {
	if err := e.RequireAdmin(caller); err != nil {
		return Candidate{}, err
	}
	name, err := NormalizeName(name)
	if err != nil {
		return Candidate{}, err
	}
	c := Candidate{
		ID:   domain.CandidateID(len(e.Candidates) + 1),
		Name: name,
	}
	e.Candidates = append(e.Candidates, c)
	return c, nil
}

// CastVote records caller's single vote for id. The candidate is checked
// before the voter so an unknown id is reported even for repeat voters.
func (e *Election) CastVote(caller domain.Account, id domain.CandidateID) (Candidate, error) {
	idx, ok := e.index(id)
	if !ok {
		return Candidate{}, ErrInvalidCandidate
	}
	if e.HasVoted(caller) {
		return Candidate{}, ErrAlreadyVoted
	}
	if e.Voters == nil {
		e.Voters = make(map[domain.Account]struct{})
	}
	e.Voters[caller] = struct{}{}
	e.Candidates[idx].VoteCount++
	return e.Candidates[idx], nil
}

// Candidate looks up a candidate by id.
func (e *Election) Candidate(id domain.CandidateID) (Candidate, error) {
	idx, ok := e.index(id)
	if !ok {
		return Candidate{}, ErrNotFound
	}
	return e.Candidates[idx], nil
}

func (e *Election) CandidateCount() int {
	return len(e.Candidates)
}

func (e *Election) HasVoted(account domain.Account) bool {
	_, ok := e.Voters[account]
	return ok
}

// TotalVotes is derived from the candidate tallies.
func (e *Election) TotalVotes() uint64 {
	var total uint64
	for _, c := range e.Candidates {
		total += c.VoteCount
	}
	return total
}

// ListCandidates returns a copy of the candidates in id order.
func (e *Election) ListCandidates() []Candidate {
	return append([]Candidate(nil), e.Candidates...)
}

// Clone returns a deep copy that can be mutated without touching e.
func (e *Election) Clone() *Election {
	if e == nil {
		return nil
	}
	out := *e
	out.Candidates = append([]Candidate(nil), e.Candidates...)
	out.Voters = maps.Clone(e.Voters)
	if out.Voters == nil {
		out.Voters = make(map[domain.Account]struct{})
	}
	return &out
}

// Snapshot copies e without its voter set. Stores hand it to readers and
// build working copies from it that carry only the accounts an operation
// touches, so neither costs O(voters).
func (e *Election) Snapshot() *Election {
	if e == nil {
		return nil
	}
	out := *e
	out.Candidates = append([]Candidate(nil), e.Candidates...)
	out.Voters = make(map[domain.Account]struct{})
	return &out
}

// CheckInvariants verifies the id sequence and, when the voter set is fully
// hydrated, the tally.
func (e *Election) CheckInvariants(fullVoters bool) error {
	if e.Admin.IsNil() {
		return fmt.Errorf("%w: administrator is not set", ErrInvariantViolation)
	}
	for i, c := range e.Candidates {
		if c.ID != domain.CandidateID(i+1) {
			return fmt.Errorf("%w: candidate at position %d has id %d", ErrInvariantViolation, i, c.ID)
		}
		if c.Name == "" {
			return fmt.Errorf("%w: candidate %d has an empty name", ErrInvariantViolation, c.ID)
		}
	}
	if fullVoters && e.TotalVotes() != uint64(len(e.Voters)) {
		return fmt.Errorf("%w: %d votes tallied for %d voters", ErrInvariantViolation, e.TotalVotes(), len(e.Voters))
	}
	return nil
}

func (e *Election) index(id domain.CandidateID) (int, bool) {
	if id < 1 || uint64(id) > uint64(len(e.Candidates)) {
		return 0, false
	}
	return int(id) - 1, true
}
