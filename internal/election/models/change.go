package models

import "ballotledger/pkg/domain"

// ChangeKind names the single effect a committed mutation had.
type ChangeKind string

const (
	ChangeCandidateRegistered ChangeKind = "candidate_registered"
	ChangeVoteCast            ChangeKind = "vote_cast"
)

// Change tells a store what to persist after a mutation succeeded on its
// in-memory copy. Candidate holds the post-mutation state.
type Change struct {
	Kind      ChangeKind
	Candidate Candidate
	Voter     domain.Account
}

// MutateFunc runs one operation against the election. Returning an error
// discards every change made to the aggregate.
type MutateFunc func(e *Election) (Change, error)
