package models

import "errors"

// Election failure kinds. Every one is detected before any mutation, so the
// aggregate is unchanged whenever one is returned.
var (
	ErrUnauthorized       = errors.New("caller is not the election administrator")
	ErrInvalidName        = errors.New("candidate name is invalid")
	ErrInvalidCandidate   = errors.New("no candidate with that id")
	ErrAlreadyVoted       = errors.New("account has already voted")
	ErrNotFound           = errors.New("candidate not found")
	ErrNoCandidates       = errors.New("no candidates registered")
	ErrAlreadyInitialized = errors.New("election already initialized")
	ErrInvariantViolation = errors.New("election invariant violated")
)
