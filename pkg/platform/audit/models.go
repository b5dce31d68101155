package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ballotledger/pkg/domain"
)

// EventType names an auditable election action.
type EventType string

const (
	EventElectionInitialized EventType = "election_initialized"
	EventCandidateRegistered EventType = "candidate_registered"
	EventVoteCast            EventType = "vote_cast"
)

// Event is emitted after a committed election mutation. It is also the JSON
// payload stored in the outbox and published to Kafka.
type Event struct {
	ID          uuid.UUID          `json:"id"`
	Type        EventType          `json:"type"`
	Actor       domain.Account     `json:"actor"`
	CandidateID domain.CandidateID `json:"candidate_id,omitempty"`
	// Name is the candidate name for registrations.
	Name      string    `json:"name,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
