package models

import (
	"time"

	"ballotledger/pkg/domain"
)

// Overview summarizes the election for the landing page.
type Overview struct {
	Admin          domain.Account
	CandidateCount int
	TotalVotes     uint64
	CreatedAt      time.Time
}

// Health is the setup diagnostic: whether the store answers and whether the
// election exists yet.
type Health struct {
	StoreReachable bool
	Initialized    bool
	CandidateCount int
}

// Ready reports whether the election can serve requests.
func (h Health) Ready() bool {
	return h.StoreReachable && h.Initialized
}

// Overview derives the summary from the aggregate.
func (e *Election) Overview() Overview {
	return Overview{
		Admin:          e.Admin,
		CandidateCount: e.CandidateCount(),
		TotalVotes:     e.TotalVotes(),
		CreatedAt:      e.CreatedAt,
	}
}
