package models

import "sort"

// Result is the declared outcome.
type Result struct {
	CandidateID uint64 `json:"candidate_id"`
	Name        string `json:"winner"`
	VoteCount   uint64 `json:"vote_count"`
}

// DeclareResults scans candidates in id order and keeps the first one that
// reaches the maximum, so ties go to the lowest id. With no votes cast the
// first candidate wins with zero.
func (e *Election) DeclareResults() (Result, error) {
	if len(e.Candidates) == 0 {
		return Result{}, ErrNoCandidates
	}
	best := e.Candidates[0]
	for _, c := range e.Candidates[1:] {
		if c.VoteCount > best.VoteCount {
			best = c
		}
	}
	return Result{CandidateID: uint64(best.ID), Name: best.Name, VoteCount: best.VoteCount}, nil
}

// Standings is the ranked view shown on the results page.
type Standings struct {
	Candidates []Candidate
	TotalVotes uint64
	// Leader is nil until somebody has voted.
	Leader *Candidate
}

// Standings ranks candidates by votes descending, id ascending on ties.
func (e *Election) Standings() Standings {
	ranked := e.ListCandidates()
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].VoteCount != ranked[j].VoteCount {
			return ranked[i].VoteCount > ranked[j].VoteCount
		}
		return ranked[i].ID < ranked[j].ID
	})
	s := Standings{Candidates: ranked, TotalVotes: e.TotalVotes()}
	if len(ranked) > 0 && ranked[0].VoteCount > 0 {
		leader := ranked[0]
		s.Leader = &leader
	}
	return s
}
