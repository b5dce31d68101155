package handler

import (
	"time"

	"ballotledger/internal/election/models"
)

type CandidateResponse struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	VoteCount uint64 `json:"vote_count"`
}

type RegisteredCandidateResponse struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type CandidateListResponse struct {
	Candidates []CandidateResponse `json:"candidates"`
	Count      int                 `json:"count"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type VoterResponse struct {
	Account  string `json:"account"`
	HasVoted bool   `json:"has_voted"`
}

type ResultResponse struct {
	CandidateID uint64 `json:"candidate_id"`
	Winner      string `json:"winner"`
	VoteCount   uint64 `json:"vote_count"`
}

type StandingsResponse struct {
	Candidates []CandidateResponse `json:"candidates"`
	TotalVotes uint64              `json:"total_votes"`
	Leader     *CandidateResponse  `json:"leader"`
}

type AdminResponse struct {
	Admin         string `json:"admin"`
	AdminChecksum string `json:"admin_checksum"`
}

type OverviewResponse struct {
	Admin          string    `json:"admin"`
	CandidateCount int       `json:"candidate_count"`
	TotalVotes     uint64    `json:"total_votes"`
	CreatedAt      time.Time `json:"created_at"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	Store          string `json:"store"`
	Initialized    bool   `json:"initialized"`
	CandidateCount int    `json:"candidate_count"`
}

func toCandidateResponse(c models.Candidate) CandidateResponse {
	return CandidateResponse{ID: uint64(c.ID), Name: c.Name, VoteCount: c.VoteCount}
}

func toCandidateResponses(cs []models.Candidate) []CandidateResponse {
	out := make([]CandidateResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCandidateResponse(c))
	}
	return out
}

func toStandingsResponse(s models.Standings) StandingsResponse {
	resp := StandingsResponse{
		Candidates: toCandidateResponses(s.Candidates),
		TotalVotes: s.TotalVotes,
	}
	if s.Leader != nil {
		leader := toCandidateResponse(*s.Leader)
		resp.Leader = &leader
	}
	return resp
}
