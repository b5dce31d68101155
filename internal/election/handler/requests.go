package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"ballotledger/pkg/domain"
	dErrors "ballotledger/pkg/domain-errors"
)

const maxBodyBytes = 1 << 16

type RegisterCandidateRequest struct {
	Name string `json:"name"`
}

// CastVoteRequest keeps the id as a json.Number so a missing id is
// distinguishable from 0 and out-of-range integers reach the election as
// unknown candidates instead of failing to decode.
type CastVoteRequest struct {
	CandidateID *json.Number `json:"candidate_id"`
}

// Validate returns the id to vote for. Any integer that cannot name a
// candidate (zero, negative, beyond uint64) maps to id 0, which the election
// rejects as an invalid candidate.
func (r CastVoteRequest) Validate() (domain.CandidateID, error) {
	if r.CandidateID == nil {
		return 0, dErrors.New(dErrors.CodeValidation, "candidate_id is required")
	}
	raw := r.CandidateID.String()
	if !isInteger(raw) {
		return 0, dErrors.New(dErrors.CodeValidation, "candidate_id must be an integer")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return domain.CandidateID(id), nil
}

func isInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

type InitializeRequest struct {
	Admin string `json:"admin"`
}

func (r InitializeRequest) Validate() (domain.Account, error) {
	return domain.ParseAccount(r.Admin)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
