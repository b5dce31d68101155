package service

import (
	"context"
	"errors"

	"ballotledger/internal/election/models"
	dErrors "ballotledger/pkg/domain-errors"
	"ballotledger/pkg/platform/sentinel"
)

// translate maps model and store errors onto coded domain errors. Errors
// that already carry a code pass through.
func translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return dErrors.New(dErrors.CodeForbidden, "only the election administrator may do this")
	case errors.Is(err, models.ErrInvalidName):
		return dErrors.New(dErrors.CodeValidation, err.Error())
	case errors.Is(err, models.ErrInvalidCandidate):
		return dErrors.New(dErrors.CodeInvalidCandidate, "candidate does not exist")
	case errors.Is(err, models.ErrAlreadyVoted):
		return dErrors.New(dErrors.CodeAlreadyVoted, "account has already voted")
	case errors.Is(err, models.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "candidate not found")
	case errors.Is(err, models.ErrNoCandidates):
		return dErrors.New(dErrors.CodeNoCandidates, "no candidates registered")
	case errors.Is(err, models.ErrAlreadyInitialized), errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeAlreadyInitialized, "election already initialized")
	case errors.Is(err, models.ErrInvariantViolation):
		return dErrors.Wrap(err, dErrors.CodeInvariantViolation, msg)
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotInitialized, "election has not been initialized")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "election is busy, retry the request")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "election store unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
