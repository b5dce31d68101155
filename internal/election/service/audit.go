package service

import (
	"context"

	"ballotledger/pkg/platform/audit"
	"ballotledger/pkg/requestcontext"
)

// emitAudit logs the event and hands it to the publisher. It runs after the
// mutation has committed, so a publish failure is logged and never returned.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	event.RequestID = requestcontext.RequestID(ctx)
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}

	if s.logger != nil {
		args := []any{
			"event", string(event.Type),
			"log_type", "audit",
			"actor", event.Actor.String(),
		}
		if event.CandidateID != 0 {
			args = append(args, "candidate_id", event.CandidateID.String())
		}
		if event.RequestID != "" {
			args = append(args, "request_id", event.RequestID)
		}
		s.logger.InfoContext(ctx, string(event.Type), args...)
	}

	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"event", string(event.Type),
			"error", err,
			"request_id", event.RequestID,
		)
	}
}
