package ratelimit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseHeader(key string) string
	Account(alias string) string
	TokenFor(account string) (string, error)
	CandidateID(name string) (uint64, bool)
}

// RegisterSteps registers vote rate-limiting step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^"([^"]*)" sends (\d+) votes for "([^"]*)" in quick succession$`, steps.sendVotesQuickly)
	ctx.Step(`^at least one vote should be rejected as rate limited$`, steps.atLeastOneRateLimited)
	ctx.Step(`^the rate limited response should carry Retry-After$`, steps.retryAfterPresent)
}

type ratelimitSteps struct {
	tc         TestContext
	statuses   []int
	retryAfter string
}

func (s *ratelimitSteps) sendVotesQuickly(ctx context.Context, alias string, n int, name string) error {
	id, ok := s.tc.CandidateID(name)
	if !ok {
		return fmt.Errorf("candidate %q was not registered in this scenario", name)
	}
	token, err := s.tc.TokenFor(s.tc.Account(alias))
	if err != nil {
		return err
	}
	headers := map[string]string{"Authorization": "Bearer " + token}

	s.statuses = s.statuses[:0]
	s.retryAfter = ""
	for range n {
		if err := s.tc.POST("/election/votes", map[string]uint64{"candidate_id": id}, headers); err != nil {
			return err
		}
		status := s.tc.GetLastResponseStatus()
		s.statuses = append(s.statuses, status)
		if status == http.StatusTooManyRequests && s.retryAfter == "" {
			s.retryAfter = s.tc.GetLastResponseHeader("Retry-After")
		}
	}
	return nil
}

func (s *ratelimitSteps) atLeastOneRateLimited(ctx context.Context) error {
	for _, status := range s.statuses {
		if status == http.StatusTooManyRequests {
			return nil
		}
	}
	return fmt.Errorf("no vote was rate limited: %v", s.statuses)
}

func (s *ratelimitSteps) retryAfterPresent(ctx context.Context) error {
	if s.retryAfter == "" {
		return fmt.Errorf("Retry-After header missing")
	}
	return nil
}
