package election

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetAdminToken() string
	Account(alias string) string
	BindAccount(alias, account string)
	TokenFor(account string) (string, error)
	RememberCandidate(name string, id uint64)
	CandidateID(name string) (uint64, bool)
}

// RegisterSteps registers election step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &electionSteps{tc: tc}

	ctx.Step(`^an election administered by "([^"]*)"$`, steps.electionAdministeredBy)
	ctx.Step(`^"([^"]*)" registers candidate "([^"]*)"$`, steps.registersCandidate)
	ctx.Step(`^"([^"]*)" votes for "([^"]*)"$`, steps.votesFor)
	ctx.Step(`^"([^"]*)" votes for candidate id (-?\d+)$`, steps.votesForID)
	ctx.Step(`^I look up candidate "([^"]*)"$`, steps.lookUpCandidate)
	ctx.Step(`^candidate "([^"]*)" should have (\d+) votes?$`, steps.candidateShouldHaveVotes)
	ctx.Step(`^"([^"]*)" should (not )?be recorded as having voted$`, steps.shouldBeRecordedAsVoted)
}

type electionSteps struct {
	tc TestContext
}

// electionAdministeredBy creates the election or, when it already exists,
// binds alias to the administrator the server reports.
func (s *electionSteps) electionAdministeredBy(ctx context.Context, alias string) error {
	body := map[string]string{"admin": s.tc.Account(alias)}
	if err := s.tc.POST("/ops/election", body, map[string]string{"X-Admin-Token": s.tc.GetAdminToken()}); err != nil {
		return err
	}
	switch s.tc.GetLastResponseStatus() {
	case http.StatusCreated:
		return nil
	case http.StatusConflict:
	default:
		return fmt.Errorf("initialize election: status %d: %s", s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}

	if err := s.tc.GET("/election/admin", nil); err != nil {
		return err
	}
	admin, err := s.tc.GetResponseField("admin")
	if err != nil {
		return err
	}
	s.tc.BindAccount(alias, fmt.Sprint(admin))
	return nil
}

func (s *electionSteps) authHeaders(alias string) (map[string]string, error) {
	token, err := s.tc.TokenFor(s.tc.Account(alias))
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}

func (s *electionSteps) registersCandidate(ctx context.Context, alias, name string) error {
	headers, err := s.authHeaders(alias)
	if err != nil {
		return err
	}
	if err := s.tc.POST("/election/candidates", map[string]string{"name": name}, headers); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != http.StatusCreated {
		return nil
	}
	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	f, ok := id.(float64)
	if !ok {
		return fmt.Errorf("candidate id is %T, not a number", id)
	}
	s.tc.RememberCandidate(strings.TrimSpace(name), uint64(f))
	return nil
}

func (s *electionSteps) votesFor(ctx context.Context, alias, name string) error {
	id, ok := s.tc.CandidateID(name)
	if !ok {
		return fmt.Errorf("candidate %q was not registered in this scenario", name)
	}
	return s.votesForID(ctx, alias, int(id))
}

func (s *electionSteps) votesForID(ctx context.Context, alias string, id int) error {
	headers, err := s.authHeaders(alias)
	if err != nil {
		return err
	}
	return s.tc.POST("/election/votes", map[string]int{"candidate_id": id}, headers)
}

func (s *electionSteps) lookUpCandidate(ctx context.Context, name string) error {
	id, ok := s.tc.CandidateID(name)
	if !ok {
		return fmt.Errorf("candidate %q was not registered in this scenario", name)
	}
	return s.tc.GET(fmt.Sprintf("/election/candidates/%d", id), nil)
}

func (s *electionSteps) candidateShouldHaveVotes(ctx context.Context, name string, votes int) error {
	if err := s.lookUpCandidate(ctx, name); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("vote_count")
	if err != nil {
		return err
	}
	if n, _ := got.(float64); int(n) != votes {
		return fmt.Errorf("candidate %q has %v votes, expected %d", name, got, votes)
	}
	return nil
}

func (s *electionSteps) shouldBeRecordedAsVoted(ctx context.Context, alias, not string) error {
	if err := s.tc.GET("/election/voters/"+s.tc.Account(alias), nil); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("has_voted")
	if err != nil {
		return err
	}
	want := not == ""
	if voted, _ := got.(bool); voted != want {
		return fmt.Errorf("has_voted for %q is %v, expected %v", alias, got, want)
	}
	return nil
}
