//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ballotledger/pkg/domain"
	"ballotledger/pkg/platform/audit"
	"ballotledger/pkg/platform/audit/store/postgres"
	"ballotledger/pkg/testutil/containers"
)

type OutboxStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestOutboxStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxStoreSuite))
}

func (s *OutboxStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *OutboxStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "outbox"))
}

func (s *OutboxStoreSuite) TestAppendListAndMark() {
	ctx := context.Background()
	actor := domain.MustParseAccount("0x4444444444444444444444444444444444444444")
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Append(ctx, audit.Event{Type: audit.EventCandidateRegistered, Actor: actor, CandidateID: 1, Name: "Alice", Timestamp: base}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{Type: audit.EventVoteCast, Actor: actor, CandidateID: 1, Timestamp: base.Add(time.Second)}))

	pending, err := s.store.ListPending(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(string(audit.EventCandidateRegistered), pending[0].EventType)
	s.Equal(actor.String(), pending[0].Key)

	s.Require().NoError(s.store.MarkPublished(ctx, pending[0].ID, base.Add(time.Minute)))
	pending, err = s.store.ListPending(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(string(audit.EventVoteCast), pending[0].EventType)

	recent, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(audit.EventVoteCast, recent[0].Type)
	s.Equal("Alice", recent[1].Name)
}
