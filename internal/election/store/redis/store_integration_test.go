//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ballotledger/internal/election/models"
	electionredis "ballotledger/internal/election/store/redis"
	"ballotledger/pkg/domain"
	"ballotledger/pkg/platform/sentinel"
	"ballotledger/pkg/testutil/containers"
)

var admin = domain.MustParseAccount("0x00000000000000000000000000000000000000ad")

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *electionredis.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = electionredis.NewRedis(s.redis.Client,
		electionredis.WithKeyPrefix("test"),
		electionredis.WithMaxRetries(1000),
	)
}

func (s *RedisStoreSuite) SetupTest() {
	_, err := s.redis.DeletePrefix(context.Background(), "test")
	s.Require().NoError(err)
}

func (s *RedisStoreSuite) create() {
	e, err := models.NewElection(admin, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), e))
}

func register(name string) models.MutateFunc {
	return func(e *models.Election) (models.Change, error) {
		c, err := e.RegisterCandidate(admin, name)
		return models.Change{Kind: models.ChangeCandidateRegistered, Candidate: c}, err
	}
}

func vote(voter domain.Account, id domain.CandidateID) models.MutateFunc {
	return func(e *models.Election) (models.Change, error) {
		c, err := e.CastVote(voter, id)
		return models.Change{Kind: models.ChangeVoteCast, Candidate: c, Voter: voter}, err
	}
}

func (s *RedisStoreSuite) TestUninitialized() {
	ctx := context.Background()
	_, err := s.store.Load(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.HasVoted(ctx, admin)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Execute(ctx, admin, register("Alice"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestCreateOnce() {
	s.create()
	e, _ := models.NewElection(admin, time.Now())
	s.ErrorIs(s.store.Create(context.Background(), e), sentinel.ErrAlreadyUsed)
}

func (s *RedisStoreSuite) TestRegisterAndVote() {
	ctx := context.Background()
	s.create()
	for _, name := range []string{"Alice", "Bob", "Carol", "Dave", "Eve", "Frank", "Grace", "Heidi", "Ivan", "Judy", "Mallory"} {
		_, err := s.store.Execute(ctx, admin, register(name))
		s.Require().NoError(err)
	}

	voter := domain.MustParseAccount("0x1111111111111111111111111111111111111111")
	change, err := s.store.Execute(ctx, voter, vote(voter, 11))
	s.Require().NoError(err)
	s.Equal(uint64(1), change.Candidate.VoteCount)

	_, err = s.store.Execute(ctx, voter, vote(voter, 1))
	s.ErrorIs(err, models.ErrAlreadyVoted)

	loaded, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Require().Len(loaded.Candidates, 11)
	s.Equal("Mallory", loaded.Candidates[10].Name)
	s.Equal(uint64(1), loaded.Candidates[10].VoteCount)
	s.NoError(loaded.CheckInvariants(false))

	voted, err := s.store.HasVoted(ctx, voter)
	s.Require().NoError(err)
	s.True(voted)
}

func (s *RedisStoreSuite) TestResetLeavesOtherPrefixesAlone() {
	ctx := context.Background()
	s.create()
	other := electionredis.NewRedis(s.redis.Client, electionredis.WithKeyPrefix("other"))
	e, err := models.NewElection(admin, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(other.Create(ctx, e))
	defer func() {
		_, err := s.redis.DeletePrefix(ctx, "other")
		s.NoError(err)
	}()

	deleted, err := s.redis.DeletePrefix(ctx, "test")
	s.Require().NoError(err)
	s.Positive(deleted)

	_, err = s.store.Load(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = other.Load(ctx)
	s.NoError(err)
}

func (s *RedisStoreSuite) TestConcurrentMutations() {
	ctx := context.Background()
	s.create()
	_, err := s.store.Execute(ctx, admin, register("Alice"))
	s.Require().NoError(err)

	const voters = 40
	var wg sync.WaitGroup
	for i := range voters {
		wg.Add(2)
		go func() {
			defer wg.Done()
			voter := domain.MustParseAccount(fmt.Sprintf("0x%040x", i+1))
			_, err := s.store.Execute(ctx, voter, vote(voter, 1))
			s.NoError(err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, admin, register(fmt.Sprintf("Candidate %d", i)))
			s.NoError(err)
		}()
	}
	wg.Wait()

	loaded, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Len(loaded.Candidates, voters+1)
	s.Equal(uint64(voters), loaded.Candidates[0].VoteCount)
	s.NoError(loaded.CheckInvariants(false))
}

func (s *RedisStoreSuite) TestRetryBudgetExhausted() {
	ctx := context.Background()
	s.create()
	store := electionredis.NewRedis(s.redis.Client, electionredis.WithKeyPrefix("test"), electionredis.WithMaxRetries(2))

	// Touch a watched key inside fn so every attempt loses the race.
	_, err := store.Execute(ctx, admin, func(e *models.Election) (models.Change, error) {
		s.Require().NoError(s.redis.Client.Incr(ctx, "test:candidates:count").Err())
		c, err := e.RegisterCandidate(admin, "Alice")
		return models.Change{Kind: models.ChangeCandidateRegistered, Candidate: c}, err
	})
	s.ErrorIs(err, sentinel.ErrConflict)
}
