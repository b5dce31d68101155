package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ballotledger/internal/election/models"
	"ballotledger/pkg/domain"
	"ballotledger/pkg/platform/sentinel"
)

var admin = domain.MustParseAccount("0x00000000000000000000000000000000000000ad")

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) create() {
	e, err := models.NewElection(admin, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, e))
}

func (s *InMemoryStoreSuite) TestUninitialized() {
	_, err := s.store.Load(s.ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.HasVoted(s.ctx, admin)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Execute(s.ctx, admin, func(*models.Election) (models.Change, error) {
		s.Fail("must not run")
		return models.Change{}, nil
	})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestCreateOnce() {
	s.create()
	e, _ := models.NewElection(admin, time.Now())
	s.ErrorIs(s.store.Create(s.ctx, e), sentinel.ErrAlreadyUsed)
}

func (s *InMemoryStoreSuite) TestExecuteCommitsOnlyOnSuccess() {
	s.create()

	_, err := s.store.Execute(s.ctx, admin, func(e *models.Election) (models.Change, error) {
		c, err := e.RegisterCandidate(admin, "Alice")
		return models.Change{Kind: models.ChangeCandidateRegistered, Candidate: c}, err
	})
	s.Require().NoError(err)

	boom := errors.New("boom")
	_, err = s.store.Execute(s.ctx, admin, func(e *models.Election) (models.Change, error) {
		_, _ = e.RegisterCandidate(admin, "Ghost")
		return models.Change{}, boom
	})
	s.ErrorIs(err, boom)

	loaded, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, loaded.CandidateCount())
}

func (s *InMemoryStoreSuite) TestLoadReturnsCopy() {
	s.create()
	loaded, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	_, _ = loaded.RegisterCandidate(admin, "Sneaky")

	again, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, again.CandidateCount())
}

func (s *InMemoryStoreSuite) TestConcurrentVotesNeverLoseUpdates() {
	s.create()
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		_, err := s.store.Execute(s.ctx, admin, func(e *models.Election) (models.Change, error) {
			c, err := e.RegisterCandidate(admin, name)
			return models.Change{Kind: models.ChangeCandidateRegistered, Candidate: c}, err
		})
		s.Require().NoError(err)
	}

	const voters = 200
	var wg sync.WaitGroup
	for i := range voters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			voter := domain.MustParseAccount(fmt.Sprintf("0x%040x", i+1))
			_, err := s.store.Execute(s.ctx, voter, func(e *models.Election) (models.Change, error) {
				c, err := e.CastVote(voter, domain.CandidateID(i%3+1))
				return models.Change{Kind: models.ChangeVoteCast, Candidate: c, Voter: voter}, err
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	loaded, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(voters), loaded.TotalVotes())
	s.NoError(loaded.CheckInvariants(false))
	for i := range voters {
		voted, err := s.store.HasVoted(s.ctx, domain.MustParseAccount(fmt.Sprintf("0x%040x", i+1)))
		s.Require().NoError(err)
		s.True(voted)
	}
}

func (s *InMemoryStoreSuite) TestWorkingCopyCarriesOnlyCaller() {
	s.create()
	_, err := s.store.Execute(s.ctx, admin, func(e *models.Election) (models.Change, error) {
		c, err := e.RegisterCandidate(admin, "Alice")
		return models.Change{Kind: models.ChangeCandidateRegistered, Candidate: c}, err
	})
	s.Require().NoError(err)

	const existing = 5000
	for i := range existing {
		s.vote(domain.MustParseAccount(fmt.Sprintf("0x%040x", i+1)))
	}

	repeat := domain.MustParseAccount(fmt.Sprintf("0x%040x", 1))
	_, err = s.store.Execute(s.ctx, repeat, func(e *models.Election) (models.Change, error) {
		s.Len(e.Voters, 1)
		s.True(e.HasVoted(repeat))
		_, err := e.CastVote(repeat, 1)
		return models.Change{}, err
	})
	s.ErrorIs(err, models.ErrAlreadyVoted)

	fresh := domain.MustParseAccount("0x00000000000000000000000000000000000f4e54")
	_, err = s.store.Execute(s.ctx, fresh, func(e *models.Election) (models.Change, error) {
		s.Empty(e.Voters)
		c, err := e.CastVote(fresh, 1)
		return models.Change{Kind: models.ChangeVoteCast, Candidate: c, Voter: fresh}, err
	})
	s.Require().NoError(err)

	loaded, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Empty(loaded.Voters)
	s.Equal(uint64(existing+1), loaded.TotalVotes())
}

func (s *InMemoryStoreSuite) TestFailedVoteLeavesVoterSetUnchanged() {
	s.create()
	voter := domain.MustParseAccount("0x00000000000000000000000000000000000b0b00")
	_, err := s.store.Execute(s.ctx, voter, func(e *models.Election) (models.Change, error) {
		_, err := e.CastVote(voter, 7)
		return models.Change{}, err
	})
	s.ErrorIs(err, models.ErrInvalidCandidate)

	voted, err := s.store.HasVoted(s.ctx, voter)
	s.Require().NoError(err)
	s.False(voted)
}

func (s *InMemoryStoreSuite) vote(voter domain.Account) {
	_, err := s.store.Execute(s.ctx, voter, func(e *models.Election) (models.Change, error) {
		c, err := e.CastVote(voter, 1)
		return models.Change{Kind: models.ChangeVoteCast, Candidate: c, Voter: voter}, err
	})
	s.Require().NoError(err)
}

// BenchmarkCastVote reports the per-vote cost with a large existing voter
// set; it stays flat as the set grows.
func BenchmarkCastVote(b *testing.B) {
	for _, existing := range []int{1_000, 50_000} {
		b.Run(fmt.Sprintf("voters=%d", existing), func(b *testing.B) {
			ctx := context.Background()
			store := New()
			e, err := models.NewElection(admin, time.Now())
			if err != nil {
				b.Fatal(err)
			}
			if _, err := e.RegisterCandidate(admin, "Alice"); err != nil {
				b.Fatal(err)
			}
			if err := store.Create(ctx, e); err != nil {
				b.Fatal(err)
			}
			cast := func(n int) {
				voter := domain.Account(fmt.Sprintf("0x%040x", n))
				_, err := store.Execute(ctx, voter, func(e *models.Election) (models.Change, error) {
					c, err := e.CastVote(voter, 1)
					return models.Change{Kind: models.ChangeVoteCast, Candidate: c, Voter: voter}, err
				})
				if err != nil {
					b.Fatal(err)
				}
			}
			for i := range existing {
				cast(i + 1)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				cast(existing + i + 1)
			}
		})
	}
}
