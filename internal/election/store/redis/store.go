// Package redis stores the election in a handful of keys and applies each
// mutation with WATCH/MULTI optimistic locking.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ballotledger/internal/election/models"
	"ballotledger/pkg/domain"
	"ballotledger/pkg/platform/sentinel"
)

const (
	defaultKeyPrefix  = "ballot"
	defaultMaxRetries = 32
)

// RedisStore layout, for prefix p:
//
//	p:election          hash  admin, created_at
//	p:candidates:count  int   number of registered candidates
//	p:candidates:names  hash  id -> name
//	p:candidates:votes  hash  id -> vote count
//	p:voter:<account>   str   time the account voted
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	maxRetries int
	now        func() time.Time
}

type Option func(*RedisStore)

func WithKeyPrefix(prefix string) Option {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithMaxRetries bounds how many times a mutation is retried after losing an
// optimistic lock race before it fails with sentinel.ErrConflict.
func WithMaxRetries(n int) Option {
	return func(s *RedisStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *RedisStore) {
		s.now = now
	}
}

func NewRedis(client redis.UniversalClient, opts ...Option) *RedisStore {
	s := &RedisStore{
		client:     client,
		prefix:     defaultKeyPrefix,
		maxRetries: defaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) electionKey() string { return s.prefix + ":election" }
func (s *RedisStore) countKey() string    { return s.prefix + ":candidates:count" }
func (s *RedisStore) namesKey() string    { return s.prefix + ":candidates:names" }
func (s *RedisStore) votesKey() string    { return s.prefix + ":candidates:votes" }

func (s *RedisStore) voterKey(account domain.Account) string {
	return s.prefix + ":voter:" + account.String()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Create writes the election and any candidates it already carries.
func (s *RedisStore) Create(ctx context.Context, e *models.Election) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, s.electionKey()).Result()
		if err != nil {
			return fmt.Errorf("check election: %w", err)
		}
		if n > 0 {
			return sentinel.ErrAlreadyUsed
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.electionKey(),
				"admin", e.Admin.String(),
				"created_at", e.CreatedAt.UTC().Format(time.RFC3339Nano),
			)
			pipe.Set(ctx, s.countKey(), len(e.Candidates), 0)
			for _, c := range e.Candidates {
				pipe.HSet(ctx, s.namesKey(), c.ID.String(), c.Name)
				pipe.HSet(ctx, s.votesKey(), c.ID.String(), c.VoteCount)
			}
			return nil
		})
		return err
	}, s.electionKey())
	if errors.Is(err, redis.TxFailedErr) {
		return sentinel.ErrAlreadyUsed
	}
	return err
}

// Load reads every key inside one MULTI block so the snapshot is
// consistent. Voters are not hydrated.
func (s *RedisStore) Load(ctx context.Context) (*models.Election, error) {
	var (
		meta  *redis.MapStringStringCmd
		names *redis.MapStringStringCmd
		votes *redis.MapStringStringCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		meta = pipe.HGetAll(ctx, s.electionKey())
		names = pipe.HGetAll(ctx, s.namesKey())
		votes = pipe.HGetAll(ctx, s.votesKey())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load election: %w", err)
	}
	return s.decode(meta.Val(), names.Val(), votes.Val())
}

func (s *RedisStore) HasVoted(ctx context.Context, account domain.Account) (bool, error) {
	var initialized, voted *redis.IntCmd
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		initialized = pipe.Exists(ctx, s.electionKey())
		voted = pipe.Exists(ctx, s.voterKey(account))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("query voter: %w", err)
	}
	if initialized.Val() == 0 {
		return false, sentinel.ErrNotFound
	}
	return voted.Val() > 0, nil
}

// Execute watches the election, the candidate count and the caller's voter
// key, runs fn on a freshly read aggregate and commits the change in MULTI.
// Losing a race retries from scratch up to the configured bound.
func (s *RedisStore) Execute(ctx context.Context, caller domain.Account, fn models.MutateFunc) (models.Change, error) {
	keys := []string{s.electionKey(), s.countKey()}
	if !caller.IsNil() {
		keys = append(keys, s.voterKey(caller))
	}

	for range s.maxRetries {
		var change models.Change
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			e, err := s.readForUpdate(ctx, tx, caller)
			if err != nil {
				return err
			}
			change, err = fn(e)
			if err != nil {
				return err
			}
			return s.apply(ctx, tx, &change)
		}, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			if ctx.Err() != nil {
				return models.Change{}, ctx.Err()
			}
			continue
		}
		if err != nil {
			return models.Change{}, err
		}
		return change, nil
	}
	return models.Change{}, fmt.Errorf("election mutation retried %d times: %w", s.maxRetries, sentinel.ErrConflict)
}

func (s *RedisStore) readForUpdate(ctx context.Context, tx *redis.Tx, caller domain.Account) (*models.Election, error) {
	meta, err := tx.HGetAll(ctx, s.electionKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("read election: %w", err)
	}
	names, err := tx.HGetAll(ctx, s.namesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("read candidate names: %w", err)
	}
	votes, err := tx.HGetAll(ctx, s.votesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("read vote counts: %w", err)
	}
	e, err := s.decode(meta, names, votes)
	if err != nil {
		return nil, err
	}
	if !caller.IsNil() {
		n, err := tx.Exists(ctx, s.voterKey(caller)).Result()
		if err != nil {
			return nil, fmt.Errorf("read voter: %w", err)
		}
		if n > 0 {
			e.Voters[caller] = struct{}{}
		}
	}
	return e, nil
}

func (s *RedisStore) apply(ctx context.Context, tx *redis.Tx, change *models.Change) error {
	switch change.Kind {
	case models.ChangeCandidateRegistered:
		c := change.Candidate
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.namesKey(), c.ID.String(), c.Name)
			pipe.HSet(ctx, s.votesKey(), c.ID.String(), 0)
			pipe.Set(ctx, s.countKey(), uint64(c.ID), 0)
			return nil
		})
		return err
	case models.ChangeVoteCast:
		var incr *redis.IntCmd
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.voterKey(change.Voter), s.now().UTC().Format(time.RFC3339Nano), 0)
			incr = pipe.HIncrBy(ctx, s.votesKey(), change.Candidate.ID.String(), 1)
			return nil
		})
		if err != nil {
			return err
		}
		// Votes for other candidates are not watched, so the committed
		// counter is the authoritative post-vote total.
		change.Candidate.VoteCount = uint64(incr.Val())
		return nil
	case "":
		return nil
	default:
		return fmt.Errorf("unknown change kind %q", change.Kind)
	}
}

func (s *RedisStore) decode(meta, names, votes map[string]string) (*models.Election, error) {
	admin, ok := meta["admin"]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e := &models.Election{
		Admin:  domain.Account(admin),
		Voters: make(map[domain.Account]struct{}),
	}
	if raw := meta["created_at"]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("decode created_at: %w", err)
		}
		e.CreatedAt = t
	}

	e.Candidates = make([]models.Candidate, 0, len(names))
	for rawID, name := range names {
		id, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode candidate id %q: %w", rawID, err)
		}
		var count uint64
		if raw, ok := votes[rawID]; ok {
			count, err = strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("decode vote count for %q: %w", rawID, err)
			}
		}
		e.Candidates = append(e.Candidates, models.Candidate{
			ID:        domain.CandidateID(id),
			Name:      name,
			VoteCount: count,
		})
	}
	sort.Slice(e.Candidates, func(i, j int) bool {
		return e.Candidates[i].ID < e.Candidates[j].ID
	})
	return e, nil
}
