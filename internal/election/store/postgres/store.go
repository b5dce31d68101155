// Package postgres persists the election in three tables. Every mutation
// runs in one transaction that holds a row lock on the election row, which
// serializes writers across processes.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"ballotledger/internal/election/models"
	"ballotledger/pkg/domain"
	"ballotledger/pkg/platform/sentinel"
	txcontext "ballotledger/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Migrate creates the election tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create election schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create inserts the election row and any candidates it already carries.
func (s *PostgresStore) Create(ctx context.Context, e *models.Election) error {
	return s.runInTx(ctx, nil, func(ctx context.Context) error {
		res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
			INSERT INTO election (id, admin, created_at)
			VALUES (1, $1, $2)
			ON CONFLICT (id) DO NOTHING
		`, e.Admin.String(), e.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert election: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert election rows affected: %w", err)
		}
		if n == 0 {
			return sentinel.ErrAlreadyUsed
		}
		for _, c := range e.Candidates {
			if err := s.insertCandidate(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load returns admin and candidates from one repeatable-read snapshot. The
// voter set is not hydrated; use HasVoted.
func (s *PostgresStore) Load(ctx context.Context) (*models.Election, error) {
	var e *models.Election
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := s.runInTx(ctx, opts, func(ctx context.Context) error {
		var err error
		e, err = s.load(ctx, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *PostgresStore) HasVoted(ctx context.Context, account domain.Account) (bool, error) {
	var initialized, voted bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM election WHERE id = 1),
		       EXISTS (SELECT 1 FROM voters WHERE account = $1)
	`, account.String()).Scan(&initialized, &voted)
	if err != nil {
		return false, fmt.Errorf("query voter: %w", err)
	}
	if !initialized {
		return false, sentinel.ErrNotFound
	}
	return voted, nil
}

// Execute locks the election row, hydrates the aggregate with the caller's
// voter flag, runs fn and persists the resulting change in the same
// transaction.
func (s *PostgresStore) Execute(ctx context.Context, caller domain.Account, fn models.MutateFunc) (models.Change, error) {
	var change models.Change
	err := s.runInTx(ctx, nil, func(ctx context.Context) error {
		e, err := s.load(ctx, true)
		if err != nil {
			return err
		}
		if !caller.IsNil() {
			var voted bool
			err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM voters WHERE account = $1)`, caller.String(),
			).Scan(&voted)
			if err != nil {
				return fmt.Errorf("query caller vote: %w", err)
			}
			if voted {
				e.Voters[caller] = struct{}{}
			}
		}

		change, err = fn(e)
		if err != nil {
			return err
		}
		return s.apply(ctx, change)
	})
	if err != nil {
		return models.Change{}, err
	}
	return change, nil
}

func (s *PostgresStore) apply(ctx context.Context, change models.Change) error {
	switch change.Kind {
	case models.ChangeCandidateRegistered:
		return s.insertCandidate(ctx, change.Candidate)
	case models.ChangeVoteCast:
		exec := txcontext.Exec(ctx, s.db)
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO voters (account, voted_at) VALUES ($1, $2)`,
			change.Voter.String(), s.now(),
		); err != nil {
			return translate(err, "insert voter")
		}
		res, err := exec.ExecContext(ctx,
			`UPDATE candidates SET vote_count = vote_count + 1 WHERE id = $1`,
			int64(change.Candidate.ID),
		)
		if err != nil {
			return fmt.Errorf("increment vote count: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n != 1 {
			return fmt.Errorf("increment vote count: %d rows for candidate %d", n, change.Candidate.ID)
		}
		return nil
	case "":
		return nil
	default:
		return fmt.Errorf("unknown change kind %q", change.Kind)
	}
}

func (s *PostgresStore) insertCandidate(ctx context.Context, c models.Candidate) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO candidates (id, name, vote_count, created_at)
		VALUES ($1, $2, $3, $4)
	`, int64(c.ID), c.Name, int64(c.VoteCount), s.now())
	return translate(err, "insert candidate")
}

func (s *PostgresStore) load(ctx context.Context, forUpdate bool) (*models.Election, error) {
	exec := txcontext.Exec(ctx, s.db)
	query := `SELECT admin, created_at FROM election WHERE id = 1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var (
		admin     string
		createdAt time.Time
	)
	if err := exec.QueryRowContext(ctx, query).Scan(&admin, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load election: %w", err)
	}

	rows, err := exec.QueryContext(ctx, `SELECT id, name, vote_count FROM candidates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	defer rows.Close()

	e := &models.Election{
		Admin:     domain.Account(admin),
		Voters:    make(map[domain.Account]struct{}),
		CreatedAt: createdAt,
	}
	for rows.Next() {
		var (
			id, votes int64
			name      string
		)
		if err := rows.Scan(&id, &name, &votes); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		e.Candidates = append(e.Candidates, models.Candidate{
			ID:        domain.CandidateID(id),
			Name:      name,
			VoteCount: uint64(votes),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) runInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
