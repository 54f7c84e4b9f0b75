package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgx operations repositories need; it is satisfied by
// both *pgxpool.Pool and pgx.Tx, so the same repository code runs inside
// and outside transactions.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles the repositories behind a single transactional boundary.
// WithinTx hands the callback a Store whose repositories share one
// transaction; any error rolls back everything written through it.
type Store interface {
	Users() UserRepository
	Tickets() TicketRepository
	Activity() ActivityLogRepository
	PasswordResets() PasswordResetRepository
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type pgStore struct {
	db   DB
	pool *pgxpool.Pool
}

// NewStore builds a Postgres-backed Store on top of a pgx pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{db: pool, pool: pool}
}

func (s *pgStore) Users() UserRepository {
	return &userRepository{db: s.db}
}

func (s *pgStore) Tickets() TicketRepository {
	return &ticketRepository{db: s.db}
}

func (s *pgStore) Activity() ActivityLogRepository {
	return &activityLogRepository{db: s.db}
}

func (s *pgStore) PasswordResets() PasswordResetRepository {
	return &passwordResetRepository{db: s.db}
}

func (s *pgStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// Already inside a transaction; reuse it.
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txStore := &pgStore{db: tx}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
