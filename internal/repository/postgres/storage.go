package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/studyplanner/internal/repository"
)

// Both *pgxpool.Pool and pgx.Tx satisfy it
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Storage struct {
	db DBTX
}

func NewStorage(db DBTX) repository.Storage {
	return &Storage{db: db}
}

func (s *Storage) User() repository.UserRepo {
	return &UserRepo{DB: s.db}
}

func (s *Storage) Task() repository.TaskRepo {
	return &TaskRepo{DB: s.db}
}

func (s *Storage) FocusSession() repository.FocusSessionRepo {
	return &FocusSessionRepo{DB: s.db}
}

func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db tx error: %w", err)
	}

	defer func() {
		switch err {
		case nil:
			err = tx.Commit(ctx)
		default:
			_ = tx.Rollback(ctx)
		}
	}()

	err = fn(NewStorage(tx))

	return err
}

const (
	readAttempts = 3
	readBackoff  = 50 * time.Millisecond
)

// retryRead runs idempotent read again while pgx says the failure happened before anything reached the server
func retryRead[T any](ctx context.Context, read func() (T, error)) (T, error) {
	var (
		value T
		err   error
	)

	for attempt := 1; ; attempt++ {
		value, err = read()
		if err == nil || attempt == readAttempts || !pgconn.SafeToRetry(err) {
			return value, err
		}

		select {
		case <-ctx.Done():
			return value, err
		case <-time.After(time.Duration(attempt) * readBackoff):
		}
	}
}
