package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/models"
)

type FocusSessionRepo struct {
	DB DBTX
}

const focusColumns = `id, user_id, task_id, completion_time, status, created_at`

const createFocusSession = `-- name: CreateFocusSession
INSERT INTO focus_sessions (user_id, task_id, completion_time, status)
VALUES ($1, $2, 0, $3)
RETURNING ` + focusColumns

func (r *FocusSessionRepo) CreateFocusSession(ctx context.Context, userID int64, taskID int64, status models.FocusStatus) (models.FocusSession, error) {
	rows, _ := r.DB.Query(ctx, createFocusSession, userID, taskID, status)
	session, err := pgx.CollectOneRow(rows, rowToFocusSession)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return session, apperrors.ErrFocusSessionExists
			case pgerrcode.ForeignKeyViolation:
				return session, apperrors.ErrTaskNotFound
			}
		}

		return session, fmt.Errorf("db error: %w", err)
	}

	return session, nil
}

const addFocusTime = `-- name: AddFocusTime
UPDATE focus_sessions
SET completion_time = completion_time + $3, status = $4
WHERE user_id = $1 AND task_id = $2
RETURNING ` + focusColumns

func (r *FocusSessionRepo) AddFocusTime(ctx context.Context, userID int64, taskID int64, seconds int64, status models.FocusStatus) (models.FocusSession, error) {
	rows, _ := r.DB.Query(ctx, addFocusTime, userID, taskID, seconds, status)
	session, err := pgx.CollectOneRow(rows, rowToFocusSession)

	return session, focusErr(err)
}

const getFocusSession = `-- name: GetFocusSession
SELECT ` + focusColumns + ` FROM focus_sessions
WHERE id = $1 AND user_id = $2
`

func (r *FocusSessionRepo) GetFocusSession(ctx context.Context, userID int64, sessionID int64) (models.FocusSession, error) {
	session, err := retryRead(ctx, func() (models.FocusSession, error) {
		rows, _ := r.DB.Query(ctx, getFocusSession, sessionID, userID)
		return pgx.CollectOneRow(rows, rowToFocusSession)
	})

	return session, focusErr(err)
}

const summarizeFocus = `-- name: SummarizeFocus
SELECT
	EXTRACT(MONTH FROM t.deadline)::int AS month,
	t.priority_level AS priority,
	SUM(f.completion_time)::numeric AS total_completion_time
FROM focus_sessions f
JOIN tasks t ON t.id = f.task_id
WHERE f.user_id = $1
	AND EXTRACT(YEAR FROM t.deadline)::int = $2
	AND t.deadline < $3
GROUP BY month, t.priority_level
ORDER BY month ASC, t.priority_level ASC
`

func (r *FocusSessionRepo) SummarizeFocus(ctx context.Context, userID int64, year int, before time.Time) ([]models.FocusSummary, error) {
	summary, err := retryRead(ctx, func() ([]models.FocusSummary, error) {
		rows, _ := r.DB.Query(ctx, summarizeFocus, userID, year, before)
		return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.FocusSummary, error) {
			var s models.FocusSummary
			err := row.Scan(&s.Month, &s.Priority, &s.TotalCompletionTime)
			return s, err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return summary, nil
}

func focusErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrFocusSessionNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

func rowToFocusSession(row pgx.CollectableRow) (models.FocusSession, error) {
	var s models.FocusSession
	var status *string
	err := row.Scan(&s.ID, &s.UserID, &s.TaskID, &s.CompletionTime, &status, &s.CreatedAt)
	if status != nil {
		s.Status = models.FocusStatus(*status)
	}
	return s, err
}
