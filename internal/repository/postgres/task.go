package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/models"
	"github.com/nkiryanov/studyplanner/internal/repository"
)

type TaskRepo struct {
	DB DBTX
}

const taskColumns = `id, user_id, name, description, priority_level, estimated_time, status, deadline, created_at, updated_at`

const createTask = `-- name: CreateTask
INSERT INTO tasks (user_id, name, description, priority_level, estimated_time, status, deadline)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + taskColumns

func (r *TaskRepo) CreateTask(ctx context.Context, p repository.CreateTaskParams) (models.Task, error) {
	rows, _ := r.DB.Query(ctx, createTask,
		p.UserID, p.Name, p.Description, p.PriorityLevel, p.EstimatedTime, p.Status, p.Deadline,
	)
	task, err := pgx.CollectOneRow(rows, rowToTask)
	if err != nil {
		return task, fmt.Errorf("db error: %w", err)
	}

	return task, nil
}

const getTask = `-- name: GetTask
SELECT ` + taskColumns + ` FROM tasks
WHERE id = $1 AND user_id = $2
`

func (r *TaskRepo) GetTask(ctx context.Context, userID int64, taskID int64) (models.Task, error) {
	task, err := retryRead(ctx, func() (models.Task, error) {
		rows, _ := r.DB.Query(ctx, getTask, taskID, userID)
		return pgx.CollectOneRow(rows, rowToTask)
	})

	return task, taskErr(err)
}

const updateTask = `-- name: UpdateTask
UPDATE tasks
SET
	name = COALESCE($3, name),
	description = COALESCE($4, description),
	priority_level = COALESCE($5, priority_level),
	estimated_time = COALESCE($6, estimated_time),
	status = COALESCE($7, status),
	deadline = COALESCE($8, deadline),
	updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + taskColumns

func (r *TaskRepo) UpdateTask(ctx context.Context, userID int64, taskID int64, p repository.UpdateTaskParams) (models.Task, error) {
	rows, _ := r.DB.Query(ctx, updateTask,
		taskID, userID, p.Name, p.Description, p.PriorityLevel, p.EstimatedTime, p.Status, p.Deadline,
	)
	task, err := pgx.CollectOneRow(rows, rowToTask)

	return task, taskErr(err)
}

const deleteTask = `-- name: DeleteTask
DELETE FROM tasks WHERE id = $1 AND user_id = $2
`

func (r *TaskRepo) DeleteTask(ctx context.Context, userID int64, taskID int64) error {
	tag, err := r.DB.Exec(ctx, deleteTask, taskID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTaskNotFound
	}
	return nil
}

// count(*) OVER () returns total of matched rows before LIMIT/OFFSET applied
// NULL limit means no limit in postgres
const listTasksBetween = `-- name: ListTasksBetween
SELECT ` + taskColumns + `, count(*) OVER () AS total FROM tasks
WHERE user_id = $1 AND deadline >= $2 AND deadline < $3
ORDER BY deadline ASC, id ASC
LIMIT $4 OFFSET $5
`

func (r *TaskRepo) ListTasksBetween(ctx context.Context, userID int64, from, to time.Time, limit, offset int) ([]models.Task, int, error) {
	return r.list(ctx, listTasksBetween, userID, from, to, limit, offset)
}

const listTasksOutside = `-- name: ListTasksOutside
SELECT ` + taskColumns + `, count(*) OVER () AS total FROM tasks
WHERE user_id = $1 AND (deadline < $2 OR deadline >= $3)
ORDER BY deadline ASC, id ASC
LIMIT $4 OFFSET $5
`

func (r *TaskRepo) ListTasksOutside(ctx context.Context, userID int64, from, to time.Time, limit, offset int) ([]models.Task, int, error) {
	return r.list(ctx, listTasksOutside, userID, from, to, limit, offset)
}

type taskWithTotal struct {
	task  models.Task
	total int
}

func (r *TaskRepo) list(ctx context.Context, query string, userID int64, from, to time.Time, limit, offset int) ([]models.Task, int, error) {
	var pgLimit *int
	if limit > 0 {
		pgLimit = &limit
	}

	rows, err := retryRead(ctx, func() ([]taskWithTotal, error) {
		rows, _ := r.DB.Query(ctx, query, userID, from, to, pgLimit, offset)
		return pgx.CollectRows(rows, func(row pgx.CollectableRow) (taskWithTotal, error) {
			var t taskWithTotal
			err := row.Scan(
				&t.task.ID, &t.task.UserID, &t.task.Name, &t.task.Description, &t.task.PriorityLevel,
				&t.task.EstimatedTime, &t.task.Status, &t.task.Deadline, &t.task.CreatedAt, &t.task.UpdatedAt,
				&t.total,
			)
			return t, err
		})
	})
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	tasks := make([]models.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.task)
	}

	// Page past the end has no rows to carry the total
	if len(rows) == 0 && offset > 0 {
		total, err := r.count(ctx, query, userID, from, to)
		return tasks, total, err
	}
	if len(rows) == 0 {
		return tasks, 0, nil
	}

	return tasks, rows[0].total, nil
}

func (r *TaskRepo) count(ctx context.Context, query string, userID int64, from, to time.Time) (int, error) {
	var total int
	err := r.DB.QueryRow(ctx, `SELECT count(*) FROM (`+query+`) AS page`, userID, from, to, nil, 0).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return total, nil
}

func taskErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrTaskNotFound
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

func rowToTask(row pgx.CollectableRow) (models.Task, error) {
	var t models.Task
	err := row.Scan(
		&t.ID, &t.UserID, &t.Name, &t.Description, &t.PriorityLevel,
		&t.EstimatedTime, &t.Status, &t.Deadline, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}
