package repository

import (
	"context"
	"time"

	"github.com/nkiryanov/studyplanner/internal/models"
)

type CreateUserParams struct {
	Email           string
	FullName        string
	PasswordHash    *string
	AvatarURL       *string
	IsActive        bool
	IsGoogleAccount bool
	ActivationToken *string
}

// Nil fields are left untouched
type UpdateUserParams struct {
	FullName     *string
	PasswordHash *string
	AvatarURL    *string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with the email exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by it's id or email
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID int64) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)

	// Mark user with the activation token active and forget the token
	// If no user has the token must return apperrors.ErrActivationTokenInvalid
	ActivateUser(ctx context.Context, activationToken string) (models.User, error)

	// If user not found must return apperrors.ErrUserNotFound
	UpdateUser(ctx context.Context, userID int64, params UpdateUserParams) (models.User, error)
	DeleteUser(ctx context.Context, userID int64) error
}

type CreateTaskParams struct {
	UserID        int64
	Name          string
	Description   string
	PriorityLevel models.Priority
	EstimatedTime int
	Status        models.TaskStatus
	Deadline      time.Time
}

// Nil fields are left untouched
type UpdateTaskParams struct {
	Name          *string
	Description   *string
	PriorityLevel *models.Priority
	EstimatedTime *int
	Status        *models.TaskStatus
	Deadline      *time.Time
}

// All task queries are scoped by user: task of another user is reported as not found
type TaskRepo interface {
	CreateTask(ctx context.Context, params CreateTaskParams) (models.Task, error)

	// If task not found must return apperrors.ErrTaskNotFound
	GetTask(ctx context.Context, userID int64, taskID int64) (models.Task, error)
	UpdateTask(ctx context.Context, userID int64, taskID int64, params UpdateTaskParams) (models.Task, error)
	DeleteTask(ctx context.Context, userID int64, taskID int64) error

	// Tasks with deadline in [from, to) ordered by deadline
	// Limit <= 0 means no limit
	ListTasksBetween(ctx context.Context, userID int64, from, to time.Time, limit, offset int) ([]models.Task, int, error)

	// Tasks with deadline before 'from' or at/after 'to' ordered by deadline
	ListTasksOutside(ctx context.Context, userID int64, from, to time.Time, limit, offset int) ([]models.Task, int, error)
}

type FocusSessionRepo interface {
	// If session for the task exists already must return apperrors.ErrFocusSessionExists
	CreateFocusSession(ctx context.Context, userID int64, taskID int64, status models.FocusStatus) (models.FocusSession, error)

	// Add seconds to completion time of the task session and set new status
	// If session not found must return apperrors.ErrFocusSessionNotFound
	AddFocusTime(ctx context.Context, userID int64, taskID int64, seconds int64, status models.FocusStatus) (models.FocusSession, error)

	// If session not found must return apperrors.ErrFocusSessionNotFound
	GetFocusSession(ctx context.Context, userID int64, sessionID int64) (models.FocusSession, error)

	// Focus time grouped by deadline month and priority of tasks with deadline in the year and before 'before'
	SummarizeFocus(ctx context.Context, userID int64, year int, before time.Time) ([]models.FocusSummary, error)
}

type Storage interface {
	User() UserRepo
	Task() TaskRepo
	FocusSession() FocusSessionRepo

	// Run fn in transaction. Storage passed to fn is bound to the transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}

// Key value store for token bookkeeping
// Non positive ttl must never be written
type SessionCache interface {
	SaveToken(ctx context.Context, userID int64, token string, ttl time.Duration) error
	BlacklistToken(ctx context.Context, token string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}
