package focus

import (
	"context"
	"errors"
	"time"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/models"
	"github.com/nkiryanov/studyplanner/internal/repository"
)

type Assistant interface {
	FocusFeedback(ctx context.Context, data any) (string, error)
}

type FocusService struct {
	storage   repository.Storage
	assistant Assistant
	now       func() time.Time
}

// Assistant is optional: feedback is disabled without it
func NewService(storage repository.Storage, assistant Assistant) (*FocusService, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}

	return &FocusService{
		storage:   storage,
		assistant: assistant,
		now:       time.Now,
	}, nil
}

// Create starts tracking focus time of user task
// Every task has at most one session
func (s *FocusService) Create(ctx context.Context, userID int64, taskID int64, status models.FocusStatus) (models.FocusSession, error) {
	if _, err := s.storage.Task().GetTask(ctx, userID, taskID); err != nil {
		return models.FocusSession{}, err
	}

	return s.storage.FocusSession().CreateFocusSession(ctx, userID, taskID, status)
}

// Update adds seconds to the task session and sets its status
func (s *FocusService) Update(ctx context.Context, userID int64, taskID int64, seconds int64, status models.FocusStatus) (models.FocusSession, error) {
	if seconds < 0 {
		return models.FocusSession{}, errors.New("completion time must not be negative")
	}

	return s.storage.FocusSession().AddFocusTime(ctx, userID, taskID, seconds, status)
}

func (s *FocusService) Get(ctx context.Context, userID int64, sessionID int64) (models.FocusSession, error) {
	return s.storage.FocusSession().GetFocusSession(ctx, userID, sessionID)
}

// Summary of focus time by month and priority for tasks with passed deadline in the year
func (s *FocusService) Summary(ctx context.Context, userID int64, year int) ([]models.FocusSummary, error) {
	return s.storage.FocusSession().SummarizeFocus(ctx, userID, year, s.now())
}

// Feedback asks assistant to comment the year summary
func (s *FocusService) Feedback(ctx context.Context, userID int64, year int) (string, error) {
	if s.assistant == nil {
		return "", apperrors.ErrFeatureDisabled
	}

	summary, err := s.Summary(ctx, userID, year)
	if err != nil {
		return "", err
	}

	return s.assistant.FocusFeedback(ctx, summary)
}
