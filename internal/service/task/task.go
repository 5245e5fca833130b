package task

import (
	"context"
	"errors"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/models"
	"github.com/nkiryanov/studyplanner/internal/repository"
)

const (
	PageSize      = 5
	analyzeLimit  = 50
	recentHorizon = 100 * 365 * 24 * time.Hour
)

type Assistant interface {
	AnalyzeSchedule(ctx context.Context, data any) (string, error)
}

type CreateParams struct {
	Name          string
	Description   string
	PriorityLevel models.Priority
	EstimatedTime int
	Status        models.TaskStatus
	Deadline      time.Time
}

type TaskService struct {
	tasks     repository.TaskRepo
	assistant Assistant
	policy    *bluemonday.Policy
	now       func() time.Time
}

// Assistant is optional: schedule analysis is disabled without it
func NewService(tasks repository.TaskRepo, assistant Assistant) (*TaskService, error) {
	if tasks == nil {
		return nil, errors.New("task repo must not be nil")
	}

	return &TaskService{
		tasks:     tasks,
		assistant: assistant,
		policy:    bluemonday.StrictPolicy(),
		now:       time.Now,
	}, nil
}

func (s *TaskService) Create(ctx context.Context, userID int64, p CreateParams) (models.Task, error) {
	status := p.Status
	if status == "" {
		status = models.TaskTodo
	}

	return s.tasks.CreateTask(ctx, repository.CreateTaskParams{
		UserID:        userID,
		Name:          p.Name,
		Description:   s.policy.Sanitize(p.Description),
		PriorityLevel: p.PriorityLevel,
		EstimatedTime: p.EstimatedTime,
		Status:        status,
		Deadline:      p.Deadline,
	})
}

func (s *TaskService) Get(ctx context.Context, userID int64, taskID int64) (models.Task, error) {
	return s.tasks.GetTask(ctx, userID, taskID)
}

func (s *TaskService) Update(ctx context.Context, userID int64, taskID int64, p repository.UpdateTaskParams) (models.Task, error) {
	if p.Description != nil {
		p.Description = sanitized(s.policy, *p.Description)
	}

	return s.tasks.UpdateTask(ctx, userID, taskID, p)
}

func (s *TaskService) Delete(ctx context.Context, userID int64, taskID int64) error {
	return s.tasks.DeleteTask(ctx, userID, taskID)
}

// Recent returns nearest upcoming tasks and the number of all upcoming ones
func (s *TaskService) Recent(ctx context.Context, userID int64) (models.TaskPage, error) {
	now := s.now()
	tasks, total, err := s.tasks.ListTasksBetween(ctx, userID, now, now.Add(recentHorizon), PageSize, 0)
	if err != nil {
		return models.TaskPage{}, err
	}

	return models.TaskPage{Tasks: tasks, Total: total, Page: 1}, nil
}

// ThisMonth pages upcoming tasks with deadline in the current month
func (s *TaskService) ThisMonth(ctx context.Context, userID int64, page int) (models.TaskPage, error) {
	if page < 1 {
		return models.TaskPage{}, apperrors.ErrInvalidPage
	}

	now := s.now()
	_, nextMonth := monthBounds(now)

	tasks, total, err := s.tasks.ListTasksBetween(ctx, userID, now, nextMonth, PageSize, (page-1)*PageSize)
	if err != nil {
		return models.TaskPage{}, err
	}

	return models.TaskPage{Tasks: tasks, Total: total, Page: page}, nil
}

// OtherMonths pages tasks with deadline before or after the current month
func (s *TaskService) OtherMonths(ctx context.Context, userID int64, page int) (models.TaskPage, error) {
	if page < 1 {
		return models.TaskPage{}, apperrors.ErrInvalidPage
	}

	monthStart, nextMonth := monthBounds(s.now())

	tasks, total, err := s.tasks.ListTasksOutside(ctx, userID, monthStart, nextMonth, PageSize, (page-1)*PageSize)
	if err != nil {
		return models.TaskPage{}, err
	}

	return models.TaskPage{Tasks: tasks, Total: total, Page: page}, nil
}

// Range returns all tasks with deadline in [from, to)
func (s *TaskService) Range(ctx context.Context, userID int64, from time.Time, to time.Time) (models.TaskPage, error) {
	if !from.Before(to) {
		return models.TaskPage{}, apperrors.ErrInvalidTimeRange
	}

	tasks, total, err := s.tasks.ListTasksBetween(ctx, userID, from, to, 0, 0)
	if err != nil {
		return models.TaskPage{}, err
	}

	return models.TaskPage{Tasks: tasks, Total: total, Page: 1}, nil
}

type scheduleItem struct {
	Name          string            `json:"name"`
	PriorityLevel models.Priority   `json:"priorityLevel"`
	EstimatedTime int               `json:"estimatedTime"`
	Status        models.TaskStatus `json:"status"`
	Deadline      time.Time         `json:"deadline"`
}

// AnalyzeSchedule asks assistant to comment upcoming tasks
func (s *TaskService) AnalyzeSchedule(ctx context.Context, userID int64) (string, error) {
	if s.assistant == nil {
		return "", apperrors.ErrFeatureDisabled
	}

	now := s.now()
	tasks, _, err := s.tasks.ListTasksBetween(ctx, userID, now, now.Add(recentHorizon), analyzeLimit, 0)
	if err != nil {
		return "", err
	}

	items := make([]scheduleItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, scheduleItem{
			Name:          t.Name,
			PriorityLevel: t.PriorityLevel,
			EstimatedTime: t.EstimatedTime,
			Status:        t.Status,
			Deadline:      t.Deadline,
		})
	}

	return s.assistant.AnalyzeSchedule(ctx, items)
}

// Calendar month of t in UTC: its start and the start of the next one
func monthBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

func sanitized(p *bluemonday.Policy, s string) *string {
	clean := p.Sanitize(s)
	return &clean
}
