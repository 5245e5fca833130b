package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/handlers/render"
	"github.com/nkiryanov/studyplanner/internal/logger"
	"github.com/nkiryanov/studyplanner/internal/models"
	"github.com/nkiryanov/studyplanner/internal/repository"
	"github.com/nkiryanov/studyplanner/internal/service/task"
)

type tasksResponse struct {
	Data  []models.Task `json:"data"`
	Total int           `json:"total"`
}

type taskPageResponse struct {
	Data  []models.Task `json:"data"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
}

// Never render null instead of empty list
func taskList(tasks []models.Task) []models.Task {
	if tasks == nil {
		return []models.Task{}
	}
	return tasks
}

func handleCreateTask(taskService taskService, l logger.Logger) http.Handler {
	type request struct {
		Name          string            `json:"name" validate:"required,max=200"`
		Description   string            `json:"description" validate:"max=5000"`
		PriorityLevel models.Priority   `json:"priorityLevel" validate:"required,priority"`
		EstimatedTime int               `json:"estimatedTime" validate:"min=0"`
		Status        models.TaskStatus `json:"status" validate:"omitempty,taskstatus"`
		Deadline      time.Time         `json:"deadline" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		t, err := taskService.Create(r.Context(), identity.UserID, task.CreateParams{
			Name:          data.Name,
			Description:   data.Description,
			PriorityLevel: data.PriorityLevel,
			EstimatedTime: data.EstimatedTime,
			Status:        data.Status,
			Deadline:      data.Deadline,
		})
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSONWithStatus(w, t, http.StatusCreated)
	})
}

func handleGetTask(taskService taskService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}
		taskID, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		t, err := taskService.Get(r.Context(), identity.UserID, taskID)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, t)
	})
}

// Partial update: omitted fields are kept
func handleUpdateTask(taskService taskService, l logger.Logger) http.Handler {
	type request struct {
		Name          *string            `json:"name" validate:"omitempty,min=1,max=200"`
		Description   *string            `json:"description" validate:"omitempty,max=5000"`
		PriorityLevel *models.Priority   `json:"priorityLevel" validate:"omitempty,priority"`
		EstimatedTime *int               `json:"estimatedTime" validate:"omitempty,min=0"`
		Status        *models.TaskStatus `json:"status" validate:"omitempty,taskstatus"`
		Deadline      *time.Time         `json:"deadline"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}
		taskID, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		t, err := taskService.Update(r.Context(), identity.UserID, taskID, repository.UpdateTaskParams{
			Name:          data.Name,
			Description:   data.Description,
			PriorityLevel: data.PriorityLevel,
			EstimatedTime: data.EstimatedTime,
			Status:        data.Status,
			Deadline:      data.Deadline,
		})
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, t)
	})
}

func handleDeleteTask(taskService taskService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}
		taskID, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		err := taskService.Delete(r.Context(), identity.UserID, taskID)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.Message(w, "Task deleted", http.StatusOK)
	})
}

func handleRecentTasks(taskService taskService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}

		page, err := taskService.Recent(r.Context(), identity.UserID)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, tasksResponse{Data: taskList(page.Tasks), Total: page.Total})
	})
}

type pagedTasksFunc func(r *http.Request, userID int64, page int) (models.TaskPage, error)

func handleThisMonthTasks(taskService taskService, l logger.Logger) http.Handler {
	return handlePagedTasks(l, func(r *http.Request, userID int64, page int) (models.TaskPage, error) {
		return taskService.ThisMonth(r.Context(), userID, page)
	})
}

func handleOtherMonthsTasks(taskService taskService, l logger.Logger) http.Handler {
	return handlePagedTasks(l, func(r *http.Request, userID int64, page int) (models.TaskPage, error) {
		return taskService.OtherMonths(r.Context(), userID, page)
	})
}

// Serve '?page=N' listing. First page if not set
func handlePagedTasks(l logger.Logger, list pagedTasksFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}

		page := 1
		if raw := r.URL.Query().Get("page"); raw != "" {
			var err error
			page, err = strconv.Atoi(raw)
			if err != nil {
				renderError(w, r, l, apperrors.ErrInvalidPage)
				return
			}
		}

		result, err := list(r, identity.UserID, page)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, taskPageResponse{Data: taskList(result.Tasks), Total: result.Total, Page: result.Page})
	})
}

// List tasks in '?from=&to=' RFC3339 bounds
func handleRangeTasks(taskService taskService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}

		query := r.URL.Query()
		from, err := time.Parse(time.RFC3339, query.Get("from"))
		if err != nil {
			render.ServiceError(w, "Invalid 'from': RFC3339 time expected", http.StatusBadRequest)
			return
		}
		to, err := time.Parse(time.RFC3339, query.Get("to"))
		if err != nil {
			render.ServiceError(w, "Invalid 'to': RFC3339 time expected", http.StatusBadRequest)
			return
		}

		page, err := taskService.Range(r.Context(), identity.UserID, from, to)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, tasksResponse{Data: taskList(page.Tasks), Total: page.Total})
	})
}

func handleAnalyzeSchedule(taskService taskService, l logger.Logger) http.Handler {
	type response struct {
		Analysis string `json:"analysis"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}

		analysis, err := taskService.AnalyzeSchedule(r.Context(), identity.UserID)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, response{Analysis: analysis})
	})
}
