package handlers

import (
	"net/http"
	"strconv"

	"github.com/nkiryanov/studyplanner/internal/handlers/render"
	"github.com/nkiryanov/studyplanner/internal/logger"
	"github.com/nkiryanov/studyplanner/internal/models"
)

func handleCreateFocusSession(focusService focusService, l logger.Logger) http.Handler {
	type request struct {
		TaskID int64              `json:"taskId" validate:"required,gt=0"`
		Status models.FocusStatus `json:"status" validate:"omitempty,focusstatus"`
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

		status := data.Status
		if status == "" {
			status = models.FocusIdle
		}

		session, err := focusService.Create(r.Context(), identity.UserID, data.TaskID, status)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSONWithStatus(w, session, http.StatusCreated)
	})
}

// Add focused seconds to the session of the task
func handleUpdateFocusSession(focusService focusService, l logger.Logger) http.Handler {
	type request struct {
		TaskID         int64              `json:"taskId" validate:"required,gt=0"`
		CompletionTime int64              `json:"completionTime" validate:"min=0"`
		Status         models.FocusStatus `json:"status" validate:"required,focusstatus"`
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

		session, err := focusService.Update(r.Context(), identity.UserID, data.TaskID, data.CompletionTime, data.Status)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, session)
	})
}

func handleGetFocusSession(focusService focusService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}
		sessionID, ok := pathID(w, r, "id")
		if !ok {
			return
		}

		session, err := focusService.Get(r.Context(), identity.UserID, sessionID)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, session)
	})
}

func handleFocusSummary(focusService focusService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}
		year, ok := pathYear(w, r)
		if !ok {
			return
		}

		summary, err := focusService.Summary(r.Context(), identity.UserID, year)
		if err != nil {
			renderError(w, r, l, err)
			return
		}
		if summary == nil {
			summary = []models.FocusSummary{}
		}

		render.JSON(w, summary)
	})
}

func handleFocusFeedback(focusService focusService, l logger.Logger) http.Handler {
	type response struct {
		Feedback string `json:"feedback"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}
		year, ok := pathYear(w, r)
		if !ok {
			return
		}

		feedback, err := focusService.Feedback(r.Context(), identity.UserID, year)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, response{Feedback: feedback})
	})
}

func pathYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 1 || year > 9999 {
		render.ServiceError(w, "Invalid year", http.StatusBadRequest)
		return 0, false
	}
	return year, true
}
