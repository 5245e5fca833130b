package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/handlers/render"
	"github.com/nkiryanov/studyplanner/internal/handlers/userctx"
	"github.com/nkiryanov/studyplanner/internal/logger"
	"github.com/nkiryanov/studyplanner/internal/models"
)

// Expected service errors and how they are shown to clients
var knownErrors = []struct {
	err     error
	status  int
	message string
}{
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{apperrors.ErrAccountInactive, http.StatusForbidden, "Account is not activated"},
	{apperrors.ErrTokenRevoked, http.StatusUnauthorized, "Token has been revoked"},
	{apperrors.ErrUnauthenticated, http.StatusUnauthorized, "Unauthorized"},
	{apperrors.ErrGoogleTokenInvalid, http.StatusUnauthorized, "Invalid Google token"},

	{apperrors.ErrUserAlreadyExists, http.StatusConflict, "User already exists"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{apperrors.ErrPasswordMismatch, http.StatusBadRequest, "Passwords do not match"},
	{apperrors.ErrOldPasswordRequired, http.StatusBadRequest, "Old password is required"},
	{apperrors.ErrOldPasswordInvalid, http.StatusBadRequest, "Old password is invalid"},
	{apperrors.ErrActivationTokenInvalid, http.StatusBadRequest, "Activation token is invalid"},

	{apperrors.ErrTaskNotFound, http.StatusNotFound, "Task not found"},
	{apperrors.ErrFocusSessionNotFound, http.StatusNotFound, "Focus session not found"},
	{apperrors.ErrFocusSessionExists, http.StatusConflict, "Focus session already exists"},
	{apperrors.ErrInvalidPage, http.StatusBadRequest, "Page must be 1 or higher"},
	{apperrors.ErrInvalidTimeRange, http.StatusBadRequest, "'from' must be before 'to'"},

	{apperrors.ErrFeatureDisabled, http.StatusServiceUnavailable, "Feature is not available"},
}

// Render service error. Unexpected errors are logged and hidden from client
func renderError(w http.ResponseWriter, r *http.Request, l logger.Logger, err error) {
	for _, known := range knownErrors {
		if errors.Is(err, known.err) {
			render.ServiceError(w, known.message, known.status)
			return
		}
	}

	log := logger.FromContext(r.Context(), l)
	switch {
	case errors.Is(err, apperrors.ErrLogoutNotGuaranteed):
		log.Error("logout not guaranteed", "error", err)
		render.ServiceError(w, "Logout could not be guaranteed", http.StatusInternalServerError)
	case errors.Is(err, apperrors.ErrDependencyUnavailable), errors.Is(err, context.DeadlineExceeded):
		log.Error("dependency unavailable", "error", err)
		render.ServiceError(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
	default:
		log.Error("request failed", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Identity set by auth middleware
func currentIdentity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	identity, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
	return identity, ok
}

// Positive integer path value
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		render.ServiceError(w, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
