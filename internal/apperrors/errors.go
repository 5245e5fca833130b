package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists      = errors.New("user already exists")
	ErrUserNotFound           = errors.New("user not found")
	ErrPasswordMismatch       = errors.New("passwords do not match")
	ErrOldPasswordRequired    = errors.New("old password not provided")
	ErrOldPasswordInvalid     = errors.New("old password does not match")
	ErrActivationTokenInvalid = errors.New("activation token is invalid or used")

	// Authentication and session lifecycle
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountInactive     = errors.New("account is not activated")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrTokenRevoked        = errors.New("token has been revoked")
	ErrTokenInvalid        = errors.New("token is invalid")
	ErrTokenExpired        = errors.New("token is expired")
	ErrLogoutNotGuaranteed = errors.New("logout could not be guaranteed")
	ErrGoogleTokenInvalid  = errors.New("google access token rejected")

	ErrTaskNotFound         = errors.New("task not found")
	ErrFocusSessionNotFound = errors.New("focus session not found")
	ErrFocusSessionExists   = errors.New("focus session already exists for this task")
	ErrInvalidPage          = errors.New("page number must be 1 or higher")
	ErrInvalidTimeRange     = errors.New("range start must be before its end")

	// Infrastructure
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrFeatureDisabled       = errors.New("feature is not configured")
)
