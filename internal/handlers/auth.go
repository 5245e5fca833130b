package handlers

import (
	"net/http"
	"time"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/handlers/render"
	"github.com/nkiryanov/studyplanner/internal/logger"
	"github.com/nkiryanov/studyplanner/internal/models"
	"github.com/nkiryanov/studyplanner/internal/service/auth"
)

type sessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Profile   models.Profile `json:"profile"`
}

func newSessionResponse(s models.Session) sessionResponse {
	return sessionResponse{
		Token:     s.Token.Value,
		ExpiresAt: s.Token.ExpiresAt,
		Profile:   s.User.Profile(),
	}
}

type googleTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

func handleLogin(authService authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		session, err := authService.Login(r.Context(), data.Email, data.Password)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, newSessionResponse(session))
	})
}

// Logout only decodes the token: expired or already revoked tokens are fine
func handleLogout(authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			renderError(w, r, l, apperrors.ErrUnauthenticated)
			return
		}

		err := authService.Logout(r.Context(), token)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.Message(w, "Successfully logged out", http.StatusOK)
	})
}

func handleProfile() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := currentIdentity(w, r)
		if !ok {
			return
		}
		render.JSON(w, identity)
	})
}

// Login user by Google access token. Account has to be created with google signup first
func handleGoogleLogin(google googleClient, authService authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[googleTokenRequest](w, r)
		if err != nil {
			return
		}

		profile, err := google.UserInfo(r.Context(), data.Token)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		session, err := authService.LoginWithGoogle(r.Context(), profile.Email)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSON(w, newSessionResponse(session))
	})
}

func handleGoogleSignup(google googleClient, userService userService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[googleTokenRequest](w, r)
		if err != nil {
			return
		}

		profile, err := google.UserInfo(r.Context(), data.Token)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		user, err := userService.CreateGoogleAccount(r.Context(), profile)
		if err != nil {
			renderError(w, r, l, err)
			return
		}

		render.JSONWithStatus(w, user.Profile(), http.StatusCreated)
	})
}
