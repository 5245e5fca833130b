package google

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/models"
)

func startUserInfo(t *testing.T, status int, body string) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestClient_UserInfo(t *testing.T) {
	t.Run("profile ok", func(t *testing.T) {
		url := startUserInfo(t, http.StatusOK, `{
			"sub": "1234",
			"email": "a@gmail.com",
			"name": "Alice",
			"picture": "https://lh3.googleusercontent.com/a.png",
			"email_verified": true
		}`)
		c := New(Config{UserInfoURL: url})

		profile, err := c.UserInfo(t.Context(), "good-token")

		require.NoError(t, err)
		require.Equal(t, models.GoogleProfile{
			Subject: "1234",
			Email:   "a@gmail.com",
			Name:    "Alice",
			Picture: "https://lh3.googleusercontent.com/a.png",
		}, profile)
	})

	tests := []struct {
		name        string
		token       string
		status      int
		body        string
		expectedErr error
	}{
		{"rejected token", "bad-token", http.StatusOK, `{}`, apperrors.ErrGoogleTokenInvalid},
		{"empty token", "", http.StatusOK, `{}`, apperrors.ErrGoogleTokenInvalid},
		{"no email scope", "good-token", http.StatusOK, `{"sub": "1234"}`, apperrors.ErrGoogleTokenInvalid},
		{"google is down", "good-token", http.StatusBadGateway, ``, apperrors.ErrDependencyUnavailable},
		{"garbage response", "good-token", http.StatusOK, `not json`, apperrors.ErrDependencyUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := startUserInfo(t, tt.status, tt.body)
			c := New(Config{UserInfoURL: url})

			_, err := c.UserInfo(t.Context(), tt.token)

			require.ErrorIs(t, err, tt.expectedErr)
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := New(Config{UserInfoURL: url}).UserInfo(t.Context(), "good-token")

		require.ErrorIs(t, err, apperrors.ErrDependencyUnavailable)
	})

	t.Run("default url", func(t *testing.T) {
		require.Equal(t, DefaultUserInfoURL, New(Config{}).userInfoURL)
	})
}
