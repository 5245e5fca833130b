package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/nkiryanov/studyplanner/internal/apperrors"
	"github.com/nkiryanov/studyplanner/internal/handlers/render"
	"github.com/nkiryanov/studyplanner/internal/handlers/userctx"
	"github.com/nkiryanov/studyplanner/internal/logger"
	"github.com/nkiryanov/studyplanner/internal/models"
)

type authenticator interface {
	Authenticate(ctx context.Context, header string) (models.Identity, error)
}

// AuthMiddleware lets through only requests with valid not revoked bearer token
// Identity of the caller is put into request context
func AuthMiddleware(a authenticator, l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
			switch {
			case errors.Is(err, apperrors.ErrTokenRevoked):
				render.ServiceError(w, "Token has been revoked", http.StatusUnauthorized)
				return
			case errors.Is(err, apperrors.ErrDependencyUnavailable):
				logger.FromContext(r.Context(), l).Error("can't authenticate request", "error", err)
				render.ServiceError(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
				return
			case err != nil:
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
