package middleware

import (
	"net/http"
	"time"

	"github.com/nkiryanov/studyplanner/internal/logger"
)

// LoggerMiddleware writes one line per request
// Server errors are logged as errors, client errors as warnings
func LoggerMiddleware(l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)

			next.ServeHTTP(sw, r)

			log := logger.FromContext(r.Context(), l).Info
			switch {
			case sw.status >= http.StatusInternalServerError:
				log = logger.FromContext(r.Context(), l).Error
			case sw.status >= http.StatusBadRequest:
				log = logger.FromContext(r.Context(), l).Warn
			}

			log(
				"got HTTP request",
				"method", r.Method,
				"uri", r.RequestURI,
				"duration", time.Since(start),
				"status", sw.status,
				"size", sw.size,
			)
		})
	}
}
