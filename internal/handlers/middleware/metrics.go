package middleware

import (
	"net/http"
	"time"
)

type requestRecorder interface {
	RecordRequest(method string, statusCode int, duration time.Duration)
}

func Metrics(rec requestRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := newStatusWriter(w)

			next.ServeHTTP(sw, r)

			rec.RecordRequest(r.Method, sw.status, time.Since(start))
		})
	}
}
