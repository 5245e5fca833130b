package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/studyplanner/internal/logger"
)

func TestRequestID(t *testing.T) {
	// Handler logging with the logger found in request context
	handler := func(fallback logger.Logger) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context(), fallback).Info("inside")
		})
	}

	t.Run("generate id", func(t *testing.T) {
		l, buf := newBufferLogger()
		h := RequestID(l)(handler(logger.NewNoOpLogger()))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err, "generated id should be uuid")

		logged := records(t, buf)
		require.Len(t, logged, 1, "handler should use logger from context")
		require.Equal(t, id, logged[0]["request_id"])
	})

	t.Run("keep client id", func(t *testing.T) {
		l, _ := newBufferLogger()
		h := RequestID(l)(handler(l))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, "client-id")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		require.Equal(t, "client-id", w.Header().Get(RequestIDHeader))
	})

	t.Run("keep client id of safe chars", func(t *testing.T) {
		l, _ := newBufferLogger()
		h := RequestID(l)(handler(l))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, "req_1.A-z")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		require.Equal(t, "req_1.A-z", w.Header().Get(RequestIDHeader))
	})

	tests := []struct {
		name string
		id   string
	}{
		{"too long", strings.Repeat("x", 65)},
		{"spaces", "id with spaces"},
		{"quotes", `id"injected=1`},
		{"control chars", "id\x1b[31m"},
		{"non ascii", "идентификатор"},
	}
	for _, tt := range tests {
		t.Run(tt.name+" client id replaced", func(t *testing.T) {
			l, buf := newBufferLogger()
			h := RequestID(l)(handler(l))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set(RequestIDHeader, tt.id)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			id := w.Header().Get(RequestIDHeader)
			_, err := uuid.Parse(id)
			require.NoError(t, err, "unsafe client id should be replaced with uuid")
			logged := records(t, buf)
			require.Len(t, logged, 1)
			require.Equal(t, id, logged[0]["request_id"])
		})
	}
}
