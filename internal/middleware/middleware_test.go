package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"hermes/internal/middleware"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestOwner тестирует извлечение пользователя из запроса
func TestOwner(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		name           string
		header         string
		query          string
		expectedStatus int
	}{
		{name: "success - header", header: owner.String(), expectedStatus: http.StatusOK},
		{name: "success - query", query: "?user_id=" + owner.String(), expectedStatus: http.StatusOK},
		{name: "error - missing", expectedStatus: http.StatusUnauthorized},
		{name: "error - not uuid", header: "admin", expectedStatus: http.StatusUnauthorized},
		{name: "error - nil uuid", header: uuid.Nil.String(), expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got uuid.UUID
			handler := middleware.Owner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = middleware.GetOwner(r.Context())
			}))

			req := httptest.NewRequest("GET", "/projects"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set(middleware.OwnerHeader, tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, owner, got)
			}
		})
	}
}

// TestRateLimit тестирует ограничение частоты запросов
func TestRateLimit(t *testing.T) {
	handler := middleware.RateLimit(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

// TestRequestID тестирует проброс идентификатора запроса
func TestRequestID(t *testing.T) {
	var got string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = middleware.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "req-1", got)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
}
