package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"hermes/internal/app"
	"hermes/internal/config"
	"hermes/internal/middleware"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, repoType string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = "0"
	cfg.Logging.Development = true
	cfg.Repository.Type = repoType
	cfg.Repository.SQLitePath = filepath.Join(t.TempDir(), "hermes.db")
	cfg.Files.Dir = t.TempDir()
	return cfg
}

// TestApp_Init тестирует сборку приложения на разных хранилищах
func TestApp_Init(t *testing.T) {
	tests := []struct {
		name     string
		repoType string
	}{
		{name: "success - inmemory", repoType: "inmemory"},
		{name: "success - sqlite", repoType: "sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			application := app.New(testConfig(t, tt.repoType))
			_, err := application.Init(context.Background())
			require.NoError(t, err)
			t.Cleanup(application.Shutdown)

			req := httptest.NewRequest("GET", "/health", nil)
			w := httptest.NewRecorder()
			application.Router().ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

			req = httptest.NewRequest("GET", "/api/templates", nil)
			req.Header.Set(middleware.OwnerHeader, uuid.New().String())
			w = httptest.NewRecorder()
			application.Router().ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"custom":false`)
		})
	}
}

// TestApp_InitUnknownRepository тестирует ошибку конфигурации хранилища
func TestApp_InitUnknownRepository(t *testing.T) {
	application := app.New(testConfig(t, "redis"))
	_, err := application.Init(context.Background())
	assert.Error(t, err)
	application.Shutdown()
}

// TestApp_Run тестирует остановку по контексту
func TestApp_Run(t *testing.T) {
	cfg := testConfig(t, "inmemory")
	cfg.Server.Host = "127.0.0.1"
	cfg.Backup.Enabled = true

	application := app.New(cfg)
	_, err := application.Init(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, application.Run(ctx))
}
