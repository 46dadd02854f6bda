package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hermes/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, "inmemory", cfg.Repository.Type)
	assert.Equal(t, "hermes", cfg.Store.Prefix)
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddr())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
repository:
  type: sqlite
  sqlite_path: /tmp/hermes-test.db
backup:
  enabled: true
  interval: 30m
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Repository.Type)
	assert.Equal(t, "/tmp/hermes-test.db", cfg.Repository.SQLitePath)
	assert.True(t, cfg.Backup.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Backup.Interval)
	// не указанные в файле поля сохраняют значения по умолчанию
	assert.Equal(t, "hermes", cfg.Store.Prefix)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "repository:\n  type: inmemory\n")
	t.Setenv("HERMES_REPOSITORY", "postgres")
	t.Setenv("HERMES_DATABASE_URL", "postgres://u:p@localhost:5432/hermes")
	t.Setenv("HERMES_DEVELOPMENT", "false")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Repository.Type)
	assert.Equal(t, "postgres://u:p@localhost:5432/hermes", cfg.Database.URL)
	assert.False(t, cfg.Logging.Development)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*config.Config) {}},
		{name: "postgres without url", mutate: func(c *config.Config) { c.Repository.Type = "postgres" }, wantErr: true},
		{name: "mongo without uri", mutate: func(c *config.Config) { c.Repository.Type = "mongo" }, wantErr: true},
		{name: "unknown repository", mutate: func(c *config.Config) { c.Repository.Type = "redis" }, wantErr: true},
		{name: "s3 without bucket", mutate: func(c *config.Config) { c.Files.Type = "s3" }, wantErr: true},
		{name: "empty prefix", mutate: func(c *config.Config) { c.Store.Prefix = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
