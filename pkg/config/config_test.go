package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestInit_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Init(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 30, cfg.Dashboard.InListLimit)
	assert.Equal(t, 7*24*time.Hour, cfg.Storage.URLExpiry)
	assert.Equal(t, "survey.reconcile", cfg.Reqs.ReconcileRequestType)
}

func TestInit_FileThenEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	path := writeFile(t, "config.yaml", `
app:
  base_url: https://surveys.example.com
  timezone: Europe/Berlin
database:
  driver: mysql
  dsn: user:pass@tcp(db:3306)/surveys
storage:
  bucket: scans
  url_expiry: 1h
dashboard:
  in_list_limit: 10
`)

	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DELETE_CONCURRENCY", "2")

	cfg, err := Init(path)
	require.NoError(t, err)

	assert.Equal(t, "https://surveys.example.com", cfg.App.BaseURL)
	assert.Equal(t, "postgres", cfg.Database.Driver, "env overrides the file")
	assert.Equal(t, "user:pass@tcp(db:3306)/surveys", cfg.Database.DSN)
	assert.Equal(t, "scans", cfg.Storage.Bucket)
	assert.Equal(t, time.Hour, cfg.Storage.URLExpiry)
	assert.Equal(t, 10, cfg.Dashboard.InListLimit)
	assert.Equal(t, 2, cfg.Dashboard.DeleteConcurrency)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestInit_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REDIS_URL=redis://cache:6379/0\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("REDIS_URL") })

	cfg, err := Init("")
	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6379/0", cfg.Urls.Redis)
}

func TestInit_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "database:\n  driver: oracle\n"},
		{"zero in-list limit", "dashboard:\n  in_list_limit: 0\n"},
		{"bad timezone", "app:\n  timezone: Mars/Olympus\n"},
		{"broken yaml", "app: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Init(writeFile(t, "config.yaml", tt.body))
			assert.Error(t, err)
		})
	}
}
