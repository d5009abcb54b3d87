package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://oa:oa@localhost:5432/oa?sslmode=disable")
	t.Setenv("BACKEND_BASE_URL", "http://backend.local/api")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, "office-action-task-queue", cfg.TemporalTaskQueue)
	require.Equal(t, "claims-uploads", cfg.MinioUploadBucket)
	require.Equal(t, "response-drafts", cfg.MinioDraftBucket)
	require.Equal(t, int64(10*1024*1024), cfg.AllowedUploadBytes)
	require.Equal(t, 8, cfg.StatusPollConcurrency)
	require.True(t, cfg.MetricsEnabled)
	require.True(t, cfg.Development())
	require.Zero(t, cfg.BackendTimeout())
}

func TestLoadRequiresStoreAndBackend(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("BACKEND_BASE_URL", "http://backend.local/api")
	_, err := Load()
	require.ErrorContains(t, err, "POSTGRES_DSN")

	t.Setenv("POSTGRES_DSN", "postgres://localhost/oa")
	t.Setenv("BACKEND_BASE_URL", "")
	_, err = Load()
	require.ErrorContains(t, err, "BACKEND_BASE_URL")
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("BACKEND_TIMEOUT_SEC", "45")
	t.Setenv("STATUS_POLL_CONCURRENCY", "not-a-number")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.Development())
	require.Equal(t, 45*time.Second, cfg.BackendTimeout())
	require.Equal(t, 8, cfg.StatusPollConcurrency)
	require.False(t, cfg.MetricsEnabled)
	require.True(t, cfg.MinioUseSSL)
}

func TestDevelopmentEnvironments(t *testing.T) {
	for env, want := range map[string]bool{
		"development": true,
		"Dev":         true,
		" local ":     true,
		"staging":     false,
		"production":  false,
	} {
		require.Equal(t, want, Config{AppEnv: env}.Development(), env)
	}
}

func TestLoadRejectsNegativeTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("BACKEND_TIMEOUT_SEC", "-1")

	_, err := Load()
	require.Error(t, err)
}
