package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPPort          = "8080"
	defaultAppEnv            = "development"
	defaultLogLevel          = "info"
	defaultTemporalAddress   = "localhost:7233"
	defaultTemporalNS        = "default"
	defaultTaskQueue         = "office-action-task-queue"
	defaultMinioEndpoint     = "localhost:9000"
	defaultMinioUploadBucket = "claims-uploads"
	defaultMinioDraftBucket  = "response-drafts"
	defaultPollConcurrency   = 8
)

type Config struct {
	HTTPPort              string
	AppEnv                string
	LogLevel              string
	PostgresDSN           string
	BackendBaseURL        string
	BackendTimeoutSec     int
	TemporalAddress       string
	TemporalNamespace     string
	TemporalTaskQueue     string
	MinioEndpoint         string
	MinioAccessKey        string
	MinioSecretKey        string
	MinioUploadBucket     string
	MinioDraftBucket      string
	MinioUseSSL           bool
	WorkflowIDPrefix      string
	AllowedUploadBytes    int64
	StatusPollConcurrency int
	MetricsEnabled        bool
}

func Load() (Config, error) {
	cfg := Config{
		HTTPPort:              getenv("HTTP_PORT", defaultHTTPPort),
		AppEnv:                getenv("APP_ENV", defaultAppEnv),
		LogLevel:              getenv("LOG_LEVEL", defaultLogLevel),
		PostgresDSN:           os.Getenv("POSTGRES_DSN"),
		BackendBaseURL:        os.Getenv("BACKEND_BASE_URL"),
		BackendTimeoutSec:     getenvInt("BACKEND_TIMEOUT_SEC", 0),
		TemporalAddress:       getenv("TEMPORAL_ADDRESS", defaultTemporalAddress),
		TemporalNamespace:     getenv("TEMPORAL_NAMESPACE", defaultTemporalNS),
		TemporalTaskQueue:     getenv("TEMPORAL_TASK_QUEUE", defaultTaskQueue),
		MinioEndpoint:         getenv("MINIO_ENDPOINT", defaultMinioEndpoint),
		MinioAccessKey:        os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:        os.Getenv("MINIO_SECRET_KEY"),
		MinioUploadBucket:     getenv("MINIO_UPLOAD_BUCKET", defaultMinioUploadBucket),
		MinioDraftBucket:      getenv("MINIO_DRAFT_BUCKET", defaultMinioDraftBucket),
		MinioUseSSL:           getenvBool("MINIO_USE_SSL", false),
		WorkflowIDPrefix:      getenv("WORKFLOW_ID_PREFIX", "office-action"),
		AllowedUploadBytes:    int64(getenvInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		StatusPollConcurrency: getenvInt("STATUS_POLL_CONCURRENCY", defaultPollConcurrency),
		MetricsEnabled:        getenvBool("METRICS_ENABLED", true),
	}

	if cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.BackendBaseURL == "" {
		return Config{}, fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if cfg.BackendTimeoutSec < 0 {
		return Config{}, fmt.Errorf("BACKEND_TIMEOUT_SEC must not be negative")
	}

	return cfg, nil
}

// BackendTimeout is zero when backend calls should not be bounded by the
// HTTP client.
func (c Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutSec) * time.Second
}

// Development selects console logging at debug level.
func (c Config) Development() bool {
	switch strings.ToLower(strings.TrimSpace(c.AppEnv)) {
	case "development", "dev", "local":
		return true
	default:
		return false
	}
}

func getenv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
