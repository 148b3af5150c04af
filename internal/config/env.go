package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// APIKey guards the HTTP API. Empty disables the check.
	APIKey string `envconfig:"API_KEY"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".sprintly"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"STORAGE_S3_BUCKET"`
	S3Prefix string `envconfig:"STORAGE_S3_PREFIX" default:"sprintly/"`
	S3Region string `envconfig:"STORAGE_S3_REGION"`
	// SQL settings (used when Type == "sqlite" or "postgres")
	SQLitePath  string `envconfig:"STORAGE_SQLITE_PATH" default:".sprintly/sprintly.db"`
	PostgresDSN string `envconfig:"STORAGE_POSTGRES_DSN"`
	// Watch reloads tasks when the local storage file is edited externally.
	Watch bool `envconfig:"WATCH" default:"true"`
}

type GeminiEnv struct {
	APIKey  string        `envconfig:"GEMINI_API_KEY"`
	Model   string        `envconfig:"GEMINI_MODEL" default:"gemini-3-flash-preview"`
	BaseURL string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	Timeout time.Duration `envconfig:"GEMINI_TIMEOUT" default:"30s"`
}

type PreferenceEnv struct {
	DefaultTheme string `envconfig:"DEFAULT_THEME" default:"light"`
}

type Env struct {
	BaseEnv
	StorageEnv
	GeminiEnv
	PreferenceEnv
}

const (
	StorageTypeLocal    = "local"
	StorageTypeS3       = "s3"
	StorageTypeSQLite   = "sqlite"
	StorageTypePostgres = "postgres"
	StorageTypeMemory   = "memory"
)

const namespace = "SPRINTLY"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

func (e *Env) validate() error {
	switch e.StorageEnv.Type {
	case StorageTypeLocal, StorageTypeMemory, StorageTypeSQLite:
	case StorageTypeS3:
		if e.S3Bucket == "" {
			return fmt.Errorf("%s_STORAGE_S3_BUCKET is required for s3 storage", namespace)
		}
	case StorageTypePostgres:
		if e.PostgresDSN == "" {
			return fmt.Errorf("%s_STORAGE_POSTGRES_DSN is required for postgres storage", namespace)
		}
	default:
		return fmt.Errorf("unknown storage type %q", e.StorageEnv.Type)
	}
	if e.DefaultTheme != "light" && e.DefaultTheme != "dark" {
		return fmt.Errorf("unknown default theme %q", e.DefaultTheme)
	}
	return nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// IsLocal reports whether logs should be rendered for a terminal.
func (e *BaseEnv) IsLocal() bool {
	return e.Env == "local"
}
