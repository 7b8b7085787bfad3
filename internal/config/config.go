package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm"        validate:"required"`
	Quota      QuotaConfig      `mapstructure:"quota"      validate:"required"`
	Worker     WorkerConfig     `mapstructure:"worker"     validate:"required"`
	Processing ProcessingConfig `mapstructure:"processing" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`
}

// QuotaConfig bounds the shared daily budget for external LLM calls.
type QuotaConfig struct {
	// DailyLimit is the number of LLM requests allowed per day across
	// all jobs in this process.
	DailyLimit int `mapstructure:"daily_limit" validate:"required,gt=0"`

	// MinRequestInterval is the minimum spacing between consecutive LLM calls.
	MinRequestInterval time.Duration `mapstructure:"min_request_interval" validate:"min=0"`
}

// WorkerConfig controls the background job worker runtime.
type WorkerConfig struct {
	Count             int           `mapstructure:"count"              validate:"required,gt=0"`
	PollInterval      time.Duration `mapstructure:"poll_interval"      validate:"required"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" validate:"required"`

	// HeartbeatTimeout is how stale a processing job's heartbeat must be
	// before the job is eligible for reclaim back to queued.
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat_timeout" validate:"required"`

	// ReclaimCheckInterval defines how often the reclaim monitor scans
	// for heartbeat-stale jobs. If zero, a default is applied.
	ReclaimCheckInterval time.Duration `mapstructure:"reclaim_check_interval"`

	// WakeQueueSize is the buffer size of the submit wake-up channel.
	WakeQueueSize int `mapstructure:"wake_queue_size" validate:"required,gt=0"`
}

// ProcessingConfig bounds what jobs the scheduler accepts.
type ProcessingConfig struct {
	MaxFileSizeBytes    int64 `mapstructure:"max_file_size_bytes"    validate:"required,gt=0"`
	MaxActiveJobs       int   `mapstructure:"max_active_jobs"        validate:"required,gt=0"`
	DefaultChunkTokens  int   `mapstructure:"default_chunk_tokens"   validate:"required,gt=0"`
	PagesPerChunk       int   `mapstructure:"pages_per_chunk"        validate:"required,gt=0"`
	EstimatedPagesPerMB int   `mapstructure:"estimated_pages_per_mb" validate:"required,gt=0"`
}
