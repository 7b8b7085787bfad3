package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file; env vars alone are sufficient.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("CARDFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only surfaces keys viper already knows about to
	// Unmarshal, and the secrets deliberately have no defaults, so they
	// must be bound explicitly.
	for _, key := range []string{"database.url", "auth.jwt_secret", "llm.gemini_api_key"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env var for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values for everything that has a sane
// standalone default. Secrets (database URL, JWT secret, API key) have none
// and must be provided by the environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("llm.model_name", "gemini-2.5-flash")

	// Free-tier Gemini allows 250 requests per day; keep headroom.
	v.SetDefault("quota.daily_limit", 240)
	v.SetDefault("quota.min_request_interval", 100*time.Millisecond)

	v.SetDefault("worker.count", 2)
	v.SetDefault("worker.poll_interval", 5*time.Second)
	v.SetDefault("worker.heartbeat_interval", 15*time.Second)
	v.SetDefault("worker.heartbeat_timeout", 2*time.Minute)
	v.SetDefault("worker.reclaim_check_interval", time.Minute)
	v.SetDefault("worker.wake_queue_size", 100)

	v.SetDefault("processing.max_file_size_bytes", int64(50*1024*1024))
	v.SetDefault("processing.max_active_jobs", 3)
	v.SetDefault("processing.default_chunk_tokens", 4000)
	v.SetDefault("processing.pages_per_chunk", 4)
	v.SetDefault("processing.estimated_pages_per_mb", 20)
}
