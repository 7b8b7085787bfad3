// Package config defines the application configuration structure and
// loading logic. Configuration is sourced from environment variables
// (CARDFORGE_ prefix) and an optional config.yaml, then validated.
package config
