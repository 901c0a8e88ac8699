package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional .env
// file. Environment variables take precedence over .env values. Returns a
// populated Config struct or an error if loading or validation fails.
//
// All settings use the TASKIFY_ prefix with underscores for nesting, e.g.
// TASKIFY_SERVER_PORT, TASKIFY_DATABASE_URL, TASKIFY_AUTH_JWT_SECRET.
func Load() (*Config, error) {
	// Populate the process environment from .env when present. A missing
	// file is not an error; production deployments set real env vars.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.env", "development")
	v.SetDefault("auth.access_token_lifetime_minutes", 15)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 7*24*60)

	v.SetEnvPrefix("TASKIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv alone does not surface env-only keys through Unmarshal,
	// so bind each known key explicitly.
	for _, key := range []string{
		"server.port",
		"server.log_level",
		"server.env",
		"database.url",
		"auth.jwt_secret",
		"auth.jwt_refresh_secret",
		"auth.access_token_lifetime_minutes",
		"auth.refresh_token_lifetime_minutes",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
