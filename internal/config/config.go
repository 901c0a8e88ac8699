package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// Env selects runtime behavior that differs between environments,
	// such as whether 500 responses carry error detail.
	Env string `mapstructure:"env" validate:"required,oneof=development production test"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c ServerConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	// JWTSecret signs access tokens and, when JWTRefreshSecret is empty,
	// refresh tokens as well.
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`

	// JWTRefreshSecret optionally signs refresh tokens with a key distinct
	// from the access token key. Empty means fall back to JWTSecret.
	JWTRefreshSecret string `mapstructure:"jwt_refresh_secret" validate:"omitempty,min=32"`

	// AccessTokenLifetimeMinutes is the access token lifetime. Defaults to 15.
	AccessTokenLifetimeMinutes int `mapstructure:"access_token_lifetime_minutes" validate:"required,gt=0"`

	// RefreshTokenLifetimeMinutes is the refresh token lifetime. Defaults to
	// 10080 (7 days).
	RefreshTokenLifetimeMinutes int `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
}
