package auth

import (
	"time"

	"github.com/taskify/taskify-api/internal/config"
)

// DefaultTestAuthConfig returns a standard auth configuration suitable for
// tests. This is the single source of truth for JWT test config.
func DefaultTestAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:                   "test-jwt-secret-that-is-32-chars-long",
		AccessTokenLifetimeMinutes:  15,
		RefreshTokenLifetimeMinutes: 7 * 24 * 60,
	}
}

// NewTestJWTService creates a JWT service with the given secrets, lifetimes
// and a fixed time function so tests can assert on exact expiry values.
// An empty refreshSecret falls back to the access secret, mirroring the
// production constructor.
func NewTestJWTService(
	secret, refreshSecret string,
	accessLifetime, refreshLifetime time.Duration,
	timeFunc func() time.Time,
) JWTService {
	if refreshSecret == "" {
		refreshSecret = secret
	}
	if timeFunc == nil {
		timeFunc = time.Now
	}
	return &hmacJWTService{
		signingKey:        []byte(secret),
		refreshSigningKey: []byte(refreshSecret),
		tokenLifetime:     accessLifetime,
		refreshLifetime:   refreshLifetime,
		timeFunc:          timeFunc,
		clockSkew:         0, // No leeway in tests; expiry boundaries must be exact
	}
}
