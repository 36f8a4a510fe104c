package config

import (
	"os"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	JWTSigningKey string
	TokenTTL      time.Duration
}

// AvailabilityCacheTTL bounds how stale the read-side inventory snapshot may be.
var AvailabilityCacheTTL = 30 * time.Second

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("BLOODBANK_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSigningKey: jwtSigningKey,
		TokenTTL:      7 * 24 * time.Hour,
	}
}
