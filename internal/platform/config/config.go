// Copyright (c) 2026 Catalyst. All rights reserved.
// Author: platform@catalysthq.io

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, TokenService) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Catalyst API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"3001"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis), auth endpoint admission control.
	RedisURL string `env:"REDIS_URL,required"`

	// Token signing secrets. Access and refresh tokens MUST be signed with
	// independent secrets so that one kind can never verify as the other.
	JWTSecret        string `env:"JWT_SECRET,required"`
	JWTRefreshSecret string `env:"JWT_REFRESH_SECRET,required"`

	// Token lifetimes
	AccessTokenTTL  time.Duration `env:"JWT_EXPIRES_IN"         envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"JWT_REFRESH_EXPIRES_IN" envDefault:"168h"`

	// Auth endpoint rate limiting (fixed window, per IP)
	AuthRateLimitWindow time.Duration `env:"AUTH_RATE_LIMIT_WINDOW" envDefault:"15m"`
	AuthRateLimitMax    int           `env:"AUTH_RATE_LIMIT_MAX"    envDefault:"100"`

	// Cross-Origin Resource Sharing
	FrontendOrigin string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigin returns the browser origin permitted by CORS and the
// WebSocket handshake check.
func (c *Config) AllowedOrigin() string {
	return c.FrontendOrigin
}
