// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

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
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Fail-Fast: Outside development a missing secret aborts startup.
*/
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// # Environments

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// devSessionSecret is only ever used when ENVIRONMENT=development.
const devSessionSecret = "folio-development-only-session-secret"

// # Configuration Schema

// Config holds all runtime configuration for the Folio API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL). DatabaseURL wins over the parts.
	DatabaseURL      string `env:"DATABASE_URL"`
	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"admin"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresDB       string `env:"POSTGRES_DB"       envDefault:"folio"`

	// Key-Value Cache (Redis). Optional; enables login throttling.
	RedisURL string `env:"REDIS_URL"`

	// Session signing and password hashing
	SessionSecret string `env:"SESSION_SECRET"`
	BcryptCost    int    `env:"BCRYPT_COST" envDefault:"10"`

	// Login throttling
	LoginMaxFailures   int           `env:"LOGIN_MAX_FAILURES"   envDefault:"5"`
	LoginFailureWindow time.Duration `env:"LOGIN_FAILURE_WINDOW" envDefault:"15m"`

	// SessionSweepInterval controls the background sweeper. Zero disables it.
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1h"`

	// Tracing (OpenTelemetry). Disabled when the endpoint is empty.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`

	// UsingDevSecret is set when SESSION_SECRET was absent in development.
	UsingDevSecret bool `env:"-"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate applies cross-field rules that struct tags cannot express.
func (c *Config) validate() error {
	var errs []error

	if c.SessionSecret == "" {
		if c.IsDevelopment() {
			c.SessionSecret = devSessionSecret
			c.UsingDevSecret = true
		} else {
			errs = append(errs, fmt.Errorf("SESSION_SECRET is required when ENVIRONMENT=%s", c.Environment))
		}
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost))
	}

	if c.DatabaseURL == "" && c.PostgresPassword == "" && !c.IsDevelopment() {
		errs = append(errs, errors.New("POSTGRES_PASSWORD or DATABASE_URL is required outside development"))
	}

	if c.LoginMaxFailures < 1 {
		errs = append(errs, fmt.Errorf("LOGIN_MAX_FAILURES must be positive, got %d", c.LoginMaxFailures))
	}

	if c.LoginFailureWindow <= 0 {
		errs = append(errs, fmt.Errorf("LOGIN_FAILURE_WINDOW must be positive, got %s", c.LoginFailureWindow))
	}

	if c.SessionSweepInterval < 0 {
		errs = append(errs, fmt.Errorf("SESSION_SWEEP_INTERVAL must not be negative, got %s", c.SessionSweepInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
//
// DATABASE_URL is returned verbatim when set. Otherwise the URL is composed
// from the POSTGRES_* parts, requiring TLS only in production.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}

	sslMode := "disable"
	if c.IsProduction() {
		sslMode = "require"
	}

	dsn := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.PostgresHost, c.PostgresPort),
		Path:     "/" + c.PostgresDB,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	if c.PostgresPassword != "" {
		dsn.User = url.UserPassword(c.PostgresUser, c.PostgresPassword)
	} else {
		dsn.User = url.User(c.PostgresUser)
	}

	return dsn.String()
}

// AllowedOrigins returns the trimmed, non-empty entries of EXTRA_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
