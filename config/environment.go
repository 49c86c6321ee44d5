package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Environment holds every setting read from the process environment.
type Environment struct {
	Port    string `env:"PORT"    envDefault:"8080"`
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	Railway string `env:"RAILWAY_ENVIRONMENT_NAME"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBURL    string `env:"DB_URL"    envDefault:"stakemap.db"`

	JWTSecret   string `env:"JWT_SECRET_KEY"`
	JWTIssuer   string `env:"JWT_ISSUER"   envDefault:"stakemap"`
	JWTAudience string `env:"JWT_AUDIENCE" envDefault:"stakemap-api"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	CookieDomain   string   `env:"COOKIE_DOMAIN"`

	MaxStakeholders  int    `env:"MAX_STAKEHOLDERS_PER_MAP" envDefault:"100"`
	GuestModeEnabled bool   `env:"GUEST_MODE_ENABLED"       envDefault:"true"`
	GuestDataDir     string `env:"GUEST_DATA_DIR"           envDefault:"./guest-data"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into an Environment.
func Load() (*Environment, error) {
	var e Environment
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &e, nil
}

// IsDevelopment is true unless running under a production environment name.
func (e *Environment) IsDevelopment() bool {
	if e.Railway != "" {
		return false
	}
	return !strings.EqualFold(e.AppEnv, "production")
}

// CookieSecure mirrors IsDevelopment: cookies only travel over TLS in production.
func (e *Environment) CookieSecure() bool {
	return !e.IsDevelopment()
}

func (e *Environment) Addr() string {
	return "0.0.0.0:" + e.Port
}

// Validate reports settings that would leave the server unusable.
func (e *Environment) Validate() error {
	var errs []error
	if e.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY not set"))
	}
	switch e.DBDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not one of sqlite, postgres", e.DBDriver))
	}
	if e.DBURL == "" {
		errs = append(errs, errors.New("DB_URL not set"))
	}
	if e.MaxStakeholders <= 0 {
		errs = append(errs, fmt.Errorf("MAX_STAKEHOLDERS_PER_MAP must be positive, got %d", e.MaxStakeholders))
	}
	if e.GuestModeEnabled && e.GuestDataDir == "" {
		errs = append(errs, errors.New("GUEST_DATA_DIR not set"))
	}
	return errors.Join(errs...)
}
