// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/config"
	"github.com/jteerlink/SymptomSentinelAI-sub001/pkg/database"
)

const insecureDefaultSecret = "dev-secret-change-me"

// Config holds all configuration for the service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`

	// StoreBackend selects the persistence layer: "postgres" or
	// "memory". Memory is for local development only.
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`

	JWTSecret        string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"1h"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"168h"`

	// AuthStoreTimeout bounds user-store calls made while resolving
	// credentials and consuming quota.
	AuthStoreTimeout time.Duration `env:"AUTH_STORE_TIMEOUT" envDefault:"3s"`

	FreeScansPerMonth int `env:"QUOTA_FREE_SCANS_PER_MONTH" envDefault:"5"`

	SecureCookies bool `env:"SECURE_COOKIES" envDefault:"true"`

	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"20"`

	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"symptomsentinel"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"symptomsentinel"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"symptomsentinel"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that must never reach production.
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWTSecret == insecureDefaultSecret {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.StoreBackend == "memory" {
			return fmt.Errorf("STORE_BACKEND=memory is not allowed in production")
		}
	}
	if c.StoreBackend != "postgres" && c.StoreBackend != "memory" {
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.JWTAccessExpiry <= 0 || c.JWTRefreshExpiry <= 0 {
		return fmt.Errorf("token expiries must be positive")
	}
	if c.JWTRefreshExpiry <= c.JWTAccessExpiry {
		return fmt.Errorf("JWT_REFRESH_EXPIRY must exceed JWT_ACCESS_EXPIRY")
	}
	if c.FreeScansPerMonth < 0 {
		return fmt.Errorf("QUOTA_FREE_SCANS_PER_MONTH must not be negative")
	}
	return nil
}

// PostgresConfig assembles the database configuration.
func (c *Config) PostgresConfig() database.PostgresConfig {
	pc := database.DefaultPostgresConfig()
	pc.Host = c.PostgresHost
	pc.Port = c.PostgresPort
	pc.User = c.PostgresUser
	pc.Password = c.PostgresPassword
	pc.DBName = c.PostgresDB
	pc.SSLMode = c.PostgresSSLMode
	return pc
}
