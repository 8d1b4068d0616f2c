// Package config centralises configuration parsing for the workout service and its tools.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Store drivers understood by the API.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config captures runtime configuration values for the workout service.
type Config struct {
	AppEnv     string `env:"APP_ENV" default:"development"`
	Host       string `env:"HOST" default:"0.0.0.0"`
	Port       int    `env:"PORT" default:"3000"`
	CORSOrigin string `env:"CORS_ORIGIN" default:"*"`

	StoreDriver string `env:"STORE_DRIVER" default:"memory"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" default:"gym-planner.db"`

	KafkaBrokers       []string      `env:"KAFKA_BROKERS"`
	WorkoutEventsTopic string        `env:"WORKOUT_EVENTS_TOPIC" default:"workout_events"`
	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" default:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" default:"25"`
	OutboxMaxAttempts  int           `env:"OUTBOX_MAX_ATTEMPTS" default:"10"`
	OutboxClaimLease   time.Duration `env:"OUTBOX_CLAIM_LEASE" default:"1m"`
	KafkaBatchTimeout  time.Duration `env:"KAFKA_BATCH_TIMEOUT" default:"50ms"`
	BreakerFailures    int           `env:"OUTBOX_BREAKER_FAILURES" default:"5"`
	BreakerDelay       time.Duration `env:"OUTBOX_BREAKER_DELAY" default:"30s"`
	ConsumerGroupID    string        `env:"CONSUMER_GROUP_ID" default:"workout-event-log"`
	MetricsAddress     string        `env:"METRICS_ADDRESS" default:":9195"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" default:"10s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" default:"60s"`
}

// Client holds what API consumers need to reach the service.
type Client struct {
	APIURL string `env:"WORKOUTS_API_URL" default:"http://localhost:3000"`
}

// Load reads an optional .env file and the process environment into Config.
func Load() (*Config, error) {
	loadDotEnv()

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadClient reads the client-side settings.
func LoadClient() (*Client, error) {
	loadDotEnv()

	var cfg Client
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the selected store has what it needs.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER=%s", DriverSQLite)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want memory, sqlite or postgres)", c.StoreDriver)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", c.OutboxBatchSize)
	}
	if c.OutboxMaxAttempts <= 0 {
		return fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be positive, got %d", c.OutboxMaxAttempts)
	}
	if c.OutboxClaimLease <= 0 {
		return fmt.Errorf("OUTBOX_CLAIM_LEASE must be positive, got %s", c.OutboxClaimLease)
	}
	if c.BreakerFailures <= 0 {
		return fmt.Errorf("OUTBOX_BREAKER_FAILURES must be positive, got %d", c.BreakerFailures)
	}
	return nil
}

// HTTPAddress is the host:port the API listens on.
func (c *Config) HTTPAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// EventsEnabled reports whether workouts should be relayed to Kafka.
func (c *Config) EventsEnabled() bool {
	return c.StoreDriver == DriverPostgres && len(c.KafkaBrokers) > 0
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
}
