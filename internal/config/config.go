package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration for the replay broker.
type Config struct {
	Port            int             `env:"PORT" envDefault:"8080"`
	LogLevel        string          `env:"LOG_LEVEL" envDefault:"info"`
	CommissionCoeff decimal.Decimal `env:"COMMISSION_COEFF" envDefault:"0.0015"`

	// DataDir roots the JSON bar files; empty disables the file source.
	DataDir  string         `env:"DATA_DIR"`
	Postgres PostgresConfig `envPrefix:"PG_"`
	Kafka    KafkaConfig    `envPrefix:"KAFKA_"`

	WebhookTimeout  time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// PostgresConfig configures the historical bar database. An empty DSN
// disables it.
type PostgresConfig struct {
	DSN      string `env:"DSN"`
	MaxConns int32  `env:"MAX_CONNS" envDefault:"4"`
}

// KafkaConfig configures the streamed quote consumer. No brokers
// disables it.
type KafkaConfig struct {
	Brokers []string `env:"BROKERS"`
	Topic   string   `env:"TOPIC" envDefault:"quotes"`
	GroupID string   `env:"GROUP_ID" envDefault:"replaybroker"`
}

// Load reads configuration from the environment, after merging in a .env
// file when one exists, and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env is not an error

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d, must be between 1 and 65535", c.Port)
	}
	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	if c.CommissionCoeff.IsNegative() || c.CommissionCoeff.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("invalid COMMISSION_COEFF: %s, must be in [0, 1)", c.CommissionCoeff)
	}
	if c.Postgres.MaxConns < 1 {
		return fmt.Errorf("invalid PG_MAX_CONNS: %d, must be positive", c.Postgres.MaxConns)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"WEBHOOK_TIMEOUT", c.WebhookTimeout},
		{"READ_TIMEOUT", c.ReadTimeout},
		{"WRITE_TIMEOUT", c.WriteTimeout},
		{"IDLE_TIMEOUT", c.IdleTimeout},
		{"SHUTDOWN_TIMEOUT", c.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("invalid %s: %v, must be positive", d.name, d.d)
		}
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
