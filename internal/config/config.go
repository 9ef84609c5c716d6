// Package config centralises configuration parsing for the sign-up service.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config captures runtime configuration values for the API and consumer binaries.
type Config struct {
	HTTPAddress       string        `envconfig:"HTTP_ADDRESS" default:":8000"`
	CORSAllowedOrigin string        `envconfig:"CORS_ALLOWED_ORIGIN" default:"*"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat         string        `envconfig:"LOG_FORMAT" default:"json"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`

	// KafkaBrokers left empty disables roster event publishing.
	KafkaBrokers      []string `envconfig:"KAFKA_BROKERS"`
	SchemaRegistryURL string   `envconfig:"SCHEMA_REGISTRY_URL"`

	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"2s"`
	OutboxBatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"25"`
	OutboxMaxAttempts  int           `envconfig:"OUTBOX_MAX_ATTEMPTS" default:"5"`

	DeadLetterLimit        int           `envconfig:"DEAD_LETTER_LIMIT" default:"1000"`
	DeadLetterMaxReplays   int           `envconfig:"DEAD_LETTER_MAX_REPLAYS" default:"3"`
	DeadLetterBaseDelay    time.Duration `envconfig:"DEAD_LETTER_BASE_DELAY" default:"1m"`
	DeadLetterPollInterval time.Duration `envconfig:"DEAD_LETTER_POLL_INTERVAL" default:"30s"`

	ConsumerGroupID string   `envconfig:"CONSUMER_GROUP_ID" default:"roster-audit"`
	ConsumerTopics  []string `envconfig:"CONSUMER_TOPICS" default:"roster_events"`
	MetricsAddress  string   `envconfig:"METRICS_ADDRESS" default:":9195"`
}

// EventsEnabled reports whether a Kafka cluster is configured.
func (c Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads an optional .env file and then the environment into Config.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse configuration")
	}
	cfg.KafkaBrokers = trimAll(cfg.KafkaBrokers)
	cfg.ConsumerTopics = trimAll(cfg.ConsumerTopics)

	if cfg.OutboxBatchSize <= 0 {
		return Config{}, errors.Errorf("OUTBOX_BATCH_SIZE must be > 0, got %d", cfg.OutboxBatchSize)
	}
	if cfg.OutboxMaxAttempts <= 0 {
		return Config{}, errors.Errorf("OUTBOX_MAX_ATTEMPTS must be > 0, got %d", cfg.OutboxMaxAttempts)
	}
	if cfg.OutboxPollInterval <= 0 {
		return Config{}, errors.Errorf("OUTBOX_POLL_INTERVAL must be > 0, got %s", cfg.OutboxPollInterval)
	}
	if cfg.DeadLetterLimit <= 0 {
		return Config{}, errors.Errorf("DEAD_LETTER_LIMIT must be > 0, got %d", cfg.DeadLetterLimit)
	}
	if cfg.DeadLetterPollInterval <= 0 {
		return Config{}, errors.Errorf("DEAD_LETTER_POLL_INTERVAL must be > 0, got %s", cfg.DeadLetterPollInterval)
	}
	return cfg, nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
