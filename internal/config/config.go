// Package config centralises configuration parsing for the process-map service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Lock backends.
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Config captures runtime configuration values for the process-map binaries.
type Config struct {
	HTTPAddress    string
	MetricsAddress string
	CORSOrigin     string
	// PostgresURL selects the Postgres store; empty means in-memory.
	PostgresURL string

	KafkaBrokers       []string
	SchemaRegistryURL  string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	DLQPollInterval    time.Duration // Interval between DLQ polling iterations.
	DLQMaxRetries      int           // Maximum number of DLQ retry attempts before quarantine.
	DLQBaseDelay       time.Duration // Base delay used for exponential backoff.
	ConsumerTopics     []string
	ConsumerGroupID    string

	LockBackend string
	RedisURL    string
	LockTTL     time.Duration

	DefaultActor string
	JWTSecret    string
	JWTIssuer    string

	LogLevel  string
	LogFormat string
	LogOutput string
}

var defaults = map[string]any{
	"http_address":         ":8080",
	"metrics_address":      ":9090",
	"cors_origin":          "*",
	"postgres_url":         "",
	"kafka_brokers":        "",
	"schema_registry_url":  "http://schema-registry:8081",
	"outbox_poll_interval": 2 * time.Second,
	"outbox_batch_size":    25,
	"dlq_poll_interval":    30 * time.Second,
	"dlq_max_retries":      5,
	"dlq_base_delay":       time.Minute,
	"consumer_topics":      "activity_events,workflow_events",
	"consumer_group_id":    "processmap-event-log",
	"lock_backend":         LockBackendLocal,
	"redis_url":            "redis://localhost:6379/0",
	"lock_ttl":             30 * time.Second,
	"default_actor":        "app_user",
	"jwt_secret":           "dev-secret-change-me",
	"jwt_issuer":           "processmap",
	"log_level":            "info",
	"log_format":           "json",
	"log_output":           "stdout",
}

// Load reads defaults, an optional processmap.yaml from . or ./config, and
// environment variables (upper-cased keys, e.g. HTTP_ADDRESS), in increasing
// precedence.
func Load() (Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetConfigName("processmap")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		HTTPAddress:        v.GetString("http_address"),
		MetricsAddress:     v.GetString("metrics_address"),
		CORSOrigin:         v.GetString("cors_origin"),
		PostgresURL:        v.GetString("postgres_url"),
		KafkaBrokers:       splitAndTrim(v.GetString("kafka_brokers")),
		SchemaRegistryURL:  v.GetString("schema_registry_url"),
		OutboxPollInterval: v.GetDuration("outbox_poll_interval"),
		OutboxBatchSize:    v.GetInt("outbox_batch_size"),
		DLQPollInterval:    v.GetDuration("dlq_poll_interval"),
		DLQMaxRetries:      v.GetInt("dlq_max_retries"),
		DLQBaseDelay:       v.GetDuration("dlq_base_delay"),
		ConsumerTopics:     splitAndTrim(v.GetString("consumer_topics")),
		ConsumerGroupID:    v.GetString("consumer_group_id"),
		LockBackend:        strings.ToLower(strings.TrimSpace(v.GetString("lock_backend"))),
		RedisURL:           v.GetString("redis_url"),
		LockTTL:            v.GetDuration("lock_ttl"),
		DefaultActor:       v.GetString("default_actor"),
		JWTSecret:          v.GetString("jwt_secret"),
		JWTIssuer:          v.GetString("jwt_issuer"),
		LogLevel:           v.GetString("log_level"),
		LogFormat:          v.GetString("log_format"),
		LogOutput:          v.GetString("log_output"),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.LockBackend {
	case LockBackendLocal, LockBackendRedis:
	default:
		return fmt.Errorf("lock_backend must be %q or %q, got %q", LockBackendLocal, LockBackendRedis, c.LockBackend)
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("outbox_batch_size must be positive, got %d", c.OutboxBatchSize)
	}
	if c.OutboxPollInterval <= 0 {
		return fmt.Errorf("outbox_poll_interval must be positive, got %s", c.OutboxPollInterval)
	}
	return nil
}

// UsesPostgres reports whether a Postgres URL was configured.
func (c Config) UsesPostgres() bool {
	return c.PostgresURL != ""
}

// PublishesEvents reports whether Kafka brokers were configured.
func (c Config) PublishesEvents() bool {
	return len(c.KafkaBrokers) > 0
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
