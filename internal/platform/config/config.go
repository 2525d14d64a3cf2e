// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strings"
	"time"
)

// Config captures everything cmd/server needs to wire the core.
type Config struct {
	Addr        string
	DatabaseURL string
	RedisURL    string

	// KafkaBrokers enables the history fan-out publisher when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	Scoring ScoringConfig
	Storage StorageConfig
}

// ScoringConfig describes the external risk-scoring service.
type ScoringConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// StorageConfig describes the signed-URL resolver for uploaded documents.
type StorageConfig struct {
	BaseURL       string
	SigningSecret string
	URLTTL        time.Duration
}

// FromEnv builds a Config from environment variables. Defaults target local
// development; production overrides everything.
func FromEnv() Config {
	cfg := Config{
		Addr:        envOr("LEASELAB_ADDR", ":8080"),
		DatabaseURL: os.Getenv("LEASELAB_DATABASE_URL"),
		RedisURL:    os.Getenv("LEASELAB_REDIS_URL"),
		KafkaTopic:  envOr("LEASELAB_KAFKA_TOPIC", "leaselab.application-history"),
		Scoring: ScoringConfig{
			BaseURL: envOr("LEASELAB_SCORING_URL", "http://localhost:9090"),
			APIKey:  os.Getenv("LEASELAB_SCORING_API_KEY"),
			Timeout: durationOr("LEASELAB_SCORING_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			BaseURL:       envOr("LEASELAB_STORAGE_URL", "http://localhost:9000/documents"),
			SigningSecret: envOr("LEASELAB_STORAGE_SECRET", "dev-secret-change-in-production"),
			URLTTL:        durationOr("LEASELAB_STORAGE_URL_TTL", 15*time.Minute),
		},
	}
	if brokers := os.Getenv("LEASELAB_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
