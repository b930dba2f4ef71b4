package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// Database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/mailsift.db"`

	// Engine
	BatchSize           int           `env:"BATCH_SIZE" envDefault:"100"`
	PollInterval        time.Duration `env:"POLL_INTERVAL" envDefault:"1m"`
	SimilarityThreshold float64       `env:"SIMILARITY_THRESHOLD" envDefault:"0.90"`
	DuplicateWindow     time.Duration `env:"DUPLICATE_WINDOW" envDefault:"168h"` // 7 days
	CandidateLimit      int           `env:"CANDIDATE_LIMIT" envDefault:"100"`

	// Suggestions
	MinClusterSize int `env:"MIN_CLUSTER_SIZE" envDefault:"5"`

	// Ingest
	IngestDir string `env:"INGEST_DIR" envDefault:"./data/inbox"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("SIMILARITY_THRESHOLD must be in (0,1], got %v", cfg.SimilarityThreshold)
	}
	if cfg.DuplicateWindow <= 0 {
		return nil, fmt.Errorf("DUPLICATE_WINDOW must be positive, got %v", cfg.DuplicateWindow)
	}
	if cfg.MinClusterSize < 2 {
		return nil, fmt.Errorf("MIN_CLUSTER_SIZE must be at least 2, got %d", cfg.MinClusterSize)
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("BATCH_SIZE must be at least 1, got %d", cfg.BatchSize)
	}

	return cfg, nil
}
