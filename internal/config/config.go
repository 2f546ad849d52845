// Package config reads pipeline configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	defaultEnv        = "Sandbox"
	defaultFetchLimit = 50
)

// Config holds everything the runner needs. KafkaBrokers is optional; when
// empty, run-completion events are skipped.
type Config struct {
	DatabaseURL string

	UnifiedBaseURL string
	UnifiedConnID  string
	UnifiedAPIKey  string
	UnifiedEnv     string

	KafkaBrokers []string

	FetchLimit int
}

// Load reads and validates the environment. Required keys fail fast with the
// key named.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		UnifiedBaseURL: os.Getenv("UNIFIED_BASE_URL"),
		UnifiedConnID:  os.Getenv("UNIFIED_CONN_ID"),
		UnifiedAPIKey:  os.Getenv("UNIFIED_API_KEY"),
		UnifiedEnv:     os.Getenv("UNIFIED_ENV"),
		FetchLimit:     defaultFetchLimit,
	}

	for key, val := range map[string]string{
		"DATABASE_URL":     cfg.DatabaseURL,
		"UNIFIED_BASE_URL": cfg.UnifiedBaseURL,
		"UNIFIED_CONN_ID":  cfg.UnifiedConnID,
		"UNIFIED_API_KEY":  cfg.UnifiedAPIKey,
	} {
		if val == "" {
			return nil, fmt.Errorf("config: %s is required", key)
		}
	}

	if cfg.UnifiedEnv == "" {
		cfg.UnifiedEnv = defaultEnv
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if raw := os.Getenv("FETCH_LIMIT"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("config: FETCH_LIMIT must be a positive integer, got %q", raw)
		}
		cfg.FetchLimit = limit
	}

	return cfg, nil
}
