package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type AppConfig struct {
	RedisURL    string
	DatabaseURL string

	// ServerID identifies this instance on the relay channel so it can
	// skip its own published events.
	ServerID string

	DrainInterval  time.Duration
	DrainBatch     int
	SyncInterval   time.Duration
	BufferCapacity int
	LeaseTTL       time.Duration

	BreakerWindow      int
	BreakerMinCalls    int
	BreakerFailureRate float64
	BreakerCoolDown    time.Duration

	BulkheadSize   int
	DrainRate      int
	DrainRateBurst int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		DrainInterval:  2 * time.Second,
		DrainBatch:     50,
		SyncInterval:   10 * time.Second,
		BufferCapacity: 100_000,
		LeaseTTL:       30 * time.Second,

		BreakerWindow:      20,
		BreakerMinCalls:    5,
		BreakerFailureRate: 0.5,
		BreakerCoolDown:    10 * time.Second,

		BulkheadSize:   4,
		DrainRate:      50,
		DrainRateBurst: 50,
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	cfg.ServerID = strings.TrimSpace(os.Getenv("SERVER_ID"))
	if cfg.ServerID == "" {
		cfg.ServerID = uuid.NewString()
	}

	if v := strings.TrimSpace(os.Getenv("DRAIN_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.DrainInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("DRAIN_BATCH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DrainBatch = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SYNC_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SyncInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("BUFFER_CAPACITY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BufferCapacity = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("LEASE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.LeaseTTL = d
		}
	}

	if v := strings.TrimSpace(os.Getenv("BREAKER_WINDOW")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BreakerWindow = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BREAKER_MIN_CALLS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BreakerMinCalls = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BREAKER_FAILURE_RATE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			cfg.BreakerFailureRate = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("BREAKER_COOL_DOWN")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.BreakerCoolDown = d
		}
	}

	if v := strings.TrimSpace(os.Getenv("BULKHEAD_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BulkheadSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DRAIN_RATE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DrainRate = n
			cfg.DrainRateBurst = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DRAIN_RATE_BURST")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DrainRateBurst = n
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}
