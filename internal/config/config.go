package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ktb-chatapp/backend/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	// Redis cluster endpoint
	ClusterNodes []string // comma-separated REDIS_CLUSTER_NODES, required
	Password     string
	// Connection policy. Defaults mirror the values the chat backend has
	// always deployed with, so an empty environment behaves identically.
	ConnectTimeout    time.Duration
	CommandTimeout    time.Duration
	IdleTimeout       time.Duration
	KeepAliveInterval time.Duration
	PoolMinIdle       int // minimum idle connections per node
	PoolSize          int // maximum connections per node
	RetryAttempts     int
	RetryInterval     time.Duration
	ReadFromReplica   bool // route reads to replicas, trading staleness for primary load
	// SubscribeFromReplica is carried for the pub/sub layer that shares this
	// endpoint configuration; the key-value layer itself never subscribes.
	SubscribeFromReplica bool
	// Keyspace scan pacing. SCAN pages are rate limited so that Size/Clear
	// over a large namespace cannot monopolize the cluster.
	ScanBatchSize     int64
	ScanBatchInterval time.Duration
	// Facade settings
	SessionTTL time.Duration
	// Observability settings
	LogLevel          string  // log level: debug, info, warn, error
	OTELEnabled       bool    // enable OpenTelemetry tracing
	OTELEndpoint      string  // OpenTelemetry collector endpoint
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string  // Sentry DSN for error reporting
	SentryEnvironment string  // Sentry environment (dev, staging, production)
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		ClusterNodes:         splitNodes(os.Getenv("REDIS_CLUSTER_NODES")),
		Password:             os.Getenv("REDIS_PASSWORD"),
		ConnectTimeout:       time.Duration(utils.GetEnvAsInt("REDIS_CONNECT_TIMEOUT_MS", 3000)) * time.Millisecond,
		CommandTimeout:       time.Duration(utils.GetEnvAsInt("REDIS_COMMAND_TIMEOUT_MS", 3000)) * time.Millisecond,
		IdleTimeout:          time.Duration(utils.GetEnvAsInt("REDIS_IDLE_TIMEOUT_MS", 10000)) * time.Millisecond,
		KeepAliveInterval:    time.Duration(utils.GetEnvAsInt("REDIS_KEEPALIVE_INTERVAL_MS", 30000)) * time.Millisecond,
		PoolMinIdle:          utils.GetEnvAsInt("REDIS_POOL_MIN_IDLE", 5),
		PoolSize:             utils.GetEnvAsInt("REDIS_POOL_SIZE", 10),
		RetryAttempts:        utils.GetEnvAsInt("REDIS_RETRY_ATTEMPTS", 3),
		RetryInterval:        time.Duration(utils.GetEnvAsInt("REDIS_RETRY_INTERVAL_MS", 1500)) * time.Millisecond,
		ReadFromReplica:      utils.GetEnvAsBool("REDIS_READ_FROM_REPLICA", true),
		SubscribeFromReplica: utils.GetEnvAsBool("REDIS_SUBSCRIBE_FROM_REPLICA", true),
		ScanBatchSize:        int64(utils.GetEnvAsInt("REDIS_SCAN_BATCH_SIZE", 100)),
		ScanBatchInterval:    time.Duration(utils.GetEnvAsInt("REDIS_SCAN_BATCH_INTERVAL_MS", 20)) * time.Millisecond,
		SessionTTL:           time.Duration(utils.GetEnvAsInt("SESSION_TTL_MIN", 30)) * time.Minute,
		// Observability settings
		LogLevel:          strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
	}
	if cached.LogLevel == "" {
		cached.LogLevel = "info"
	}
	if cached.SentryEnvironment == "" {
		if env := os.Getenv("ENV"); env != "" {
			cached.SentryEnvironment = env
		} else {
			cached.SentryEnvironment = "development"
		}
	}
	return cached
}

// Validate checks settings that must be present before the cluster client can
// start. A failure here is fatal at startup and never retried.
func (c *Config) Validate() error {
	if len(c.ClusterNodes) == 0 {
		return fmt.Errorf("config: REDIS_CLUSTER_NODES is required (comma-separated host:port list)")
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("config: REDIS_POOL_SIZE must be at least 1, got %d", c.PoolSize)
	}
	if c.PoolMinIdle < 0 || c.PoolMinIdle > c.PoolSize {
		return fmt.Errorf("config: REDIS_POOL_MIN_IDLE must be between 0 and the pool size, got %d", c.PoolMinIdle)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("config: REDIS_RETRY_ATTEMPTS must not be negative, got %d", c.RetryAttempts)
	}
	if c.ScanBatchSize < 1 {
		return fmt.Errorf("config: REDIS_SCAN_BATCH_SIZE must be at least 1, got %d", c.ScanBatchSize)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL_MIN must be positive")
	}
	return nil
}

// splitNodes splits the comma-separated node list and drops empty entries.
// Address normalization happens in the cluster client, which owns the
// endpoint format.
func splitNodes(raw string) []string {
	var nodes []string
	for _, n := range strings.Split(raw, ",") {
		if n = strings.TrimSpace(n); n != "" {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
