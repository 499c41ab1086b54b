package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Consensus
	MinSources       int
	MinConfidenceBps int64
	DisputePeriod    time.Duration
	MinDisputeStake  int64

	// Reputation
	ReputationStep int64
	MinReputation  int64
	MaxReputation  int64

	// Settlement
	ProtocolFeeBps int64

	// AMM
	SwapFeeBps int64

	// Stake bounds applied when the registry caller passes none
	DefaultMinStake int64
	DefaultMaxStake int64

	// Governance
	GovernanceAddress string

	// Snapshot cache
	SnapshotCacheTTL time.Duration

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Consensus defaults
		MinSources:       getIntOrDefault("CONSENSUS_MIN_SOURCES", 3),
		MinConfidenceBps: getInt64OrDefault("CONSENSUS_MIN_CONFIDENCE_BPS", 8000),
		DisputePeriod:    getDurationOrDefault("CONSENSUS_DISPUTE_PERIOD", 24*time.Hour),
		MinDisputeStake:  getInt64OrDefault("CONSENSUS_MIN_DISPUTE_STAKE", 100_000),

		// Reputation defaults: scores live in [min, max] and move in fixed
		// steps so a single bad report never zeroes a source.
		ReputationStep: getInt64OrDefault("REPUTATION_STEP", 100),
		MinReputation:  getInt64OrDefault("REPUTATION_MIN", 0),
		MaxReputation:  getInt64OrDefault("REPUTATION_MAX", 10000),

		// Settlement defaults (1% protocol fee)
		ProtocolFeeBps: getInt64OrDefault("SETTLEMENT_PROTOCOL_FEE_BPS", 100),

		// AMM defaults (30 bps swap fee)
		SwapFeeBps: getInt64OrDefault("AMM_SWAP_FEE_BPS", 30),

		// Stake bound defaults (base units)
		DefaultMinStake: getInt64OrDefault("STAKE_MIN_DEFAULT", 1_000),
		DefaultMaxStake: getInt64OrDefault("STAKE_MAX_DEFAULT", 1_000_000_000),

		// Governance
		GovernanceAddress: os.Getenv("GOVERNANCE_ADDRESS"),

		// Snapshot cache
		SnapshotCacheTTL: getDurationOrDefault("SNAPSHOT_CACHE_TTL", 2*time.Second),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "predictpesa"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "predictpesa123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "settlement"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.MinSources < 1 {
		return fmt.Errorf("CONSENSUS_MIN_SOURCES must be at least 1, got %d", c.MinSources)
	}

	if c.MinConfidenceBps < 0 || c.MinConfidenceBps > 10000 {
		return fmt.Errorf("CONSENSUS_MIN_CONFIDENCE_BPS must be in [0, 10000], got %d", c.MinConfidenceBps)
	}

	if c.DisputePeriod <= 0 {
		return fmt.Errorf("CONSENSUS_DISPUTE_PERIOD must be positive, got %s", c.DisputePeriod)
	}

	if c.MinDisputeStake <= 0 {
		return fmt.Errorf("CONSENSUS_MIN_DISPUTE_STAKE must be positive, got %d", c.MinDisputeStake)
	}

	if c.ProtocolFeeBps < 0 || c.ProtocolFeeBps >= 10000 {
		return fmt.Errorf("SETTLEMENT_PROTOCOL_FEE_BPS must be in [0, 10000), got %d", c.ProtocolFeeBps)
	}

	if c.SwapFeeBps < 0 || c.SwapFeeBps >= 10000 {
		return fmt.Errorf("AMM_SWAP_FEE_BPS must be in [0, 10000), got %d", c.SwapFeeBps)
	}

	if c.MinReputation < 0 || c.MaxReputation <= c.MinReputation {
		return fmt.Errorf("reputation bounds invalid: min=%d max=%d", c.MinReputation, c.MaxReputation)
	}

	if c.DefaultMinStake <= 0 || c.DefaultMaxStake < c.DefaultMinStake {
		return fmt.Errorf("stake bounds invalid: min=%d max=%d", c.DefaultMinStake, c.DefaultMaxStake)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}
