package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel  string
	LogFormat string // "json" or "console"
	HTTPPort  string

	// Polymarket API
	PolymarketWSURL    string
	PolymarketGammaURL string

	// Structure rebuild
	RebuildInterval time.Duration
	MarketLimit     int

	// WebSocket
	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSMessageBufferSize     int

	// Detection
	MinProfitBps        int
	MinProfitAbs        float64
	Cooldown            time.Duration
	SizeChangeThreshold float64
	TriangleSellEnabled bool
	BinaryPairsEnabled  bool

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
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		HTTPPort:  getEnvOrDefault("HTTP_PORT", "8080"),

		// Polymarket API defaults
		PolymarketWSURL:    getEnvOrDefault("POLYMARKET_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		PolymarketGammaURL: getEnvOrDefault("POLYMARKET_GAMMA_API_URL", "https://gamma-api.polymarket.com"),

		// Structure rebuild defaults
		RebuildInterval: getDurationOrDefault("REBUILD_INTERVAL", 30*time.Minute),
		MarketLimit:     getIntOrDefault("MARKET_LIMIT", 1000),

		// WebSocket defaults
		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 1*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSMessageBufferSize:     getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 10000),

		// Detection defaults
		MinProfitBps:        getIntOrDefault("MIN_PROFIT_BPS", 5),
		MinProfitAbs:        getFloat64OrDefault("MIN_PROFIT_ABS", 0),
		Cooldown:            getDurationOrDefault("COOLDOWN", 1*time.Second),
		SizeChangeThreshold: getFloat64OrDefault("SIZE_CHANGE_THRESHOLD", 0.01),
		TriangleSellEnabled: getBoolOrDefault("TRIANGLE_SELL_ENABLED", false),
		BinaryPairsEnabled:  getBoolOrDefault("BINARY_PAIRS_ENABLED", true),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "rangearb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "rangearb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "range_arb"),
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
		return errors.New("HTTP_PORT cannot be empty")
	}

	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console', got %q", c.LogFormat)
	}

	if c.PolymarketWSURL == "" {
		return errors.New("POLYMARKET_WS_URL cannot be empty")
	}

	if c.PolymarketGammaURL == "" {
		return errors.New("POLYMARKET_GAMMA_API_URL cannot be empty")
	}

	if c.MinProfitBps < 0 {
		return fmt.Errorf("MIN_PROFIT_BPS must be non-negative, got %d", c.MinProfitBps)
	}

	if c.MinProfitAbs < 0 {
		return fmt.Errorf("MIN_PROFIT_ABS must be non-negative, got %f", c.MinProfitAbs)
	}

	if c.Cooldown <= 0 {
		return fmt.Errorf("COOLDOWN must be positive, got %s", c.Cooldown)
	}

	if c.SizeChangeThreshold < 0 || c.SizeChangeThreshold >= 1 {
		return fmt.Errorf("SIZE_CHANGE_THRESHOLD must be in [0, 1), got %f", c.SizeChangeThreshold)
	}

	if c.RebuildInterval <= 0 {
		return fmt.Errorf("REBUILD_INTERVAL must be positive, got %s", c.RebuildInterval)
	}

	if c.MarketLimit < 0 {
		return fmt.Errorf("MARKET_LIMIT must be non-negative (0 = unlimited), got %d", c.MarketLimit)
	}

	if c.StorageMode != "console" && c.StorageMode != "postgres" {
		return fmt.Errorf("STORAGE_MODE must be 'console' or 'postgres', got %q", c.StorageMode)
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

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}
