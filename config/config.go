package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"marketfeed/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Caching
	MemoryTTL     time.Duration // TTL for in-memory price quotes
	HistoryTTL    time.Duration // TTL for in-memory candle series
	PriceCacheDir string        // Directory holding the per-day JSON price shards

	// Retry / backoff
	MaxRetries        int           // Attempts per logical fetch
	BackoffBase       time.Duration // First retry delay
	BackoffMax        time.Duration // Delay cap
	JitterEnabled     bool          // Randomize retry delays
	JitterRange       float64       // Symmetric jitter fraction (0.2 = +/-20%)
	RetryOnPermission bool          // Retry 403-class failures (off by default)

	// Rate limiting
	MinRequestInterval time.Duration // Minimum spacing between outbound calls

	// Circuit breaker
	CircuitFailureThreshold int           // Consecutive failures before opening
	CircuitCooldown         time.Duration // How long an open circuit blocks

	// Disk cache flushing
	DiskFlushBatchSize int           // Pending writes that force a flush
	DiskFlushInterval  time.Duration // Max age of unflushed writes

	// Providers
	Providers      []string // Chain order, e.g. ["finnhub", "yahoo", "synthetic"]
	RequestTimeout time.Duration
	FinnhubAPIKey  string
	BinanceAPIKey  string // Optional; public market data works without keys
	BinanceSecret  string

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Caching
	memTTLMin, err := getEnvAsIntRequired("MEMORY_TTL_MINUTES", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MEMORY_TTL_MINUTES: %v", err))
	} else if memTTLMin <= 0 {
		errs = append(errs, "MEMORY_TTL_MINUTES must be positive")
	}
	cfg.MemoryTTL = time.Duration(memTTLMin) * time.Minute

	histTTLMin, err := getEnvAsIntRequired("HISTORY_TTL_MINUTES", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid HISTORY_TTL_MINUTES: %v", err))
	} else if histTTLMin <= 0 {
		errs = append(errs, "HISTORY_TTL_MINUTES must be positive")
	}
	cfg.HistoryTTL = time.Duration(histTTLMin) * time.Minute

	cfg.PriceCacheDir = getEnv("PRICE_CACHE_DIR", "data/price_cache")
	if cfg.PriceCacheDir == "" {
		errs = append(errs, "PRICE_CACHE_DIR must not be empty")
	}

	// Retry / backoff
	cfg.MaxRetries, err = getEnvAsIntRequired("MAX_RETRIES", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_RETRIES: %v", err))
	} else if cfg.MaxRetries <= 0 {
		errs = append(errs, "MAX_RETRIES must be positive")
	}

	baseMs, err := getEnvAsIntRequired("BACKOFF_BASE_MS", 300)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BACKOFF_BASE_MS: %v", err))
	} else if baseMs <= 0 {
		errs = append(errs, "BACKOFF_BASE_MS must be positive")
	}
	cfg.BackoffBase = time.Duration(baseMs) * time.Millisecond

	maxMs, err := getEnvAsIntRequired("BACKOFF_MAX_MS", 60000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BACKOFF_MAX_MS: %v", err))
	} else if maxMs < baseMs {
		errs = append(errs, "BACKOFF_MAX_MS must be >= BACKOFF_BASE_MS")
	}
	cfg.BackoffMax = time.Duration(maxMs) * time.Millisecond

	cfg.JitterEnabled, err = getEnvAsBoolRequired("JITTER_ENABLED", true)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid JITTER_ENABLED: %v", err))
	}
	cfg.JitterRange, err = getEnvAsFloatRequired("JITTER_RANGE", 0.2)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid JITTER_RANGE: %v", err))
	} else if cfg.JitterRange < 0 || cfg.JitterRange >= 1 {
		errs = append(errs, "JITTER_RANGE must be in [0, 1)")
	}
	cfg.RetryOnPermission, err = getEnvAsBoolRequired("RETRY_ON_PERMISSION_DENIED", false)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RETRY_ON_PERMISSION_DENIED: %v", err))
	}

	// Rate limiting
	intervalMs, err := getEnvAsIntRequired("MIN_REQUEST_INTERVAL_MS", 250)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_REQUEST_INTERVAL_MS: %v", err))
	} else if intervalMs < 0 {
		errs = append(errs, "MIN_REQUEST_INTERVAL_MS cannot be negative")
	}
	cfg.MinRequestInterval = time.Duration(intervalMs) * time.Millisecond

	// Circuit breaker
	cfg.CircuitFailureThreshold, err = getEnvAsIntRequired("CIRCUIT_FAILURE_THRESHOLD", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CIRCUIT_FAILURE_THRESHOLD: %v", err))
	} else if cfg.CircuitFailureThreshold <= 0 {
		errs = append(errs, "CIRCUIT_FAILURE_THRESHOLD must be positive")
	}

	cooldownSec, err := getEnvAsIntRequired("CIRCUIT_COOLDOWN_SECONDS", 60)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CIRCUIT_COOLDOWN_SECONDS: %v", err))
	} else if cooldownSec <= 0 {
		errs = append(errs, "CIRCUIT_COOLDOWN_SECONDS must be positive")
	}
	cfg.CircuitCooldown = time.Duration(cooldownSec) * time.Second

	// Disk cache flushing
	cfg.DiskFlushBatchSize, err = getEnvAsIntRequired("DISK_FLUSH_BATCH_SIZE", 8)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DISK_FLUSH_BATCH_SIZE: %v", err))
	} else if cfg.DiskFlushBatchSize <= 0 {
		errs = append(errs, "DISK_FLUSH_BATCH_SIZE must be positive")
	}

	flushSec, err := getEnvAsIntRequired("DISK_FLUSH_INTERVAL_SECONDS", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DISK_FLUSH_INTERVAL_SECONDS: %v", err))
	} else if flushSec <= 0 {
		errs = append(errs, "DISK_FLUSH_INTERVAL_SECONDS must be positive")
	}
	cfg.DiskFlushInterval = time.Duration(flushSec) * time.Second

	// Providers
	cfg.Providers = splitCSV(getEnv("PROVIDERS", "yahoo,synthetic"))
	if len(cfg.Providers) == 0 {
		errs = append(errs, "PROVIDERS must name at least one provider")
	}

	timeoutSec, err := getEnvAsIntRequired("REQUEST_TIMEOUT_SECONDS", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid REQUEST_TIMEOUT_SECONDS: %v", err))
	} else if timeoutSec <= 0 {
		errs = append(errs, "REQUEST_TIMEOUT_SECONDS must be positive")
	}
	cfg.RequestTimeout = time.Duration(timeoutSec) * time.Second

	cfg.FinnhubAPIKey = getEnv("FINNHUB_API_KEY", "")
	for _, p := range cfg.Providers {
		if p == "finnhub" && cfg.FinnhubAPIKey == "" {
			errs = append(errs, "FINNHUB_API_KEY must be set when the finnhub provider is enabled")
		}
	}
	cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
	cfg.BinanceSecret = getEnv("BINANCE_API_SECRET", "")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "info"))

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// --- Env helpers ---

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a valid integer", valueStr)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a valid float", valueStr)
	}
	return value, nil
}

func getEnvAsBoolRequired(key string, defaultValue bool) (bool, error) {
	valueStr := strings.ToLower(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue, nil
	}
	switch valueStr {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("value %q is not a valid boolean", valueStr)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
