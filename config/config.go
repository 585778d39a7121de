package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Environment
	Environment string

	// Storage and serving
	DataDir    string
	ListenAddr string
	GamesFile  string

	// Refresh pipeline
	HistoryMonths      int
	RefreshInterval    time.Duration
	RefreshConcurrency int
	RequestDelay       time.Duration
	FetchTimeout       time.Duration
	RateLimitBlock     time.Duration
	PageCacheTTL       time.Duration

	// Memcache configuration
	MemcacheAddr string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// S3 mirror configuration
	S3Bucket          string
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Prefix          string

	// Postgres archive
	DatabaseURL string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		Environment:          getEnv("LOTTERY_ENVIRONMENT", "development"),
		DataDir:              getEnv("DATA_DIR", "./data"),
		ListenAddr:           getEnv("LISTEN_ADDR", ":8080"),
		GamesFile:            getEnv("GAMES_FILE", ""),
		HistoryMonths:        getEnvInt("HISTORY_MONTHS", 6),
		RefreshInterval:      time.Duration(getEnvInt("REFRESH_INTERVAL_MINUTES", 360)) * time.Minute,
		RefreshConcurrency:   getEnvInt("REFRESH_CONCURRENCY", 4),
		RequestDelay:         time.Duration(getEnvInt("REQUEST_DELAY_MS", 1000)) * time.Millisecond,
		FetchTimeout:         time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 30)) * time.Second,
		RateLimitBlock:       time.Duration(getEnvInt("RATE_LIMIT_BLOCK_SECONDS", 500)) * time.Second,
		PageCacheTTL:         time.Duration(getEnvInt("PAGE_CACHE_TTL_SECONDS", 3600)) * time.Second,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "lottery"),
		RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 1000),
		S3Bucket:             getEnv("S3_BUCKET", ""),
		S3Endpoint:           getEnv("S3_ENDPOINT", ""),
		S3Region:             getEnv("S3_REGION", "auto"),
		S3AccessKeyID:        getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey:    getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Prefix:             getEnv("S3_PREFIX", "histories/"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
	}
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.RefreshConcurrency < 1 {
		return fmt.Errorf("REFRESH_CONCURRENCY must be at least 1, got %d", c.RefreshConcurrency)
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("REQUEST_DELAY_MS must not be negative")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_SECONDS must be positive")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL_MINUTES must be positive")
	}
	if c.RedisAddr != "" {
		if c.RedisStream == "" {
			return fmt.Errorf("REDIS_STREAM is required when REDIS_ADDR is set")
		}
		if c.RedisStreamCount < 1 {
			return fmt.Errorf("REDIS_STREAM_COUNT must be at least 1, got %d", c.RedisStreamCount)
		}
	}
	if c.S3Bucket != "" && (c.S3AccessKeyID == "") != (c.S3SecretAccessKey == "") {
		return fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an integer environment variable, falling back on parse errors
func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}
