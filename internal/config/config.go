package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// DefaultCacheTTLSec is how long a cached dataset is trusted before a refetch.
	DefaultCacheTTLSec = 1800
	// DefaultPollIntervalSec is seconds between freshness checks.
	DefaultPollIntervalSec = 60
	// DefaultFeedTimeoutSec bounds a single feed request.
	DefaultFeedTimeoutSec = 30
	// DefaultCacheKey is the single slot the dataset is stored under.
	DefaultCacheKey = "pokemmo_monster_data"
)

// Cache backends.
const (
	CacheRedis  = "redis"
	CacheFile   = "file"
	CacheMemory = "memory"
)

// Lookup sources.
const (
	LookupStatic = "static"
	LookupText   = "text"
)

type Config struct {
	Port         string
	FeedURL      string
	FeedTimeout  int    // seconds, 0 disables the client timeout
	CacheBackend string // "redis", "file" or "memory"
	CacheKey     string
	CacheFile    string // directory for the file backend
	CacheTTL     int    // seconds a cached dataset stays fresh
	PollInterval int    // seconds between freshness checks
	LookupSource string // "static" or "text"
	RedisURL     string
	DatabaseURL  string // optional; enables the report archive
	RabbitMQURL  string // optional; enables reports-updated events
	BotToken     string
	BotChannelID int64  // channel that receives announcements, 0 disables
	LogLevel     string
	LogFormat    string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		FeedURL:      getEnv("FEED_URL", "https://mmo.ydev.tech/monster/current"),
		FeedTimeout:  getEnvInt("FEED_TIMEOUT_SEC", DefaultFeedTimeoutSec),
		CacheBackend: getEnv("CACHE_BACKEND", CacheRedis),
		CacheKey:     getEnv("CACHE_KEY", DefaultCacheKey),
		CacheFile:    getEnv("CACHE_DIR", "./data/cache"),
		CacheTTL:     getEnvInt("CACHE_TTL_SEC", DefaultCacheTTLSec),
		PollInterval: getEnvInt("POLL_INTERVAL_SEC", DefaultPollIntervalSec),
		LookupSource: getEnv("LOOKUP_SOURCE", LookupText),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RabbitMQURL:  getEnv("RABBITMQ_URL", ""),
		BotToken:     getEnv("BOT_TOKEN", ""),
		BotChannelID: getEnvInt64("BOT_CHANNEL_ID", 0),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "console"),
	}
}

// Validate reports settings the services cannot run with.
func (c *Config) Validate() error {
	if c.FeedURL == "" {
		return fmt.Errorf("FEED_URL is required")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_SEC must be positive, got %d", c.CacheTTL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SEC must be positive, got %d", c.PollInterval)
	}
	if c.FeedTimeout < 0 {
		return fmt.Errorf("FEED_TIMEOUT_SEC must not be negative, got %d", c.FeedTimeout)
	}
	switch c.CacheBackend {
	case CacheRedis, CacheFile, CacheMemory:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}
	switch c.LookupSource {
	case LookupStatic, LookupText:
	default:
		return fmt.Errorf("unknown LOOKUP_SOURCE %q", c.LookupSource)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
