package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultFeedURL       = "https://developer.apple.com/news/releases/rss/releases.rss"
	defaultBarkBaseURL   = "https://api.day.app"
	defaultBarkGroup     = "AppleUpdate"
	defaultMaxEntries    = 15
	defaultFetchAttempts = 6
	defaultRetrySeconds  = 10
	defaultColdStart     = "latest"
	defaultCacheBackend  = "file"
	defaultCacheFile     = "last_update_id.txt"
	defaultPollMinutes   = 30
	defaultBindAddr      = ":8083"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultDBHost        = "localhost"
	defaultDBPort        = 3306
	defaultDBUser        = "root"
	defaultDBName        = "releasewatch"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	FeedURL       string
	MaxEntries    int
	FetchAttempts int
	RetryDelay    time.Duration
	ColdStart     string

	BarkKey     string
	BarkBaseURL string
	BarkGroup   string

	CacheBackend string
	CacheFile    string
	DatabaseURL  string
	DBHost       string
	DBPort       int
	DBUser       string
	DBPass       string
	DBName       string

	OpenAIKey   string
	OpenAIModel string
	OpenAIBase  string

	PollInterval time.Duration
	BindAddr     string
}

// Load reads environment variables, filling in reasonable defaults.
func Load() Config {
	return Config{
		FeedURL:       stringWithDefault("FEED_URL", defaultFeedURL),
		MaxEntries:    nonNegativeInt("MAX_ENTRIES", defaultMaxEntries),
		FetchAttempts: intWithDefault("FETCH_ATTEMPTS", defaultFetchAttempts),
		RetryDelay:    durationFromSeconds("FETCH_RETRY_SECONDS", defaultRetrySeconds),
		ColdStart:     strings.ToLower(stringWithDefault("COLD_START", defaultColdStart)),
		BarkKey:       os.Getenv("BARK_KEY"),
		BarkBaseURL:   strings.TrimRight(stringWithDefault("BARK_BASE_URL", defaultBarkBaseURL), "/"),
		BarkGroup:     stringWithDefault("BARK_GROUP", defaultBarkGroup),
		CacheBackend:  strings.ToLower(stringWithDefault("CACHE_BACKEND", defaultCacheBackend)),
		CacheFile:     stringWithDefault("CACHE_FILE", defaultCacheFile),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DBHost:        stringWithDefault("DB_HOST", defaultDBHost),
		DBPort:        intWithDefault("DB_PORT", defaultDBPort),
		DBUser:        stringWithDefault("DB_USER", defaultDBUser),
		DBPass:        os.Getenv("DB_PASSWORD"),
		DBName:        stringWithDefault("DB_NAME", defaultDBName),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   stringWithDefault("OPENAI_MODEL", defaultOpenAIModel),
		OpenAIBase:    os.Getenv("OPENAI_BASE_URL"),
		PollInterval:  durationFromMinutes("POLL_INTERVAL_MINUTES", defaultPollMinutes),
		BindAddr:      stringWithDefault("BIND_ADDR", defaultBindAddr),
	}
}

func stringWithDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationFromMinutes(key string, fallback int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
		log.Printf("invalid %s=%s, using default %d minutes", key, v, fallback)
	}
	return time.Duration(fallback) * time.Minute
}

func durationFromSeconds(key string, fallback int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
		log.Printf("invalid %s=%s, using default %d seconds", key, v, fallback)
	}
	return time.Duration(fallback) * time.Second
}

func intWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
		log.Printf("invalid %s=%s, using default %d", key, v, fallback)
	}
	return fallback
}

// nonNegativeInt accepts 0, which callers treat as "no limit".
func nonNegativeInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			return parsed
		}
		log.Printf("invalid %s=%s, using default %d", key, v, fallback)
	}
	return fallback
}
