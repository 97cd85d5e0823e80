package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	HordeBaseURL    string
	HordeAPIKey     string
	HordeClientName string

	MaxConcurrentJobs int
	AllowNSFW         bool

	PromoteInterval  time.Duration
	PollInterval     time.Duration
	PollDebounce     time.Duration
	CheckGateTTL     time.Duration
	RateLimitBackoff time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		HordeBaseURL:    getEnv("HORDE_BASE_URL", "https://aihorde.net/api/v2"),
		HordeAPIKey:     os.Getenv("HORDE_API_KEY"),
		HordeClientName: getEnv("HORDE_CLIENT_AGENT", "hordeclient:1.0:unknown"),

		MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 5),
		AllowNSFW:         getEnvBool("ALLOW_NSFW", false),

		PromoteInterval:  time.Millisecond * time.Duration(getEnvInt("PROMOTE_INTERVAL_MS", 2050)),
		PollInterval:     time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000)),
		PollDebounce:     time.Millisecond * time.Duration(getEnvInt("POLL_DEBOUNCE_MS", 1500)),
		CheckGateTTL:     time.Millisecond * time.Duration(getEnvInt("CHECK_GATE_TTL_MS", 750)),
		RateLimitBackoff: time.Second * time.Duration(getEnvInt("RATE_LIMIT_BACKOFF_SECONDS", 15)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.MaxConcurrentJobs <= 0 {
		return nil, fmt.Errorf("MAX_CONCURRENT_JOBS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
