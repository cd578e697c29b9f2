package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the client and dev backend settings
type Config struct {
	APIURL         string
	BaseURL        string
	RequestTimeout time.Duration
	LogLevel       string
	LogFile        string
	Environment    string
	ServiceName    string
	LokiURL        string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	CacheTTL       time.Duration
	MetricsAddr    string
	OTLPEndpoint   string
	DevServerAddr  string
	RateLimit      int
	RateWindow     time.Duration
}

// LoadConfig loads environment variables (and a .env file if present) into a Config
func LoadConfig() (*Config, error) {
	// A missing .env file is fine, the process environment still applies
	_ = godotenv.Load()

	config := &Config{
		APIURL:        strings.TrimRight(getEnvWithDefault("TINYLINK_API_URL", "http://localhost:8080"), "/"),
		BaseURL:       strings.TrimRight(os.Getenv("TINYLINK_BASE_URL"), "/"),
		LogLevel:      getEnvWithDefault("LOG_LEVEL", "info"),
		LogFile:       getEnvWithDefault("LOG_FILE", "tinylink.log"),
		Environment:   getEnvWithDefault("ENV", "development"),
		ServiceName:   getEnvWithDefault("SERVICE_NAME", "tinylink"),
		LokiURL:       os.Getenv("LOKI_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		MetricsAddr:   os.Getenv("METRICS_ADDR"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		DevServerAddr: getEnvWithDefault("DEVSERVER_ADDR", ":8080"),
	}

	var err error
	if config.RequestTimeout, err = getDurationWithDefault("TINYLINK_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if config.CacheTTL, err = getDurationWithDefault("CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if config.RateWindow, err = getDurationWithDefault("RATE_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if config.RedisDB, err = getIntWithDefault("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if config.RateLimit, err = getIntWithDefault("RATE_LIMIT", 120); err != nil {
		return nil, err
	}

	if config.BaseURL == "" {
		config.BaseURL = config.APIURL
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the settings that the client cannot work without
func (c *Config) Validate() error {
	parsed, err := url.Parse(c.APIURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid TINYLINK_API_URL %q: must be an absolute http(s) URL", c.APIURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("invalid TINYLINK_TIMEOUT: must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("invalid CACHE_TTL: must be positive")
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("invalid RATE_WINDOW: must be positive")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("invalid RATE_LIMIT: must be positive")
	}
	return nil
}

// getEnvWithDefault returns environment variable value or default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getIntWithDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
