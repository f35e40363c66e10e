package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Poll     PollConfig
	DB       DatabaseConfig
	Logging  LoggingConfig
	API      APIConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type UpstreamConfig struct {
	URL     string
	Timeout time.Duration
	// UserAgent overrides the Go default; the upstream rejects unknown
	// agents on some paths.
	UserAgent string
	// InsecureTLS skips certificate verification for the upstream host
	// only. The city's certificate chain is intermittently broken.
	InsecureTLS bool
}

type PollConfig struct {
	Enabled  bool
	Interval time.Duration
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

type APIConfig struct {
	RateLimitRPS int
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Upstream: UpstreamConfig{
			URL:         getEnv("UPSTREAM_URL", "https://alertablu.blumenau.sc.gov.br/static/data/situacao_atual.json"),
			Timeout:     getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
			UserAgent:   getEnv("UPSTREAM_USER_AGENT", "Mozilla/5.0 (compatible; AlertaBluDash/1.0)"),
			InsecureTLS: getEnvBool("UPSTREAM_INSECURE_TLS", true),
		},
		Poll: PollConfig{
			Enabled:  getEnvBool("POLL_ENABLED", true),
			Interval: getEnvDuration("POLL_INTERVAL", 5*time.Minute),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/alertablu.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		API: APIConfig{
			RateLimitRPS: getEnvInt("RATE_LIMIT_RPS", 10),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Upstream.URL == "" {
		return fmt.Errorf("upstream URL must not be empty")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	if c.Poll.Enabled && c.Poll.Interval < time.Minute {
		return fmt.Errorf("poll interval must be at least 1 minute")
	}
	if c.API.RateLimitRPS < 1 {
		return fmt.Errorf("rate limit must be at least 1 req/s")
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
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
