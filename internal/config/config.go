package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerPort string
	Store      StoreConfig
	Auth       AuthConfig
	Gemini     GeminiConfig
	Logging    LoggingConfig
}

type StoreConfig struct {
	Dir string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// Latency is the fixed suspend applied to signup and login so the UI
	// exercises its loading state the same way it would against a remote
	// backend.
	Latency time.Duration
}

type GeminiConfig struct {
	BaseURL    string
	APIKey     string
	TextModel  string
	ImageModel string
	Timeout    time.Duration
}

type LoggingConfig struct {
	Level        string
	Encoding     string
	Development  bool
	EnableCaller bool
	ServiceName  string
}

func Load() (*Config, error) {
	logging := LoggingConfig{
		Level:        strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		Encoding:     strings.ToLower(envOrDefault("LOG_ENCODING", "console")),
		Development:  parseBool(envOrDefault("LOG_DEVELOPMENT", "false"), false),
		EnableCaller: parseBool(envOrDefault("LOG_CALLER", "false"), false),
		ServiceName:  envOrDefault("SERVICE_NAME", "latteboxd"),
	}

	cfg := &Config{
		ServerPort: envOrDefault("PORT", "8080"),
		Store: StoreConfig{
			Dir: envOrDefault("LATTEBOXD_DATA_DIR", "data"),
		},
		Auth: AuthConfig{
			JWTSecret: envOrDefault("JWT_SECRET", "dev-secret"),
			TokenTTL:  parseDuration(envOrDefault("TOKEN_TTL", "24h"), 24*time.Hour),
			Latency:   parseDuration(envOrDefault("AUTH_LATENCY", "600ms"), 600*time.Millisecond),
		},
		Gemini: GeminiConfig{
			BaseURL:    strings.TrimRight(envOrDefault("GEMINI_API_BASE", "https://generativelanguage.googleapis.com/v1beta"), "/"),
			APIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			TextModel:  envOrDefault("GEMINI_TEXT_MODEL", "gemini-3-flash-preview"),
			ImageModel: envOrDefault("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
			Timeout:    parseDuration(envOrDefault("GEMINI_TIMEOUT", "60s"), 60*time.Second),
		},
		Logging: logging,
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	missing := make([]string, 0, 1)

	if c.Gemini.APIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}
