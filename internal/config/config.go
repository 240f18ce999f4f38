// Package config provides application configuration loading from environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// DefaultLLMModel is the extraction model used when LLM_MODEL is not set.
const DefaultLLMModel = "gpt-4.1-mini"

// Config holds all configuration for the application. It is loaded once
// at startup and treated as immutable afterwards.
type Config struct {
	TelegramBotToken    string
	TelegramSecretToken string

	DatabaseURL     string
	DatabaseOptions map[string]string

	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	UseTunnel         bool
	TunnelURL         string
	OnRender          bool
	RenderExternalURL string

	DisableTelemetry bool
	LogLevel         string
	Port             string
}

// Load reads configuration from a .env file (if present) and the
// process environment, then validates required fields.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramSecretToken: os.Getenv("TELEGRAM_BOT_SECRET_TOKEN"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		LLMAPIKey:           os.Getenv("OPENAI_API_KEY"),
		LLMBaseURL:          os.Getenv("OPENAI_BASE_URL"),
		LLMModel:            os.Getenv("LLM_MODEL"),
		TunnelURL:           os.Getenv("NGROK_URL"),
		RenderExternalURL:   os.Getenv("RENDER_EXTERNAL_URL"),
		LogLevel:            os.Getenv("LOG_LEVEL"),
		Port:                os.Getenv("PORT"),
	}

	cfg.UseTunnel = isTruthy(os.Getenv("USE_NGROK"))
	cfg.OnRender = isTruthy(os.Getenv("RENDER"))
	cfg.DisableTelemetry = isTruthy(os.Getenv("DISABLE_TELEMETRY"))

	if cfg.LLMModel == "" {
		cfg.LLMModel = DefaultLLMModel
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	if optsStr := os.Getenv("DATABASE_OPTIONS"); optsStr != "" {
		opts := map[string]string{}
		if err := json.Unmarshal([]byte(optsStr), &opts); err != nil {
			return nil, fmt.Errorf("DATABASE_OPTIONS is not a valid JSON object: %w", err)
		}
		cfg.DatabaseOptions = opts
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var (
	once    sync.Once
	cached  *Config
	loadErr error
)

// Get returns the process-wide configuration, loading it on first call.
// Subsequent calls return the same instance.
func Get() (*Config, error) {
	once.Do(func() {
		cached, loadErr = Load()
	})
	return cached, loadErr
}

// PublicURL resolves the externally reachable base URL of the service.
// Returns an empty string when the service has no public address, in
// which case webhook registration is skipped.
func (c *Config) PublicURL() string {
	if c.OnRender && c.RenderExternalURL != "" {
		return strings.TrimSuffix(c.RenderExternalURL, "/")
	}
	if c.UseTunnel && c.TunnelURL != "" {
		return strings.TrimSuffix(c.TunnelURL, "/")
	}
	return ""
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
