package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "token123")
	t.Setenv("DATABASE_URL", "postgres://localhost/receipts")
}

func TestLoad(t *testing.T) {
	t.Run("loads required config from env", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "token123", cfg.TelegramBotToken)
		require.Equal(t, "postgres://localhost/receipts", cfg.DatabaseURL)
	})

	t.Run("fails when bot token is missing", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "")
		t.Setenv("DATABASE_URL", "postgres://localhost/receipts")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN is required")
	})

	t.Run("fails when database url is missing", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "token123")
		t.Setenv("DATABASE_URL", "")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "DATABASE_URL is required")
	})

	t.Run("applies defaults", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, DefaultLLMModel, cfg.LLMModel)
		require.Equal(t, "8080", cfg.Port)
		require.False(t, cfg.UseTunnel)
		require.False(t, cfg.OnRender)
		require.False(t, cfg.DisableTelemetry)
	})

	t.Run("parses boolean flags", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("USE_NGROK", "true")
		t.Setenv("RENDER", "1")
		t.Setenv("DISABLE_TELEMETRY", "yes")

		cfg, err := Load()
		require.NoError(t, err)
		require.True(t, cfg.UseTunnel)
		require.True(t, cfg.OnRender)
		require.True(t, cfg.DisableTelemetry)
	})

	t.Run("parses database options as JSON", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DATABASE_OPTIONS", `{"sslmode": "disable", "connect_timeout": "5"}`)

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, map[string]string{"sslmode": "disable", "connect_timeout": "5"}, cfg.DatabaseOptions)
	})

	t.Run("rejects malformed database options", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("DATABASE_OPTIONS", "not-json")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "DATABASE_OPTIONS")
	})

	t.Run("loads secret token and llm settings", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TELEGRAM_BOT_SECRET_TOKEN", "secret123")
		t.Setenv("OPENAI_API_KEY", "sk-test")
		t.Setenv("OPENAI_BASE_URL", "https://models.example.com/v1")
		t.Setenv("LLM_MODEL", "gpt-test")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "secret123", cfg.TelegramSecretToken)
		require.Equal(t, "sk-test", cfg.LLMAPIKey)
		require.Equal(t, "https://models.example.com/v1", cfg.LLMBaseURL)
		require.Equal(t, "gpt-test", cfg.LLMModel)
	})
}

func TestPublicURL(t *testing.T) {
	t.Run("prefers render external url", func(t *testing.T) {
		cfg := &Config{
			OnRender:          true,
			RenderExternalURL: "https://bot.onrender.com/",
			UseTunnel:         true,
			TunnelURL:         "https://abc123.ngrok.io",
		}
		require.Equal(t, "https://bot.onrender.com", cfg.PublicURL())
	})

	t.Run("falls back to tunnel url", func(t *testing.T) {
		cfg := &Config{UseTunnel: true, TunnelURL: "https://abc123.ngrok.io"}
		require.Equal(t, "https://abc123.ngrok.io", cfg.PublicURL())
	})

	t.Run("empty without a public address", func(t *testing.T) {
		cfg := &Config{TunnelURL: "https://abc123.ngrok.io"}
		require.Empty(t, cfg.PublicURL())
	})
}
