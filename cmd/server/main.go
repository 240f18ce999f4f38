package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lromero/receipt-bot/internal/agent"
	"github.com/lromero/receipt-bot/internal/api"
	"github.com/lromero/receipt-bot/internal/bot"
	"github.com/lromero/receipt-bot/internal/config"
	"github.com/lromero/receipt-bot/internal/logger"
	"github.com/lromero/receipt-bot/internal/telegram"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	log := logger.Log

	tg := telegram.NewClient(cfg.TelegramBotToken, telegram.WithDebug(!cfg.DisableTelemetry))

	extractor, err := agent.New(cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMBaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create extraction agent")
	}

	handler := bot.New(tg, extractor, log)
	webhook := api.NewWebhook(handler, cfg.TelegramSecretToken, log)

	router := initRouter(cfg)
	webhook.Register(router)

	// Webhook registration is best effort: the server still comes up
	// when Telegram is unreachable or no public URL is configured.
	registered := registerWebhook(tg, cfg, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting webhook server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	if registered {
		deregisterWebhook(tg, log)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}

func initRouter(cfg *config.Config) *gin.Engine {
	if cfg.DisableTelemetry {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if !cfg.DisableTelemetry {
		router.Use(gin.Logger())
	}

	router.Use(requestid.New())
	// Allow CORS for all origins
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", api.SecretTokenHeader},
		ExposeHeaders:   []string{"Content-Length"},
	}))

	return router
}

func registerWebhook(tg *telegram.Client, cfg *config.Config, log zerolog.Logger) bool {
	publicURL := cfg.PublicURL()
	if publicURL == "" {
		log.Info().Msg("no public URL configured, skipping webhook registration")
		return false
	}

	webhookURL := publicURL + "/webhook"
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := tg.SetWebhook(ctx, webhookURL, cfg.TelegramSecretToken); err != nil {
		log.Error().Err(err).Str("url", webhookURL).Msg("failed to register webhook")
		return false
	}
	log.Info().Str("url", webhookURL).Msg("webhook registered")
	return true
}

func deregisterWebhook(tg *telegram.Client, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := tg.DeleteWebhook(ctx, true); err != nil {
		log.Error().Err(err).Msg("failed to delete webhook")
		return
	}
	log.Info().Msg("webhook deleted")
}
