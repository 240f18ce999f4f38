// Package api exposes the HTTP surface of the bot: the Telegram
// webhook endpoint and a liveness probe.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lromero/receipt-bot/internal/telegram"
)

// SecretTokenHeader carries the webhook secret Telegram echoes back on
// every delivery when one was registered.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// MessageHandler consumes one scheduled message. Implementations own
// their whole error boundary: the webhook response has already been
// sent by the time they run.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *telegram.Message)
}

// Webhook is the inbound HTTP endpoint for Telegram updates.
type Webhook struct {
	handler MessageHandler
	secret  string
	log     zerolog.Logger
}

// NewWebhook constructs the endpoint. An empty secret disables header
// validation.
func NewWebhook(handler MessageHandler, secret string, log zerolog.Logger) *Webhook {
	return &Webhook{
		handler: handler,
		secret:  secret,
		log:     log,
	}
}

// Register wires the webhook routes onto the router.
func (w *Webhook) Register(router gin.IRouter) {
	router.GET("/healthz", w.HealthCheck)
	router.POST("/webhook", w.Receive)
}

// HealthCheck reports liveness regardless of downstream service health.
func (w *Webhook) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Receive validates the secret header, parses the update and schedules
// the message handler without blocking the response. Telegram gets its
// acknowledgment before (and regardless of whether) processing
// succeeds; that asymmetry is the contract, not an accident.
func (w *Webhook) Receive(c *gin.Context) {
	if w.secret != "" {
		header := c.GetHeader(SecretTokenHeader)
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": SecretTokenHeader + " header missing"})
			return
		}
		if header != w.secret {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": SecretTokenHeader + " header invalid"})
			return
		}
	}

	update, err := w.parseBody(c)
	if err != nil {
		w.log.Error().Err(err).Msg("invalid webhook payload")
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload"})
		return
	}

	if update.Message != nil {
		msg := update.Message
		w.log.Debug().
			Str("request_id", requestid.Get(c)).
			Int64("chat_id", msg.Chat.ID).
			Msg("scheduling message handler")

		// Fire and forget: the handler runs detached from this
		// request with its own background context.
		go w.handler.HandleMessage(context.Background(), msg)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (w *Webhook) parseBody(c *gin.Context) (*telegram.Update, error) {
	bodyBytes, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	var update telegram.Update
	if err := json.Unmarshal(bodyBytes, &update); err != nil {
		return nil, err
	}
	return &update, nil
}
