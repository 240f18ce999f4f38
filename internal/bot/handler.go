// Package bot orchestrates handling of incoming Telegram messages.
package bot

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lromero/receipt-bot/internal/agent"
	"github.com/lromero/receipt-bot/internal/receipt"
	"github.com/lromero/receipt-bot/internal/telegram"
)

// TelegramSender is the subset of the Telegram client the handler needs.
type TelegramSender interface {
	SendMessage(ctx context.Context, chatID int64, text string, mode telegram.ParseMode) (*telegram.Message, error)
	GetPhotoURL(ctx context.Context, fileID string) (string, error)
}

// Bot handles incoming messages: it resolves the receipt photo, runs
// the extraction agent and replies with the outcome.
type Bot struct {
	tg        TelegramSender
	extractor agent.Extractor
	log       zerolog.Logger
}

// New constructs a Bot from its collaborators.
func New(tg TelegramSender, extractor agent.Extractor, log zerolog.Logger) *Bot {
	return &Bot{
		tg:        tg,
		extractor: extractor,
		log:       log,
	}
}

// HandleMessage processes one incoming message. It runs detached from
// the webhook request/response cycle: every failure is logged and
// swallowed here, nothing propagates to a caller.
//
// Messages without a photo get no reply at all; the same holds when
// the photo URL cannot be resolved.
func (b *Bot) HandleMessage(ctx context.Context, msg *telegram.Message) {
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID
	log := b.log.With().Int64("chat_id", chatID).Logger()

	hint := msg.Text
	if hint == "" {
		hint = msg.Caption
	}

	if len(msg.Photo) == 0 {
		log.Debug().Msg("message has no photo, ignoring")
		return
	}

	// The last photo variant is the highest resolution.
	fileID := msg.Photo[len(msg.Photo)-1].FileID
	photoURL, err := b.tg.GetPhotoURL(ctx, fileID)
	if err != nil {
		log.Error().Err(err).Str("file_id", fileID).Msg("failed to resolve photo url")
		return
	}
	if photoURL == "" {
		log.Warn().Str("file_id", fileID).Msg("telegram returned no file path for photo")
		return
	}

	text, mode := b.runExtraction(ctx, log, photoURL, hint)

	if _, err := b.tg.SendMessage(ctx, chatID, text, mode); err != nil {
		log.Error().Err(err).Msg("failed to send reply")
	}
}

func (b *Bot) runExtraction(ctx context.Context, log zerolog.Logger, photoURL, hint string) (string, telegram.ParseMode) {
	result, err := b.extractor.Extract(ctx, agent.ImageURL(photoURL), hint)
	if err != nil {
		log.Error().Err(err).Msg("receipt extraction failed")
		return receipt.ProcessingFailedReply, telegram.ParseModeNone
	}

	switch result.Verdict {
	case agent.VerdictExtracted:
		return receipt.FormatHTML(result.Receipt), telegram.ParseModeHTML
	default:
		return receipt.InvalidReceiptReply, telegram.ParseModeNone
	}
}
