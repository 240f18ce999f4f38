package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lromero/receipt-bot/internal/agent"
	"github.com/lromero/receipt-bot/internal/receipt"
	"github.com/lromero/receipt-bot/internal/telegram"
)

type sentMessage struct {
	chatID int64
	text   string
	mode   telegram.ParseMode
}

type fakeSender struct {
	photoURL     string
	photoURLErr  error
	sendErr      error
	resolvedIDs  []string
	sentMessages []sentMessage
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string, mode telegram.ParseMode) (*telegram.Message, error) {
	f.sentMessages = append(f.sentMessages, sentMessage{chatID: chatID, text: text, mode: mode})
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &telegram.Message{MessageID: 1, Chat: telegram.Chat{ID: chatID}}, nil
}

func (f *fakeSender) GetPhotoURL(_ context.Context, fileID string) (string, error) {
	f.resolvedIDs = append(f.resolvedIDs, fileID)
	return f.photoURL, f.photoURLErr
}

type fakeExtractor struct {
	result Result
	err    error
	calls  []extractCall
}

type extractCall struct {
	img  agent.Image
	hint string
}

// Result aliases keep the fake's literals short.
type Result = agent.Result

func (f *fakeExtractor) Extract(_ context.Context, img agent.Image, hint string) (agent.Result, error) {
	f.calls = append(f.calls, extractCall{img: img, hint: hint})
	return f.result, f.err
}

func photoMessage(chatID int64, fileIDs ...string) *telegram.Message {
	msg := &telegram.Message{Chat: telegram.Chat{ID: chatID}}
	for _, id := range fileIDs {
		msg.Photo = append(msg.Photo, telegram.PhotoSize{FileID: id})
	}
	return msg
}

func extractedResult() Result {
	vendor := "La Lucha"
	return Result{
		Verdict: agent.VerdictExtracted,
		Receipt: &receipt.ReceiptData{
			VendorName:    &vendor,
			Currency:      "PEN",
			PaymentMethod: receipt.PaymentCreditCard,
			Note:          "team lunch",
		},
	}
}

func TestHandleMessage(t *testing.T) {
	log := zerolog.Nop()

	t.Run("resolves the last photo variant", func(t *testing.T) {
		sender := &fakeSender{photoURL: "https://files.example.com/b.jpg"}
		extractor := &fakeExtractor{result: extractedResult()}
		b := New(sender, extractor, log)

		b.HandleMessage(context.Background(), photoMessage(42, "a", "b"))

		require.Equal(t, []string{"b"}, sender.resolvedIDs)
	})

	t.Run("replies with the formatted receipt as html", func(t *testing.T) {
		sender := &fakeSender{photoURL: "https://files.example.com/r.jpg"}
		extractor := &fakeExtractor{result: extractedResult()}
		b := New(sender, extractor, log)

		b.HandleMessage(context.Background(), photoMessage(42, "a"))

		require.Len(t, sender.sentMessages, 1)
		sent := sender.sentMessages[0]
		require.Equal(t, int64(42), sent.chatID)
		require.Equal(t, telegram.ParseModeHTML, sent.mode)
		require.Contains(t, sent.text, "<b>Receipt Details:</b>")
		require.Contains(t, sent.text, "La Lucha")
	})

	t.Run("invalid receipt gets the fixed text without parse mode", func(t *testing.T) {
		sender := &fakeSender{photoURL: "https://files.example.com/r.jpg"}
		extractor := &fakeExtractor{result: Result{Verdict: agent.VerdictInvalid}}
		b := New(sender, extractor, log)

		b.HandleMessage(context.Background(), photoMessage(42, "a"))

		require.Len(t, sender.sentMessages, 1)
		sent := sender.sentMessages[0]
		require.Equal(t, receipt.InvalidReceiptReply, sent.text)
		require.Equal(t, telegram.ParseModeNone, sent.mode)
	})

	t.Run("extraction failure gets the fixed text without parse mode", func(t *testing.T) {
		sender := &fakeSender{photoURL: "https://files.example.com/r.jpg"}
		extractor := &fakeExtractor{err: agent.ErrExtractionFailed}
		b := New(sender, extractor, log)

		b.HandleMessage(context.Background(), photoMessage(42, "a"))

		require.Len(t, sender.sentMessages, 1)
		sent := sender.sentMessages[0]
		require.Equal(t, receipt.ProcessingFailedReply, sent.text)
		require.Equal(t, telegram.ParseModeNone, sent.mode)
	})

	t.Run("forwards caption as extraction hint", func(t *testing.T) {
		sender := &fakeSender{photoURL: "https://files.example.com/r.jpg"}
		extractor := &fakeExtractor{result: extractedResult()}
		b := New(sender, extractor, log)

		msg := photoMessage(42, "a")
		msg.Caption = "dinner with friends"
		b.HandleMessage(context.Background(), msg)

		require.Len(t, extractor.calls, 1)
		require.Equal(t, "dinner with friends", extractor.calls[0].hint)
	})

	t.Run("message text takes precedence over caption", func(t *testing.T) {
		sender := &fakeSender{photoURL: "https://files.example.com/r.jpg"}
		extractor := &fakeExtractor{result: extractedResult()}
		b := New(sender, extractor, log)

		msg := photoMessage(42, "a")
		msg.Text = "from text"
		msg.Caption = "from caption"
		b.HandleMessage(context.Background(), msg)

		require.Equal(t, "from text", extractor.calls[0].hint)
	})

	t.Run("message without photo is ignored", func(t *testing.T) {
		sender := &fakeSender{}
		extractor := &fakeExtractor{}
		b := New(sender, extractor, log)

		b.HandleMessage(context.Background(), &telegram.Message{
			Chat: telegram.Chat{ID: 42},
			Text: "just text",
		})

		require.Empty(t, sender.resolvedIDs)
		require.Empty(t, sender.sentMessages)
		require.Empty(t, extractor.calls)
	})

	t.Run("photo url resolution failure stops silently", func(t *testing.T) {
		sender := &fakeSender{photoURLErr: errors.New("telegram down")}
		extractor := &fakeExtractor{}
		b := New(sender, extractor, log)

		b.HandleMessage(context.Background(), photoMessage(42, "a"))

		require.Empty(t, sender.sentMessages)
		require.Empty(t, extractor.calls)
	})

	t.Run("missing file path stops silently", func(t *testing.T) {
		sender := &fakeSender{photoURL: ""}
		extractor := &fakeExtractor{}
		b := New(sender, extractor, log)

		b.HandleMessage(context.Background(), photoMessage(42, "a"))

		require.Empty(t, sender.sentMessages)
		require.Empty(t, extractor.calls)
	})

	t.Run("send failure is swallowed", func(t *testing.T) {
		sender := &fakeSender{
			photoURL: "https://files.example.com/r.jpg",
			sendErr:  errors.New("bad gateway"),
		}
		extractor := &fakeExtractor{result: extractedResult()}
		b := New(sender, extractor, log)

		require.NotPanics(t, func() {
			b.HandleMessage(context.Background(), photoMessage(42, "a"))
		})
	})

	t.Run("nil message is a no-op", func(t *testing.T) {
		sender := &fakeSender{}
		b := New(sender, &fakeExtractor{}, log)

		require.NotPanics(t, func() {
			b.HandleMessage(context.Background(), nil)
		})
		require.Empty(t, sender.sentMessages)
	})
}
