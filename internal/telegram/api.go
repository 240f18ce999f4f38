// Package telegram implements a client for the Telegram Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
)

// ParseMode selects how Telegram renders the message text.
type ParseMode string

const (
	ParseModeNone       ParseMode = ""
	ParseModeMarkdown   ParseMode = "Markdown"
	ParseModeMarkdownV2 ParseMode = "MarkdownV2"
	ParseModeHTML       ParseMode = "HTML"
)

const defaultBaseURL = "https://api.telegram.org"

// APIError is raised for any transport failure or non-2xx response
// from the Telegram Bot API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("telegram %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("telegram %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// apiResponse is the envelope Telegram wraps every result in.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description,omitempty"`
}

// Client calls the Telegram Bot API for a single bot credential.
type Client struct {
	token       string
	client      *resty.Client
	baseURL     string
	fileBaseURL string
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API host, mainly for tests.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = fmt.Sprintf("%s/bot%s", base, c.token)
		c.fileBaseURL = fmt.Sprintf("%s/file/bot%s", base, c.token)
	}
}

// WithDebug enables resty request/response tracing.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.client.SetDebug(debug)
	}
}

// NewClient creates a Telegram Bot API client for the given bot token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:       token,
		client:      resty.New(),
		baseURL:     fmt.Sprintf("%s/bot%s", defaultBaseURL, token),
		fileBaseURL: fmt.Sprintf("%s/file/bot%s", defaultBaseURL, token),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request funnels every Bot API call: form data for POSTs, query
// params for GETs, one typed error for anything that goes wrong.
func (c *Client) request(ctx context.Context, method, endpoint string, form, query map[string]string) (json.RawMessage, error) {
	if c.token == "" {
		return nil, &APIError{Endpoint: endpoint, Err: fmt.Errorf("bot token is not set")}
	}

	req := c.client.R().SetContext(ctx)
	if form != nil {
		req.SetFormData(form)
	}
	if query != nil {
		req.SetQueryParams(query)
	}

	resp, err := req.Execute(method, fmt.Sprintf("%s/%s", c.baseURL, endpoint))
	if err != nil {
		return nil, &APIError{Endpoint: endpoint, Err: err}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	var envelope apiResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode(), Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if !envelope.OK {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode(), Body: envelope.Description}
	}

	return envelope.Result, nil
}

// SendMessage sends a text message to a chat. parse_mode is omitted
// from the request when mode is ParseModeNone.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, mode ParseMode) (*Message, error) {
	form := map[string]string{
		"chat_id": strconv.FormatInt(chatID, 10),
		"text":    text,
	}
	if mode != ParseModeNone {
		form["parse_mode"] = string(mode)
	}

	result, err := c.request(ctx, resty.MethodPost, "sendMessage", form, nil)
	if err != nil {
		return nil, err
	}

	var sent Message
	if err := json.Unmarshal(result, &sent); err != nil {
		return nil, &APIError{Endpoint: "sendMessage", Err: fmt.Errorf("unmarshal result: %w", err)}
	}
	return &sent, nil
}

// GetFile resolves a file_id to its file descriptor.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	result, err := c.request(ctx, resty.MethodGet, "getFile", nil, map[string]string{"file_id": fileID})
	if err != nil {
		return nil, err
	}

	var file File
	if err := json.Unmarshal(result, &file); err != nil {
		return nil, &APIError{Endpoint: "getFile", Err: fmt.Errorf("unmarshal result: %w", err)}
	}
	return &file, nil
}

// GetPhotoURL composes the direct download URL for a photo file.
// Returns an empty string when Telegram reports no path for the file.
func (c *Client) GetPhotoURL(ctx context.Context, fileID string) (string, error) {
	file, err := c.GetFile(ctx, fileID)
	if err != nil {
		return "", err
	}
	if file.FilePath == "" {
		return "", nil
	}
	return fmt.Sprintf("%s/%s", c.fileBaseURL, file.FilePath), nil
}

// SetWebhook registers the webhook URL for the bot. When secret is
// non-empty Telegram will send it back on every webhook request in the
// X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	form := map[string]string{"url": webhookURL}
	if secret != "" {
		form["secret_token"] = secret
	}
	_, err := c.request(ctx, resty.MethodPost, "setWebhook", form, nil)
	return err
}

// DeleteWebhook removes the webhook registration.
func (c *Client) DeleteWebhook(ctx context.Context, dropPendingUpdates bool) error {
	form := map[string]string{"drop_pending_updates": strconv.FormatBool(dropPendingUpdates)}
	_, err := c.request(ctx, resty.MethodPost, "deleteWebhook", form, nil)
	return err
}

// GetWebhookInfo returns the current webhook registration state.
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	result, err := c.request(ctx, resty.MethodGet, "getWebhookInfo", nil, nil)
	if err != nil {
		return nil, err
	}

	var info WebhookInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, &APIError{Endpoint: "getWebhookInfo", Err: fmt.Errorf("unmarshal result: %w", err)}
	}
	return &info, nil
}
