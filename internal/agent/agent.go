// Package agent implements structured receipt extraction through an
// OpenAI-compatible chat model.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/lromero/receipt-bot/internal/receipt"
)

// ErrExtractionFailed wraps any provider or parsing failure. It is
// distinct from an invalid-receipt verdict: failure means the agent
// could not determine anything at all.
var ErrExtractionFailed = errors.New("receipt extraction failed")

// extractTimeout bounds a single extraction call.
const extractTimeout = 30 * time.Second

// Verdict is the outcome of a successful extraction call.
type Verdict string

const (
	// VerdictExtracted means the image was a valid receipt and Receipt
	// carries the extracted fields.
	VerdictExtracted Verdict = "extracted"
	// VerdictInvalid means the provider determined the image is not a
	// valid or complete receipt.
	VerdictInvalid Verdict = "invalid"
)

// Result is the three-variant outcome of Extract: extracted-with-data,
// invalid, or (signalled through the error return) failed.
type Result struct {
	Verdict Verdict
	Receipt *receipt.ReceiptData
}

// Image references the receipt image, either by URL or as raw bytes.
type Image struct {
	url  string
	data []byte
	mime string
}

// ImageURL references a remotely hosted image.
func ImageURL(url string) Image { return Image{url: url} }

// ImageBytes references an in-memory image with its content type.
func ImageBytes(data []byte, mimeType string) Image {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return Image{data: data, mime: mimeType}
}

func (i Image) part() llms.ContentPart {
	if i.url != "" {
		return llms.ImageURLPart(i.url)
	}
	return llms.BinaryPart(i.mime, i.data)
}

// Extractor turns a receipt image (plus an optional textual hint) into
// a structured extraction result.
type Extractor interface {
	Extract(ctx context.Context, img Image, hint string) (Result, error)
}

const instructions = `You are an expert in reading receipts provided as images. Your goal is to extract key fields accurately and return them in strict JSON format.

Respond with exactly one JSON object and nothing else, in one of two shapes:

{"result": "receipt", "receipt": {"issued_at": "...", "vendor_name": "...", "vendor_tax_id": "...", "currency": "...", "total_amount": "...", "tip": "...", "payment_method": "...", "note": "..."}}

or, when the image is not a receipt, the image quality is too poor to
extract meaningful data, or essential information is missing:

{"result": "invalid_receipt"}

Field rules:
- issued_at: date and time the receipt was issued, RFC 3339 format.
- vendor_name: vendor name, or null if not present.
- vendor_tax_id: vendor tax ID (RUC). Ignore for Yape and Plin; null if not present.
- currency: ISO 4217 currency code (e.g. "PEN", "USD").
- total_amount: total amount as a decimal string with two fractional digits, e.g. "54.60".
- tip: tip amount as a decimal string. Use "0" if not present.
- payment_method: one of "credit_card", "debit_card", "transfer", "yape", "plin". Classify IZIPAY as "credit_card".
- note: what the receipt is about. The user query is the predominant source if provided; for Yape and Plin a small description in the receipt itself may be used otherwise.`

// extractionEnvelope is the JSON the model is instructed to return.
type extractionEnvelope struct {
	Result  string          `json:"result"`
	Receipt *receiptPayload `json:"receipt"`
}

type receiptPayload struct {
	IssuedAt      string  `json:"issued_at"`
	VendorName    *string `json:"vendor_name"`
	VendorTaxID   *string `json:"vendor_tax_id"`
	Currency      string  `json:"currency"`
	TotalAmount   string  `json:"total_amount"`
	Tip           string  `json:"tip"`
	PaymentMethod string  `json:"payment_method"`
	Note          string  `json:"note"`
}

// Agent extracts receipts through a chat model. Temperature is pinned
// to zero to minimize sampling variance; output is still not
// guaranteed bit-exact across calls.
type Agent struct {
	model llms.Model
}

var _ Extractor = (*Agent)(nil)

// New builds an Agent backed by an OpenAI-compatible provider. baseURL
// may be empty for the default endpoint.
func New(apiKey, model, baseURL string) (*Agent, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	return &Agent{model: llm}, nil
}

// NewWithModel builds an Agent over an existing model, mainly for tests.
func NewWithModel(m llms.Model) *Agent {
	return &Agent{model: m}
}

// Extract runs the extraction call. The hint, when non-empty, is
// forwarded to the model as the preferred source for the note field.
func (a *Agent) Extract(ctx context.Context, img Image, hint string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	parts := []llms.ContentPart{img.part()}
	if hint != "" {
		parts = append(parts, llms.TextPart(hint))
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, instructions),
		{Role: schema.ChatMessageTypeHuman, Parts: parts},
	}

	resp, err := a.model.GenerateContent(ctx, messages,
		llms.WithTemperature(0),
		llms.WithJSONMode(),
	)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("%w: empty model response", ErrExtractionFailed)
	}

	return parseExtraction(resp.Choices[0].Content)
}

func parseExtraction(raw string) (Result, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var envelope extractionEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return Result{}, fmt.Errorf("%w: unmarshal model output: %v", ErrExtractionFailed, err)
	}

	switch envelope.Result {
	case "invalid_receipt":
		return Result{Verdict: VerdictInvalid}, nil
	case "receipt":
		if envelope.Receipt == nil {
			return Result{}, fmt.Errorf("%w: receipt fields missing from model output", ErrExtractionFailed)
		}
		data, err := envelope.Receipt.toReceiptData()
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		return Result{Verdict: VerdictExtracted, Receipt: data}, nil
	default:
		return Result{}, fmt.Errorf("%w: unexpected result %q", ErrExtractionFailed, envelope.Result)
	}
}

// issuedAtLayouts are the timestamp shapes accepted from the model.
var issuedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (p *receiptPayload) toReceiptData() (*receipt.ReceiptData, error) {
	issuedAt, err := parseIssuedAt(p.IssuedAt)
	if err != nil {
		return nil, err
	}

	total, err := decimal.NewFromString(p.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse total_amount %q: %v", p.TotalAmount, err)
	}

	tip := decimal.Zero
	if p.Tip != "" {
		tip, err = decimal.NewFromString(p.Tip)
		if err != nil {
			return nil, fmt.Errorf("parse tip %q: %v", p.Tip, err)
		}
	}

	data := &receipt.ReceiptData{
		IssuedAt:      issuedAt,
		VendorName:    p.VendorName,
		VendorTaxID:   p.VendorTaxID,
		Currency:      p.Currency,
		TotalAmount:   total.Round(2),
		Tip:           tip.Round(2),
		PaymentMethod: receipt.PaymentMethod(p.PaymentMethod),
		Note:          p.Note,
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return data, nil
}

func parseIssuedAt(s string) (time.Time, error) {
	for _, layout := range issuedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse issued_at %q: unrecognized timestamp", s)
}
