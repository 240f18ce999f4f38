// Package receipt defines the domain types for extracted receipts and
// the formatting of user-facing replies.
package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the payment instrument recognized on a receipt.
type PaymentMethod string

// Recognized payment methods. The extraction provider is instructed to
// classify the IZIPAY brand as credit_card.
const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentDebitCard  PaymentMethod = "debit_card"
	PaymentTransfer   PaymentMethod = "transfer"
	PaymentYape       PaymentMethod = "yape"
	PaymentPlin       PaymentMethod = "plin"
)

// PaymentMethods lists every recognized payment method.
var PaymentMethods = []PaymentMethod{
	PaymentCreditCard,
	PaymentDebitCard,
	PaymentTransfer,
	PaymentYape,
	PaymentPlin,
}

// Valid reports whether p is one of the recognized payment methods.
func (p PaymentMethod) Valid() bool {
	for _, m := range PaymentMethods {
		if p == m {
			return true
		}
	}
	return false
}

// Display renders the payment method for humans: underscores become
// spaces and each word is title-cased, e.g. "credit_card" -> "Credit Card".
func (p PaymentMethod) Display() string {
	words := strings.Split(string(p), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ParseDisplay is the inverse of Display. It reports false when the
// text does not normalize to a recognized payment method.
func ParseDisplay(s string) (PaymentMethod, bool) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	p := PaymentMethod(normalized)
	return p, p.Valid()
}

// ReceiptData is the structured record extracted from a valid receipt
// image. Monetary amounts carry exactly two fractional digits.
type ReceiptData struct {
	IssuedAt      time.Time       `json:"issued_at"`
	VendorName    *string         `json:"vendor_name"`
	VendorTaxID   *string         `json:"vendor_tax_id"`
	Currency      string          `json:"currency"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Tip           decimal.Decimal `json:"tip"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Note          string          `json:"note"`
}

// Monetary bounds: total_amount fits decimal(10,2), tip fits decimal(5,2).
var (
	maxTotalAmount = decimal.New(1, 8) // 10^8, exclusive
	maxTip         = decimal.New(1, 3) // 10^3, exclusive
)

// Validate checks the record's invariants: non-negative amounts within
// their digit caps, at most two fractional digits and a recognized
// payment method.
func (d *ReceiptData) Validate() error {
	if d.TotalAmount.IsNegative() {
		return fmt.Errorf("total_amount must not be negative, got %s", d.TotalAmount)
	}
	if !d.TotalAmount.Equal(d.TotalAmount.Round(2)) {
		return fmt.Errorf("total_amount must have at most two fractional digits, got %s", d.TotalAmount)
	}
	if d.TotalAmount.GreaterThanOrEqual(maxTotalAmount) {
		return fmt.Errorf("total_amount exceeds decimal(10,2): %s", d.TotalAmount)
	}
	if d.Tip.IsNegative() {
		return fmt.Errorf("tip must not be negative, got %s", d.Tip)
	}
	if !d.Tip.Equal(d.Tip.Round(2)) {
		return fmt.Errorf("tip must have at most two fractional digits, got %s", d.Tip)
	}
	if d.Tip.GreaterThanOrEqual(maxTip) {
		return fmt.Errorf("tip exceeds decimal(5,2): %s", d.Tip)
	}
	if !d.PaymentMethod.Valid() {
		return fmt.Errorf("unrecognized payment method %q", d.PaymentMethod)
	}
	return nil
}
