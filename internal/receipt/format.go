package receipt

import (
	"fmt"
	"html"
	"strings"
)

// Fixed reply texts sent back to the user, always without a parse mode.
const (
	InvalidReceiptReply   = "The provided image was not recognized as a valid receipt."
	ProcessingFailedReply = "Sorry, I couldn't process the receipt. Please try again later."
)

// issuedAtLayout renders timestamps as "January 02, 2006 at 03:04 PM".
const issuedAtLayout = "January 02, 2006 at 03:04 PM"

// FormatHTML renders the extracted receipt as a Telegram HTML message.
func FormatHTML(d *ReceiptData) string {
	var b strings.Builder

	b.WriteString("🧾 <b>Receipt Details:</b>\n")
	fmt.Fprintf(&b, "📅 <b>Issued At:</b> %s\n", d.IssuedAt.Format(issuedAtLayout))
	fmt.Fprintf(&b, "🏢 <b>Vendor Name:</b> %s\n", escapeOptional(d.VendorName))
	fmt.Fprintf(&b, "🆔 <b>Vendor Tax ID:</b> %s\n", escapeOptional(d.VendorTaxID))
	fmt.Fprintf(&b, "🪙 <b>Currency:</b> %s\n", html.EscapeString(d.Currency))
	fmt.Fprintf(&b, "💰 <b>Total Amount:</b> %s\n", d.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "💸 <b>Tip:</b> %s\n", d.Tip.StringFixed(2))
	fmt.Fprintf(&b, "💳 <b>Payment Method:</b> %s\n", d.PaymentMethod.Display())
	fmt.Fprintf(&b, "📝 <b>Note:</b> %s", html.EscapeString(d.Note))

	return b.String()
}

func escapeOptional(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return html.EscapeString(*s)
}
