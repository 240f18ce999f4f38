// Package store persists extracted receipts.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lromero/receipt-bot/internal/receipt"
)

// Receipt is the persisted row for an extracted receipt. Rows are
// created once and never updated.
type Receipt struct {
	ID            uint            `gorm:"primaryKey"`
	IssuedAt      time.Time       `gorm:"not null"`
	VendorName    *string         `gorm:"type:text"`
	VendorTaxID   *string         `gorm:"type:text"`
	Currency      string          `gorm:"type:text;not null"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Tip           decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	PaymentMethod string          `gorm:"type:text;not null"`
	Note          string          `gorm:"type:text;not null"`
}

// ReceiptStore writes receipts to the database.
type ReceiptStore struct {
	db *gorm.DB
}

// NewReceiptStore constructs a store over an open connection.
func NewReceiptStore(db *gorm.DB) *ReceiptStore {
	return &ReceiptStore{db: db}
}

// Save maps the extracted record onto a row and inserts it, returning
// the row with its assigned identifier. Database failures propagate to
// the caller.
func (s *ReceiptStore) Save(ctx context.Context, data *receipt.ReceiptData) (*Receipt, error) {
	row := rowFromReceipt(data)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func rowFromReceipt(d *receipt.ReceiptData) *Receipt {
	return &Receipt{
		IssuedAt:      d.IssuedAt,
		VendorName:    d.VendorName,
		VendorTaxID:   d.VendorTaxID,
		Currency:      d.Currency,
		TotalAmount:   d.TotalAmount,
		Tip:           d.Tip,
		PaymentMethod: string(d.PaymentMethod),
		Note:          d.Note,
	}
}
