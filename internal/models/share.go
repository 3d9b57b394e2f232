package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Share represents a fee tier. Payments reference it by ID, so editing
// the amount does not change what was already generated. Shares are
// deleted for good and the payments foreign key keeps referenced ones.
type Share struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Amount     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"` // 0 means free / scholarship
	NumberDays int             `gorm:"not null;default:0" json:"numberDays"`     // 0 means unlimited
	QuoteDate  time.Time       `gorm:"index" json:"quoteDate"`                   // effective-from date
}
