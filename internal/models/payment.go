package models

import (
	"fmt"
	"time"
)

// Payment represents one billing period charge for one socio.
// At most one payment exists per (socio, year, month); the unique index
// below is the authority for that, not the generation pre-check.
type Payment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SocioID     uint       `gorm:"not null;uniqueIndex:idx_payments_period,priority:1" json:"socioId"`
	ShareID     uint       `gorm:"not null;index" json:"shareId"`
	Year        int        `gorm:"not null;uniqueIndex:idx_payments_period,priority:2" json:"year"`
	Month       int        `gorm:"not null;uniqueIndex:idx_payments_period,priority:3" json:"month"`
	IsPaid      bool       `gorm:"not null;default:false" json:"isPaid"`
	PaymentDate *time.Time `json:"paymentDate"` // set only while paid
	BatchID     string     `gorm:"type:varchar(36);index" json:"batchId"`

	// Relationships
	Socio *Socio `gorm:"foreignKey:SocioID" json:"socio,omitempty"`
	Share *Share `gorm:"foreignKey:ShareID" json:"share,omitempty"`
}

// Period returns the billing period of the payment
func (p Payment) Period() Period {
	return Period{Year: p.Year, Month: p.Month}
}

// Period is a (year, month) billing period
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// PeriodOf returns the billing period containing t
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Valid reports whether the period has a positive year and a month in 1..12
func (p Period) Valid() bool {
	return p.Year >= 1 && p.Month >= 1 && p.Month <= 12
}

// Ordinal is the recency sort key: year*12 + month
func (p Period) Ordinal() int {
	return p.Year*12 + p.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
