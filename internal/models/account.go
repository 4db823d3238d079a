package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the per-player balance record. Cash and the credit limit are
// mutated only by the billing service; the version column backs optimistic
// locking on writes.
type Account struct {
	ID           int64           `json:"id" db:"id"`
	Cash         decimal.Decimal `json:"cash" db:"cash"`
	CreditLimit  decimal.Decimal `json:"creditLimit" db:"credit_limit"`
	CurrentMonth int             `json:"currentMonth" db:"current_month"`
	TurnsLeft    int             `json:"turnsLeft" db:"turns_left"`
	Version      int             `json:"-" db:"version"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}
