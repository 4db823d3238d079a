package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StoreItem is a purchasable catalog entry. Buying one spends a turn and
// charges the item's price through the billing engine.
type StoreItem struct {
	ID        int64           `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Category  string          `json:"category" db:"category"`
	Price     decimal.Decimal `json:"price" db:"price"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}
