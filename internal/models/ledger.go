package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType classifies a ledger entry. Amounts are always stored positive;
// the type alone decides the direction of the entry's effect on the balance.
type EntryType string

const (
	EntryPurchase EntryType = "PURCHASE"
	EntryPayment  EntryType = "PAYMENT"
	EntryIncome   EntryType = "INCOME"
	EntryInterest EntryType = "INTEREST"
	EntryFee      EntryType = "FEE"
	EntryReward   EntryType = "REWARD"
)

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case EntryPurchase, EntryPayment, EntryIncome, EntryInterest, EntryFee, EntryReward:
		return true
	}
	return false
}

// IncreasesBalance reports whether entries of this type add to the amount
// owed. Balance = sum(PURCHASE + INTEREST + FEE) - sum(PAYMENT + INCOME + REWARD).
func (t EntryType) IncreasesBalance() bool {
	return t == EntryPurchase || t == EntryInterest || t == EntryFee
}

// CreditsCash reports whether entries of this type pay money into the
// account's cash when created through the typed-create path.
func (t EntryType) CreditsCash() bool {
	return t == EntryIncome || t == EntryReward
}

// LedgerEntry is one record of money movement. Append-mostly: after creation
// the only lifecycle mutation is linking it to a statement, which happens
// exactly once.
type LedgerEntry struct {
	ID          int64           `json:"id" db:"id"`
	AccountID   int64           `json:"accountId" db:"account_id"`
	Merchant    string          `json:"merchant" db:"merchant"`
	Category    string          `json:"category" db:"category"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Type        EntryType       `json:"type" db:"entry_type"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
	StatementID *int64          `json:"statementId,omitempty" db:"statement_id"`
	Nonce       string          `json:"-" db:"idempotency_nonce"`
}

// Unbilled reports whether the entry has not yet been linked to a statement.
func (e *LedgerEntry) Unbilled() bool {
	return e.StatementID == nil
}
