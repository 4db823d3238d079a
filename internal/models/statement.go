package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StatementStatus string

const (
	StatementOpen    StatementStatus = "OPEN"
	StatementPaid    StatementStatus = "PAID"
	StatementOverdue StatementStatus = "OVERDUE"
)

// Statement is one billing-period summary. MonthNumber is strictly
// increasing per account and never reused. TotalDue decreases as payments
// apply; the statement flips to PAID once TotalDue falls within Epsilon of
// zero.
type Statement struct {
	ID            int64           `json:"id" db:"id"`
	AccountID     int64           `json:"accountId" db:"account_id"`
	MonthNumber   int             `json:"monthNumber" db:"month_number"`
	PeriodStart   time.Time       `json:"periodStart" db:"period_start"`
	PeriodEnd     time.Time       `json:"periodEnd" db:"period_end"`
	StatementDate time.Time       `json:"statementDate" db:"statement_date"`
	DueDate       time.Time       `json:"dueDate" db:"due_date"`
	TotalDue      decimal.Decimal `json:"totalDue" db:"total_due"`
	MinimumDue    decimal.Decimal `json:"minimumDue" db:"minimum_due"`
	InterestRate  decimal.Decimal `json:"interestRate" db:"interest_rate"`
	Fees          decimal.Decimal `json:"fees" db:"fees"`
	Status        StatementStatus `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// Settled reports whether the statement's remaining due amount is within
// the settlement tolerance of zero.
func (s *Statement) Settled() bool {
	return s.TotalDue.LessThanOrEqual(Epsilon)
}
