package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	Timestamp   time.Time       `json:"timestamp"`
	EventType   string          `json:"event_type"`
	AccountID   int64           `json:"account_id"`
	EntryID     int64           `json:"entry_id,omitempty"`
	StatementID int64           `json:"statement_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Details     any             `json:"details,omitempty"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogCharge(accountID, entryID int64, amount decimal.Decimal, merchant, status string) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "CHARGE",
		AccountID: accountID,
		EntryID:   entryID,
		Amount:    amount,
		Status:    status,
		Details:   map[string]string{"merchant": merchant},
	})
}

func (a *Logger) LogPayment(accountID, entryID, statementID int64, amount decimal.Decimal, status string) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   "PAYMENT",
		AccountID:   accountID,
		EntryID:     entryID,
		StatementID: statementID,
		Amount:      amount,
		Status:      status,
	})
}

func (a *Logger) LogStatement(accountID, statementID int64, totalDue decimal.Decimal, action string) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   "STATEMENT",
		AccountID:   accountID,
		StatementID: statementID,
		Amount:      totalDue,
		Status:      action,
	})
}

func (a *Logger) LogError(accountID int64, operation string, err error) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "ERROR",
		AccountID: accountID,
		Status:    "FAILED",
		Details:   map[string]string{"operation": operation, "error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[AUDIT] Failed to marshal audit event: %v", err)
		return
	}
	log.Printf("[AUDIT] %s", string(data))
}
