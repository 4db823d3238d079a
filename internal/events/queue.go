package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultQueueKey = "billing_events"

// Event is one billing lifecycle notification pushed onto the redis queue
// for downstream consumers (notifications, analytics). Publishing happens
// after the owning database transaction commits.
type Event struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	AccountID   int64           `json:"accountId"`
	EntryID     int64           `json:"entryId,omitempty"`
	StatementID int64           `json:"statementId,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

const (
	TypeChargeApplied      = "charge.applied"
	TypePaymentApplied     = "payment.applied"
	TypeRewardGranted      = "reward.granted"
	TypeStatementGenerated = "statement.generated"
	TypeStatementPaid      = "statement.paid"
)

// Queue is a redis-backed billing event queue. A nil Queue or a Queue
// without a redis client drops events silently, so the service keeps
// working when redis is down.
type Queue struct {
	rdb *redis.Client
	key string
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb, key: defaultQueueKey}
}

func (q *Queue) Publish(ctx context.Context, event Event) error {
	if q == nil || q.rdb == nil {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := q.rdb.RPush(ctx, q.key, string(data)).Err(); err != nil {
		log.Printf("[EVENTS] Failed to publish %s event for account %d: %v", event.Type, event.AccountID, err)
		return err
	}
	return nil
}
