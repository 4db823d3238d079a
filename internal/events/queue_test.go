package events

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestQueue_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("pushes event onto the queue", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		q := NewQueue(rdb)

		mock.Regexp().ExpectRPush(defaultQueueKey, `.*"type":"charge\.applied".*`).SetVal(1)

		err := q.Publish(ctx, Event{
			Type:      TypeChargeApplied,
			AccountID: 1,
			EntryID:   11,
			Amount:    decimal.NewFromInt(100),
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fills id and timestamp", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		q := NewQueue(rdb)

		mock.Regexp().ExpectRPush(defaultQueueKey, `.*"id":"[0-9a-f-]{36}".*"occurredAt":.*`).SetVal(1)

		err := q.Publish(ctx, Event{Type: TypeStatementPaid, AccountID: 1, StatementID: 5})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil queue drops events", func(t *testing.T) {
		var q *Queue
		assert.NoError(t, q.Publish(ctx, Event{Type: TypeRewardGranted, AccountID: 1}))
	})

	t.Run("queue without client drops events", func(t *testing.T) {
		q := NewQueue(nil)
		assert.NoError(t, q.Publish(ctx, Event{Type: TypeRewardGranted, AccountID: 1}))
	})
}
