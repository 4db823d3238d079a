package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/cycredit/backend/internal/repository"
)

func newGameService(t *testing.T) (*GameService, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	svc := NewGameService(repository.NewPostgres(db), testEconomy())
	return svc, mock, func() { db.Close() }
}

func TestGameService_ConsumeTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements remaining turns", func(t *testing.T) {
		svc, mock, done := newGameService(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery(accountCols + ` FOR UPDATE`).
			WithArgs(int64(1)).
			WillReturnRows(accountRows("500", "1500", 3))
		mock.ExpectExec(`UPDATE accounts SET cash = \$1`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := svc.ConsumeTurn(ctx, 1)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects when no turns left", func(t *testing.T) {
		svc, mock, done := newGameService(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery(accountCols + ` FOR UPDATE`).
			WithArgs(int64(1)).
			WillReturnRows(accountRows("500", "1500", 0))
		mock.ExpectRollback()

		err := svc.ConsumeTurn(ctx, 1)
		assert.True(t, IsCode(err, CodeNoTurns))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGameService_AdvanceMonth(t *testing.T) {
	ctx := context.Background()

	svc, mock, done := newGameService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(accountCols + ` FOR UPDATE`).
		WithArgs(int64(1)).
		WillReturnRows(accountRows("500", "1500", 2))
	mock.ExpectExec(`UPDATE accounts SET cash = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	acct, err := svc.AdvanceMonth(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 2, acct.CurrentMonth)
	assert.Equal(t, 10, acct.TurnsLeft)
	assert.NoError(t, mock.ExpectationsWereMet())
}
