package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/cycredit/backend/internal/audit"
	"github.com/cycredit/backend/internal/config"
	"github.com/cycredit/backend/internal/middleware"
	"github.com/cycredit/backend/internal/repository"
	"github.com/cycredit/backend/internal/services"
)

func testEconomy() *config.EconomyConfig {
	return &config.EconomyConfig{
		DefaultCreditLimit: decimal.NewFromInt(1500),
		StartingCash:       decimal.NewFromInt(1000),
		MinimumDueFloor:    decimal.NewFromInt(5),
		MinimumDuePercent:  decimal.NewFromFloat(0.10),
		GraceDays:          7,
		DefaultAPR:         decimal.NewFromFloat(0.199),
		MaxTurnsPerMonth:   10,
	}
}

func bearerToken(t *testing.T, userID int64) string {
	viper.Set("jwt.secret_key", "test-secret")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	assert.NoError(t, err)
	return "Bearer " + signed
}

func newBillingRouter(t *testing.T) (http.Handler, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	store := repository.NewPostgres(db)
	billing := services.NewBillingService(store, testEconomy(), audit.NewLogger(), nil)
	h := NewBillingHandler(billing)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(nil))
		r.Get("/billing/summary", h.GetSummary)
		r.Post("/billing/charge", h.Charge)
	})
	return r, mock, func() { db.Close() }
}

func TestBillingHandler_GetSummary(t *testing.T) {
	router, mock, done := newBillingRouter(t)
	defer done()

	mock.ExpectQuery(`SELECT (.+) FROM ledger_entries WHERE account_id = \$1 ORDER BY timestamp DESC`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "merchant", "category", "amount", "entry_type", "timestamp", "statement_id", "idempotency_nonce"}).
			AddRow(1, 42, "Groceries", "Essentials", "100", "PURCHASE", time.Now(), nil, nil).
			AddRow(2, 42, "Salary", "Income", "25", "INCOME", time.Now(), nil, nil))
	mock.ExpectQuery(`SELECT (.+) FROM accounts WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "cash", "credit_limit", "current_month", "turns_left", "version", "updated_at"}).
			AddRow(42, "900", "1500", 1, 10, 1, time.Now()))

	req := httptest.NewRequest("GET", "/billing/summary", nil)
	req.Header.Set("Authorization", bearerToken(t, 42))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var summary services.Summary
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(75)), "got %s", summary.Balance)
	assert.True(t, summary.MonthlySpend.Equal(decimal.NewFromInt(100)), "got %s", summary.MonthlySpend)
	assert.True(t, summary.CreditLimit.Equal(decimal.NewFromInt(1500)), "got %s", summary.CreditLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingHandler_Charge(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		router, _, done := newBillingRouter(t)
		defer done()

		req := httptest.NewRequest("POST", "/billing/charge", strings.NewReader(`{"merchant":"Shop","amount":10}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects missing merchant", func(t *testing.T) {
		router, _, done := newBillingRouter(t)
		defer done()

		req := httptest.NewRequest("POST", "/billing/charge", strings.NewReader(`{"amount":10}`))
		req.Header.Set("Authorization", bearerToken(t, 42))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps credit denial to 402 with code", func(t *testing.T) {
		router, mock, done := newBillingRouter(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM accounts WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "cash", "credit_limit", "current_month", "turns_left", "version", "updated_at"}).
				AddRow(42, "0", "100", 1, 10, 1, time.Now()))
		mock.ExpectQuery(`SELECT (.+) FROM ledger_entries WHERE account_id = \$1 ORDER BY timestamp DESC`).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "merchant", "category", "amount", "entry_type", "timestamp", "statement_id", "idempotency_nonce"}).
				AddRow(1, 42, "Prior", "Purchase", "90", "PURCHASE", time.Now(), nil, nil))
		mock.ExpectRollback()

		req := httptest.NewRequest("POST", "/billing/charge", strings.NewReader(`{"merchant":"Trip","amount":20}`))
		req.Header.Set("Authorization", bearerToken(t, 42))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusPaymentRequired, w.Code)

		var resp services.ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, string(services.CodeOutOfCredit), resp.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
