package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cycredit/backend/internal/models"
	"github.com/cycredit/backend/internal/repository"
)

// StoreService sells catalog items. A purchase spends a turn and then
// charges the total through the billing engine under the caller's nonce,
// so retries of the same purchase are absorbed without a second charge or
// a second turn.
type StoreService struct {
	db      *sql.DB
	store   repository.Store
	billing *BillingService
	gate    TurnGate
}

func NewStoreService(db *sql.DB, store repository.Store, billing *BillingService, gate TurnGate) *StoreService {
	return &StoreService{
		db:      db,
		store:   store,
		billing: billing,
		gate:    gate,
	}
}

var defaultCatalog = []models.StoreItem{
	{Name: "Groceries", Category: "Essentials", Price: decimal.NewFromFloat(85.00)},
	{Name: "Bus Pass", Category: "Transport", Price: decimal.NewFromFloat(45.00)},
	{Name: "Phone Plan", Category: "Utilities", Price: decimal.NewFromFloat(35.00)},
	{Name: "Concert Ticket", Category: "Entertainment", Price: decimal.NewFromFloat(120.00)},
	{Name: "New Laptop", Category: "Electronics", Price: decimal.NewFromFloat(899.99)},
	{Name: "Weekend Trip", Category: "Travel", Price: decimal.NewFromFloat(350.00)},
}

// SeedItems inserts the default catalog if the store is empty.
func (s *StoreService) SeedItems(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM store_items`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, item := range defaultCatalog {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO store_items (name, category, price, created_at)
			VALUES ($1, $2, $3, $4)`,
			item.Name, item.Category, item.Price, time.Now())
		if err != nil {
			return err
		}
	}
	log.Printf("[STORE] Seeded %d catalog items", len(defaultCatalog))
	return nil
}

func (s *StoreService) ListItems(ctx context.Context) ([]models.StoreItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, price, created_at
		FROM store_items
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.StoreItem{}
	for rows.Next() {
		var item models.StoreItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.Price, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *StoreService) GetItem(ctx context.Context, id int64) (*models.StoreItem, error) {
	var item models.StoreItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, price, created_at
		FROM store_items
		WHERE id = $1`, id).Scan(&item.ID, &item.Name, &item.Category, &item.Price, &item.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, newError(CodeItemNotFound, "store item not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Purchase buys quantity of an item. The nonce is mandatory here because a
// store purchase also spends a turn; without it a retried request could
// burn a second turn for the same buy. Returns the cash remaining after
// the charge.
func (s *StoreService) Purchase(ctx context.Context, accountID, itemID int64, quantity int, nonce string) (decimal.Decimal, error) {
	if nonce == "" {
		return decimal.Zero, newError(CodeNonceRequired, "purchase requires an idempotency nonce")
	}

	prior, err := s.billing.FindTransactionByNonce(ctx, nonce)
	if err != nil {
		return decimal.Zero, err
	}
	if prior != nil {
		acct, err := s.store.FindAccount(ctx, accountID)
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, newError(CodeResourceNotFound, "no balance record for account %d", accountID)
		}
		if err != nil {
			return decimal.Zero, err
		}
		log.Printf("[STORE] Duplicate purchase nonce for account %d, returning prior outcome", accountID)
		return acct.Cash, nil
	}

	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return decimal.Zero, err
	}
	if quantity < 1 {
		quantity = 1
	}
	total := item.Price.Mul(decimal.NewFromInt(int64(quantity)))

	if err := s.gate.ConsumeTurn(ctx, accountID); err != nil {
		return decimal.Zero, err
	}

	return s.billing.ApplyCharge(ctx, accountID, item.Name, total, item.Category, time.Now(), nonce)
}

func (s *StoreService) UpdateItem(ctx context.Context, id int64, name, category string, price decimal.Decimal) (*models.StoreItem, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, newError(CodeInvalidAmount, "price must be positive: %s", price)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE store_items
		SET name = $1, category = $2, price = $3
		WHERE id = $4`,
		name, category, models.Round2(price), id)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, newError(CodeItemNotFound, "store item not found: %d", id)
	}
	return s.GetItem(ctx, id)
}

func (s *StoreService) DeleteItem(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM store_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return newError(CodeItemNotFound, "store item not found: %d", id)
	}
	return nil
}
