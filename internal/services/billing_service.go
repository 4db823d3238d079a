package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cycredit/backend/internal/audit"
	"github.com/cycredit/backend/internal/config"
	"github.com/cycredit/backend/internal/events"
	"github.com/cycredit/backend/internal/models"
	"github.com/cycredit/backend/internal/repository"
)

// BillingService is the only writer of Account.Cash and the only creator of
// ledger entries for real money movement.
//
// Transaction model (all positive): every amount is stored positive and
// balance = sum(PURCHASE + INTEREST + FEE) - sum(PAYMENT + INCOME + REWARD).
type BillingService struct {
	store repository.Store
	cfg   *config.EconomyConfig
	audit *audit.Logger
	queue *events.Queue
}

func NewBillingService(store repository.Store, cfg *config.EconomyConfig, auditor *audit.Logger, queue *events.Queue) *BillingService {
	return &BillingService{
		store: store,
		cfg:   cfg,
		audit: auditor,
		queue: queue,
	}
}

// Summary is the billing overview for one account. MonthlySpend covers only
// unbilled purchases, so it naturally resets once a statement is generated.
type Summary struct {
	Balance      decimal.Decimal `json:"balance"`
	MonthlySpend decimal.Decimal `json:"monthlySpend"`
	CreditLimit  decimal.Decimal `json:"creditLimit"`
}

// ledgerBalance applies the balance formula over entries, floored at zero
// and rounded to two decimals.
func ledgerBalance(entries []models.LedgerEntry, unbilledOnly bool) decimal.Decimal {
	balance := decimal.Zero
	for i := range entries {
		e := &entries[i]
		if unbilledOnly && !e.Unbilled() {
			continue
		}
		if e.Type.IncreasesBalance() {
			balance = balance.Add(e.Amount)
		} else {
			balance = balance.Sub(e.Amount)
		}
	}
	return models.Round2(models.FloorZero(balance))
}

func (s *BillingService) GetSummary(ctx context.Context, accountID int64) (*Summary, error) {
	entries, err := s.store.FindLedgerEntriesForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	monthlySpend := decimal.Zero
	for i := range entries {
		e := &entries[i]
		if e.Type == models.EntryPurchase && e.Unbilled() {
			monthlySpend = monthlySpend.Add(e.Amount)
		}
	}

	creditLimit := s.cfg.DefaultCreditLimit
	acct, err := s.store.FindAccount(ctx, accountID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if acct != nil {
		creditLimit = acct.CreditLimit
	}

	return &Summary{
		Balance:      ledgerBalance(entries, false),
		MonthlySpend: models.Round2(monthlySpend),
		CreditLimit:  creditLimit,
	}, nil
}

func (s *BillingService) ListTransactions(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	return s.store.FindLedgerEntriesForAccount(ctx, accountID)
}

// GetCurrentBalance returns the balance over all entries, billed or not.
func (s *BillingService) GetCurrentBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	entries, err := s.store.FindLedgerEntriesForAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return ledgerBalance(entries, false), nil
}

// GetUnbilledBalance returns the balance over entries not yet linked to a
// statement. This is what the next generated statement will carry.
func (s *BillingService) GetUnbilledBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	entries, err := s.store.FindLedgerEntriesForAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return ledgerBalance(entries, true), nil
}

// FindTransactionByNonce returns the entry carrying the given idempotency
// nonce, or nil when no such entry exists.
func (s *BillingService) FindTransactionByNonce(ctx context.Context, nonce string) (*models.LedgerEntry, error) {
	if nonce == "" {
		return nil, nil
	}
	entry, err := s.store.FindLedgerEntryByNonce(ctx, nonce)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// lockAccountChecked locks the account row, translating a missing row into
// the business taxonomy: the account may not exist at all, or exist as a
// user without a balance record.
func lockAccountChecked(ctx context.Context, r repository.Repository, accountID int64) (*models.Account, error) {
	acct, err := r.LockAccount(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		exists, uerr := r.UserExists(ctx, accountID)
		if uerr != nil {
			return nil, uerr
		}
		if !exists {
			return nil, newError(CodeAccountNotFound, "account not found: %d", accountID)
		}
		return nil, newError(CodeResourceNotFound, "no balance record for account %d", accountID)
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// ApplyCharge admits and records a purchase. If the account's cash covers
// the amount the charge draws from cash; otherwise it draws against credit
// as long as the resulting balance stays within the credit limit. A repeated
// nonce is absorbed: no new entry, no cash movement, the current cash is
// returned as the prior outcome.
func (s *BillingService) ApplyCharge(ctx context.Context, accountID int64, merchant string, amount decimal.Decimal, category string, when time.Time, nonce string) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, newError(CodeInvalidAmount, "amount must be positive: %s", amount)
	}
	amount = models.Round2(amount)
	if category == "" {
		category = "Purchase"
	}
	if when.IsZero() {
		when = time.Now()
	}

	var (
		cashAfter decimal.Decimal
		entryID   int64
		duplicate bool
	)
	err := s.store.InTx(ctx, func(r repository.Repository) error {
		acct, err := lockAccountChecked(ctx, r, accountID)
		if err != nil {
			return err
		}

		if nonce != "" {
			existing, err := r.FindLedgerEntryByNonce(ctx, nonce)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if existing != nil {
				cashAfter = acct.Cash
				duplicate = true
				return nil
			}
		}

		entries, err := r.FindLedgerEntriesForAccount(ctx, accountID)
		if err != nil {
			return err
		}
		currentBalance := ledgerBalance(entries, false)

		fromCash := acct.Cash.GreaterThanOrEqual(amount)
		if !fromCash && currentBalance.Add(amount).GreaterThan(acct.CreditLimit) {
			return newError(CodeOutOfCredit, "charge of %s exceeds credit limit %s (balance %s)",
				amount, acct.CreditLimit, currentBalance)
		}

		entry := &models.LedgerEntry{
			AccountID: accountID,
			Merchant:  merchant,
			Category:  category,
			Amount:    amount,
			Type:      models.EntryPurchase,
			Timestamp: when,
			Nonce:     nonce,
		}
		if err := r.SaveLedgerEntry(ctx, entry); err != nil {
			return err
		}
		entryID = entry.ID

		if fromCash {
			acct.Cash = models.Round2(acct.Cash.Sub(amount))
			if err := r.SaveAccount(ctx, acct); err != nil {
				return err
			}
		}
		cashAfter = acct.Cash
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateNonce) {
			// A concurrent retry with the same nonce won the insert. The
			// failed insert aborted this transaction, so the absorb has to
			// happen outside it: roll back, then report the prior outcome.
			log.Printf("[BILLING] Duplicate charge nonce for account %d, returning prior outcome", accountID)
			acct, ferr := s.store.FindAccount(ctx, accountID)
			if ferr != nil {
				return decimal.Zero, ferr
			}
			return acct.Cash, nil
		}
		if _, ok := AsBusinessError(err); !ok {
			s.audit.LogError(accountID, "APPLY_CHARGE", err)
		}
		return decimal.Zero, err
	}

	if duplicate {
		log.Printf("[BILLING] Duplicate charge nonce for account %d, returning prior outcome", accountID)
		return cashAfter, nil
	}

	s.audit.LogCharge(accountID, entryID, amount, merchant, "SUCCESS")
	s.queue.Publish(ctx, events.Event{
		Type:      events.TypeChargeApplied,
		AccountID: accountID,
		EntryID:   entryID,
		Amount:    amount,
	})
	return cashAfter, nil
}

// ApplyPayment records a standalone payment. Payments are cash-only and may
// not be financed by credit.
func (s *BillingService) ApplyPayment(ctx context.Context, accountID int64, amount decimal.Decimal, when time.Time) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return newError(CodeInvalidAmount, "amount must be positive: %s", amount)
	}
	amount = models.Round2(amount)
	if when.IsZero() {
		when = time.Now()
	}

	var entryID int64
	err := s.store.InTx(ctx, func(r repository.Repository) error {
		acct, err := lockAccountChecked(ctx, r, accountID)
		if err != nil {
			return err
		}

		if acct.Cash.LessThan(amount) {
			return newError(CodeInsufficientFunds, "insufficient funds: has %s, needs %s", acct.Cash, amount)
		}

		entry := &models.LedgerEntry{
			AccountID: accountID,
			Merchant:  "Statement Payment",
			Category:  "Payment",
			Amount:    amount,
			Type:      models.EntryPayment,
			Timestamp: when,
		}
		if err := r.SaveLedgerEntry(ctx, entry); err != nil {
			return err
		}
		entryID = entry.ID

		acct.Cash = models.Round2(acct.Cash.Sub(amount))
		return r.SaveAccount(ctx, acct)
	})
	if err != nil {
		if _, ok := AsBusinessError(err); !ok {
			s.audit.LogError(accountID, "APPLY_PAYMENT", err)
		}
		return err
	}

	s.audit.LogPayment(accountID, entryID, 0, amount, "SUCCESS")
	s.queue.Publish(ctx, events.Event{
		Type:      events.TypePaymentApplied,
		AccountID: accountID,
		EntryID:   entryID,
		Amount:    amount,
	})
	return nil
}

// CreateTransaction inserts a typed entry with a normalized (absolute)
// amount. For the cash-crediting types (INCOME, REWARD) the account's cash
// is credited in the same transaction as the insert, so a reward can never
// land in the ledger without its matching cash movement.
func (s *BillingService) CreateTransaction(ctx context.Context, accountID int64, merchant string, amount decimal.Decimal, category string, entryType models.EntryType) (*models.LedgerEntry, error) {
	if !entryType.Valid() {
		return nil, newError(CodeInvalidType, "unknown transaction type: %s", entryType)
	}
	normalized := models.Round2(amount.Abs())
	if normalized.LessThanOrEqual(decimal.Zero) {
		return nil, newError(CodeInvalidAmount, "amount must be positive: %s", amount)
	}

	entry := &models.LedgerEntry{
		AccountID: accountID,
		Merchant:  merchant,
		Category:  category,
		Amount:    normalized,
		Type:      entryType,
		Timestamp: time.Now(),
	}
	err := s.store.InTx(ctx, func(r repository.Repository) error {
		acct, err := lockAccountChecked(ctx, r, accountID)
		if err != nil {
			return err
		}

		if err := r.SaveLedgerEntry(ctx, entry); err != nil {
			return err
		}

		if entryType.CreditsCash() {
			acct.Cash = models.Round2(acct.Cash.Add(normalized))
			return r.SaveAccount(ctx, acct)
		}
		return nil
	})
	if err != nil {
		if _, ok := AsBusinessError(err); !ok {
			s.audit.LogError(accountID, "CREATE_TRANSACTION", err)
		}
		return nil, err
	}

	if entryType.CreditsCash() {
		s.queue.Publish(ctx, events.Event{
			Type:      events.TypeRewardGranted,
			AccountID: accountID,
			EntryID:   entry.ID,
			Amount:    normalized,
		})
	}
	return entry, nil
}

// UpdateTransaction is the administrative edit surface; it never touches
// cash or statement links.
func (s *BillingService) UpdateTransaction(ctx context.Context, id int64, merchant string, amount decimal.Decimal, category string) (*models.LedgerEntry, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, newError(CodeInvalidAmount, "amount must be positive: %s", amount)
	}

	var updated *models.LedgerEntry
	err := s.store.InTx(ctx, func(r repository.Repository) error {
		entry, err := r.FindLedgerEntry(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return newError(CodeTransactionNotFound, "transaction not found: %d", id)
		}
		if err != nil {
			return err
		}

		entry.Merchant = merchant
		entry.Amount = models.Round2(amount)
		entry.Category = category
		entry.Timestamp = time.Now()
		if err := r.SaveLedgerEntry(ctx, entry); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTransaction is an administrative override, not part of normal flow.
func (s *BillingService) DeleteTransaction(ctx context.Context, id int64) error {
	err := s.store.DeleteLedgerEntry(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return newError(CodeTransactionNotFound, "transaction not found: %d", id)
	}
	return err
}
