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

// TurnGate limits how many billing actions an account may take per month.
// Consuming a turn is a standalone transaction; it happens before the
// guarded operation so two transactions never nest.
type TurnGate interface {
	ConsumeTurn(ctx context.Context, accountID int64) error
}

// StatementService owns the monthly statement lifecycle: lazy generation
// from unbilled entries, payment, and the overdue transition.
type StatementService struct {
	store repository.Store
	cfg   *config.EconomyConfig
	gate  TurnGate
	audit *audit.Logger
	queue *events.Queue
}

func NewStatementService(store repository.Store, cfg *config.EconomyConfig, gate TurnGate, auditor *audit.Logger, queue *events.Queue) *StatementService {
	return &StatementService{
		store: store,
		cfg:   cfg,
		gate:  gate,
		audit: auditor,
		queue: queue,
	}
}

// PaymentResult reports the outcome of a statement payment.
type PaymentResult struct {
	StatementID  int64                  `json:"statementId"`
	Amount       decimal.Decimal        `json:"amount"`
	RemainingDue decimal.Decimal        `json:"remainingDue"`
	Status       models.StatementStatus `json:"status"`
}

// GetCurrentStatement resolves the account's active statement. Precedence
// is OVERDUE, then OPEN, then generation from unbilled activity. An active
// statement whose total due has dropped to the settlement threshold is
// flipped to PAID on the way through. Returns (nil, nil) when there is no
// active statement and nothing to bill.
func (s *StatementService) GetCurrentStatement(ctx context.Context, accountID int64, asOf time.Time) (*models.Statement, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}

	var (
		current   *models.Statement
		generated bool
	)
	err := s.store.InTx(ctx, func(r repository.Repository) error {
		if _, err := lockAccountChecked(ctx, r, accountID); err != nil {
			return err
		}

		for _, status := range []models.StatementStatus{models.StatementOverdue, models.StatementOpen} {
			stmt, err := r.FindActiveStatement(ctx, accountID, status)
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if stmt.Settled() {
				stmt.TotalDue = decimal.Zero
				stmt.Status = models.StatementPaid
				if err := r.SaveStatement(ctx, stmt); err != nil {
					return err
				}
				log.Printf("[STATEMENT] Statement %d settled, marked PAID", stmt.ID)
				continue
			}
			current = stmt
			return nil
		}

		entries, err := r.FindLedgerEntriesForAccount(ctx, accountID)
		if err != nil {
			return err
		}
		unbilled := ledgerBalance(entries, true)
		if unbilled.LessThanOrEqual(models.Epsilon) {
			return nil
		}

		stmt, err := s.generateStatement(ctx, r, accountID, unbilled, asOf)
		if err != nil {
			return err
		}
		current = stmt
		generated = true
		return nil
	})
	if err != nil {
		if _, ok := AsBusinessError(err); !ok {
			s.audit.LogError(accountID, "GET_CURRENT_STATEMENT", err)
		}
		return nil, err
	}

	if generated {
		s.audit.LogStatement(accountID, current.ID, current.TotalDue, "GENERATED")
		s.queue.Publish(ctx, events.Event{
			Type:        events.TypeStatementGenerated,
			AccountID:   accountID,
			StatementID: current.ID,
			Amount:      current.TotalDue,
		})
	}
	return current, nil
}

// generateStatement bills all unbilled entries into a new OPEN statement.
// Runs inside the caller's transaction with the account row locked.
func (s *StatementService) generateStatement(ctx context.Context, r repository.Repository, accountID int64, totalDue decimal.Decimal, asOf time.Time) (*models.Statement, error) {
	monthNumber := 1
	previous, err := r.FindStatementsForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(previous) > 0 {
		monthNumber = previous[0].MonthNumber + 1
	}

	totalDue = models.Round2(totalDue)
	minimumDue := models.Round2(totalDue.Mul(s.cfg.MinimumDuePercent))
	if minimumDue.LessThan(s.cfg.MinimumDueFloor) {
		minimumDue = s.cfg.MinimumDueFloor
	}
	if minimumDue.GreaterThan(totalDue) {
		minimumDue = totalDue
	}

	periodStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location())
	stmt := &models.Statement{
		AccountID:     accountID,
		MonthNumber:   monthNumber,
		PeriodStart:   periodStart,
		PeriodEnd:     asOf,
		StatementDate: asOf,
		DueDate:       asOf.AddDate(0, 0, s.cfg.GraceDays),
		TotalDue:      totalDue,
		MinimumDue:    minimumDue,
		InterestRate:  s.cfg.DefaultAPR,
		Fees:          decimal.Zero,
		Status:        models.StatementOpen,
	}
	if err := r.SaveStatement(ctx, stmt); err != nil {
		return nil, err
	}

	linked, err := r.LinkUnbilledEntries(ctx, accountID, stmt.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("[STATEMENT] Generated statement %d for account %d: month %d, total %s, %d entries",
		stmt.ID, accountID, monthNumber, totalDue, linked)
	return stmt, nil
}

// validatePayment runs the payment rejection ladder against a loaded
// statement. It is applied twice: once before the turn is consumed so a
// doomed payment costs nothing, and again inside the payment transaction
// against fresh state.
func validatePayment(stmt *models.Statement, accountID int64, amount decimal.Decimal) error {
	if stmt.AccountID != accountID {
		return newError(CodeStatementNotFound, "statement not found: %d", stmt.ID)
	}
	if stmt.Status == models.StatementPaid {
		return newError(CodeAlreadyPaid, "statement %d is already paid", stmt.ID)
	}
	if stmt.TotalDue.LessThanOrEqual(decimal.Zero) {
		return newError(CodeNothingDue, "statement %d has nothing due", stmt.ID)
	}
	if amount.GreaterThan(stmt.TotalDue.Add(models.Epsilon)) {
		return newError(CodePaymentTooHigh, "payment %s exceeds amount due %s", amount, stmt.TotalDue)
	}
	return nil
}

// PayStatement applies a cash payment to a statement. The payment spends a
// turn; a payment that fails preflight validation does not.
func (s *StatementService) PayStatement(ctx context.Context, accountID, statementID int64, amount decimal.Decimal) (*PaymentResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, newError(CodeInvalidAmount, "amount must be positive: %s", amount)
	}
	amount = models.Round2(amount)

	stmt, err := s.store.FindStatement(ctx, statementID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(CodeStatementNotFound, "statement not found: %d", statementID)
	}
	if err != nil {
		return nil, err
	}
	if err := validatePayment(stmt, accountID, amount); err != nil {
		return nil, err
	}

	if err := s.gate.ConsumeTurn(ctx, accountID); err != nil {
		return nil, err
	}

	var (
		result  PaymentResult
		entryID int64
	)
	err = s.store.InTx(ctx, func(r repository.Repository) error {
		acct, err := lockAccountChecked(ctx, r, accountID)
		if err != nil {
			return err
		}

		stmt, err := r.FindStatement(ctx, statementID)
		if errors.Is(err, repository.ErrNotFound) {
			return newError(CodeStatementNotFound, "statement not found: %d", statementID)
		}
		if err != nil {
			return err
		}
		if err := validatePayment(stmt, accountID, amount); err != nil {
			return err
		}

		if acct.Cash.LessThan(amount) {
			return newError(CodeInsufficientFunds, "insufficient funds: has %s, needs %s", acct.Cash, amount)
		}

		stmtID := stmt.ID
		entry := &models.LedgerEntry{
			AccountID:   accountID,
			Merchant:    "Statement Payment",
			Category:    "Payment",
			Amount:      amount,
			Type:        models.EntryPayment,
			Timestamp:   time.Now(),
			StatementID: &stmtID,
		}
		if err := r.SaveLedgerEntry(ctx, entry); err != nil {
			return err
		}
		entryID = entry.ID

		acct.Cash = models.Round2(acct.Cash.Sub(amount))
		if err := r.SaveAccount(ctx, acct); err != nil {
			return err
		}

		stmt.TotalDue = models.Round2(stmt.TotalDue.Sub(amount))
		if stmt.Settled() {
			stmt.TotalDue = decimal.Zero
			stmt.Status = models.StatementPaid
		}
		if err := r.SaveStatement(ctx, stmt); err != nil {
			return err
		}

		result = PaymentResult{
			StatementID:  stmt.ID,
			Amount:       amount,
			RemainingDue: stmt.TotalDue,
			Status:       stmt.Status,
		}
		return nil
	})
	if err != nil {
		if _, ok := AsBusinessError(err); !ok {
			s.audit.LogError(accountID, "PAY_STATEMENT", err)
		}
		return nil, err
	}

	s.audit.LogPayment(accountID, entryID, result.StatementID, amount, "SUCCESS")
	s.queue.Publish(ctx, events.Event{
		Type:        events.TypePaymentApplied,
		AccountID:   accountID,
		EntryID:     entryID,
		StatementID: result.StatementID,
		Amount:      amount,
	})
	if result.Status == models.StatementPaid {
		s.audit.LogStatement(accountID, result.StatementID, decimal.Zero, "PAID")
		s.queue.Publish(ctx, events.Event{
			Type:        events.TypeStatementPaid,
			AccountID:   accountID,
			StatementID: result.StatementID,
		})
	}
	return &result, nil
}

// GetStatement loads one statement, scoped to the owning account.
func (s *StatementService) GetStatement(ctx context.Context, accountID, statementID int64) (*models.Statement, error) {
	stmt, err := s.store.FindStatement(ctx, statementID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(CodeStatementNotFound, "statement not found: %d", statementID)
	}
	if err != nil {
		return nil, err
	}
	if stmt.AccountID != accountID {
		return nil, newError(CodeStatementNotFound, "statement not found: %d", statementID)
	}
	return stmt, nil
}

// History returns the account's statements, newest month first.
func (s *StatementService) History(ctx context.Context, accountID int64) ([]models.Statement, error) {
	return s.store.FindStatementsForAccount(ctx, accountID)
}

// MarkOverdue transitions an unpaid OPEN statement past its due date to
// OVERDUE. A settled one flips to PAID instead. Called at month close.
func (s *StatementService) MarkOverdue(ctx context.Context, accountID int64, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}

	marked := 0
	err := s.store.InTx(ctx, func(r repository.Repository) error {
		if _, err := lockAccountChecked(ctx, r, accountID); err != nil {
			return err
		}

		stmt, err := r.FindActiveStatement(ctx, accountID, models.StatementOpen)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if stmt.Settled() {
			stmt.TotalDue = decimal.Zero
			stmt.Status = models.StatementPaid
			return r.SaveStatement(ctx, stmt)
		}
		if stmt.DueDate.After(asOf) {
			return nil
		}

		stmt.Status = models.StatementOverdue
		if err := r.SaveStatement(ctx, stmt); err != nil {
			return err
		}
		marked++
		s.audit.LogStatement(accountID, stmt.ID, stmt.TotalDue, "OVERDUE")
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}
