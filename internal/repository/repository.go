package repository

import (
	"context"
	"errors"

	"github.com/cycredit/backend/internal/models"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateNonce is returned when inserting a ledger entry whose
	// idempotency nonce is already taken. Callers absorb it as a no-op.
	ErrDuplicateNonce = errors.New("duplicate idempotency nonce")
	// ErrVersionConflict is returned when an optimistic account update
	// matched no rows.
	ErrVersionConflict = errors.New("account version conflict")
)

// Repository is the persistence surface the billing core depends on.
// Implementations scope all reads and writes to a single querier, so the
// same interface serves both plain connections and open transactions.
type Repository interface {
	FindAccount(ctx context.Context, id int64) (*models.Account, error)
	// LockAccount reads the account row with a row-level lock. Only
	// meaningful inside InTx; outside a transaction it degrades to a read.
	LockAccount(ctx context.Context, id int64) (*models.Account, error)
	SaveAccount(ctx context.Context, acct *models.Account) error
	UserExists(ctx context.Context, id int64) (bool, error)

	FindLedgerEntriesForAccount(ctx context.Context, accountID int64) ([]models.LedgerEntry, error)
	FindLedgerEntry(ctx context.Context, id int64) (*models.LedgerEntry, error)
	FindLedgerEntryByNonce(ctx context.Context, nonce string) (*models.LedgerEntry, error)
	SaveLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error
	DeleteLedgerEntry(ctx context.Context, id int64) error
	// LinkUnbilledEntries atomically stamps every unbilled entry of the
	// account with the statement ID and returns how many were linked.
	LinkUnbilledEntries(ctx context.Context, accountID, statementID int64) (int64, error)

	FindStatement(ctx context.Context, id int64) (*models.Statement, error)
	FindStatementsForAccount(ctx context.Context, accountID int64) ([]models.Statement, error)
	FindActiveStatement(ctx context.Context, accountID int64, status models.StatementStatus) (*models.Statement, error)
	SaveStatement(ctx context.Context, stmt *models.Statement) error
}

// Store is a Repository that can open transactional scopes. Every mutating
// service operation runs inside one InTx call so that reading the account,
// aggregating the ledger, and writing the outcome happen atomically.
type Store interface {
	Repository
	InTx(ctx context.Context, fn func(Repository) error) error
}
