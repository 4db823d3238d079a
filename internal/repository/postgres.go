package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/cycredit/backend/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Postgres implements Store over database/sql.
type Postgres struct {
	db *sql.DB
	q  querier
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, q: db}
}

// InTx runs fn against a repository bound to a single transaction. The
// transaction commits if fn returns nil and rolls back otherwise.
func (p *Postgres) InTx(ctx context.Context, fn func(Repository) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&Postgres{db: p.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

const accountColumns = `id, cash, credit_limit, current_month, turns_left, version, updated_at`

func (p *Postgres) FindAccount(ctx context.Context, id int64) (*models.Account, error) {
	row := p.q.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1`, id)
	return scanAccount(row)
}

func (p *Postgres) LockAccount(ctx context.Context, id int64) (*models.Account, error) {
	row := p.q.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, id)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Cash, &a.CreditLimit, &a.CurrentMonth, &a.TurnsLeft, &a.Version, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (p *Postgres) SaveAccount(ctx context.Context, acct *models.Account) error {
	if acct.ID == 0 {
		return p.q.QueryRowContext(ctx, `
			INSERT INTO accounts (cash, credit_limit, current_month, turns_left, version, updated_at)
			VALUES ($1, $2, $3, $4, 1, $5)
			RETURNING id`,
			acct.Cash, acct.CreditLimit, acct.CurrentMonth, acct.TurnsLeft, time.Now()).Scan(&acct.ID)
	}

	result, err := p.q.ExecContext(ctx, `
		UPDATE accounts
		SET cash = $1, credit_limit = $2, current_month = $3, turns_left = $4, version = version + 1, updated_at = $5
		WHERE id = $6 AND version = $7`,
		acct.Cash, acct.CreditLimit, acct.CurrentMonth, acct.TurnsLeft, time.Now(), acct.ID, acct.Version)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrVersionConflict
	}
	acct.Version++
	return nil
}

func (p *Postgres) UserExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := p.q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

const entryColumns = `id, account_id, merchant, category, amount, entry_type, timestamp, statement_id, idempotency_nonce`

func (p *Postgres) FindLedgerEntriesForAccount(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	rows, err := p.q.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY timestamp DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (p *Postgres) FindLedgerEntry(ctx context.Context, id int64) (*models.LedgerEntry, error) {
	row := p.q.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE id = $1`, id)
	return scanEntryRow(row)
}

func (p *Postgres) FindLedgerEntryByNonce(ctx context.Context, nonce string) (*models.LedgerEntry, error) {
	row := p.q.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE idempotency_nonce = $1`, nonce)
	return scanEntryRow(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	var statementID sql.NullInt64
	var nonce sql.NullString
	err := s.Scan(&e.ID, &e.AccountID, &e.Merchant, &e.Category, &e.Amount, &e.Type,
		&e.Timestamp, &statementID, &nonce)
	if err != nil {
		return nil, err
	}
	if statementID.Valid {
		e.StatementID = &statementID.Int64
	}
	e.Nonce = nonce.String
	return &e, nil
}

func scanEntryRow(row *sql.Row) (*models.LedgerEntry, error) {
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (p *Postgres) SaveLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	var nonce sql.NullString
	if entry.Nonce != "" {
		nonce = sql.NullString{String: entry.Nonce, Valid: true}
	}
	var statementID sql.NullInt64
	if entry.StatementID != nil {
		statementID = sql.NullInt64{Int64: *entry.StatementID, Valid: true}
	}

	if entry.ID == 0 {
		err := p.q.QueryRowContext(ctx, `
			INSERT INTO ledger_entries (account_id, merchant, category, amount, entry_type, timestamp, statement_id, idempotency_nonce)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			entry.AccountID, entry.Merchant, entry.Category, entry.Amount, entry.Type,
			entry.Timestamp, statementID, nonce).Scan(&entry.ID)
		if isUniqueViolation(err) {
			return ErrDuplicateNonce
		}
		return err
	}

	_, err := p.q.ExecContext(ctx, `
		UPDATE ledger_entries
		SET merchant = $1, category = $2, amount = $3, timestamp = $4, statement_id = $5
		WHERE id = $6`,
		entry.Merchant, entry.Category, entry.Amount, entry.Timestamp, statementID, entry.ID)
	return err
}

func (p *Postgres) DeleteLedgerEntry(ctx context.Context, id int64) error {
	result, err := p.q.ExecContext(ctx, `
		DELETE FROM ledger_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) LinkUnbilledEntries(ctx context.Context, accountID, statementID int64) (int64, error) {
	result, err := p.q.ExecContext(ctx, `
		UPDATE ledger_entries
		SET statement_id = $1
		WHERE account_id = $2 AND statement_id IS NULL`, statementID, accountID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const statementColumns = `id, account_id, month_number, period_start, period_end, statement_date, due_date, total_due, minimum_due, interest_rate, fees, status, created_at`

func (p *Postgres) FindStatement(ctx context.Context, id int64) (*models.Statement, error) {
	row := p.q.QueryRowContext(ctx, `
		SELECT `+statementColumns+`
		FROM statements
		WHERE id = $1`, id)
	return scanStatementRow(row)
}

func (p *Postgres) FindStatementsForAccount(ctx context.Context, accountID int64) ([]models.Statement, error) {
	rows, err := p.q.QueryContext(ctx, `
		SELECT `+statementColumns+`
		FROM statements
		WHERE account_id = $1
		ORDER BY month_number DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statements := []models.Statement{}
	for rows.Next() {
		var s models.Statement
		if err := scanStatement(rows, &s); err != nil {
			return nil, err
		}
		statements = append(statements, s)
	}
	return statements, rows.Err()
}

func (p *Postgres) FindActiveStatement(ctx context.Context, accountID int64, status models.StatementStatus) (*models.Statement, error) {
	row := p.q.QueryRowContext(ctx, `
		SELECT `+statementColumns+`
		FROM statements
		WHERE account_id = $1 AND status = $2
		ORDER BY month_number DESC
		LIMIT 1`, accountID, status)
	return scanStatementRow(row)
}

func scanStatement(s rowScanner, stmt *models.Statement) error {
	return s.Scan(&stmt.ID, &stmt.AccountID, &stmt.MonthNumber, &stmt.PeriodStart, &stmt.PeriodEnd,
		&stmt.StatementDate, &stmt.DueDate, &stmt.TotalDue, &stmt.MinimumDue,
		&stmt.InterestRate, &stmt.Fees, &stmt.Status, &stmt.CreatedAt)
}

func scanStatementRow(row *sql.Row) (*models.Statement, error) {
	var s models.Statement
	err := scanStatement(row, &s)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *Postgres) SaveStatement(ctx context.Context, stmt *models.Statement) error {
	if stmt.ID == 0 {
		return p.q.QueryRowContext(ctx, `
			INSERT INTO statements (account_id, month_number, period_start, period_end, statement_date, due_date, total_due, minimum_due, interest_rate, fees, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id`,
			stmt.AccountID, stmt.MonthNumber, stmt.PeriodStart, stmt.PeriodEnd, stmt.StatementDate,
			stmt.DueDate, stmt.TotalDue, stmt.MinimumDue, stmt.InterestRate, stmt.Fees,
			stmt.Status, time.Now()).Scan(&stmt.ID)
	}

	_, err := p.q.ExecContext(ctx, `
		UPDATE statements
		SET total_due = $1, minimum_due = $2, fees = $3, status = $4, due_date = $5
		WHERE id = $6`,
		stmt.TotalDue, stmt.MinimumDue, stmt.Fees, stmt.Status, stmt.DueDate, stmt.ID)
	return err
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
