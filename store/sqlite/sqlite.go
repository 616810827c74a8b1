/*
Package sqlite provides the multi-table, index-backed implementation of
the record store.

PURPOSE:
  Implements store.Store on an embedded SQLite database. This is the
  production variant; store/flatfile is the flat-list alternative.

KEY TABLES:
  users:         operators, unique username index, role index
  contracts:     agreements, secondary indexes on number/counterparty/status
  payments:      monthly obligations, FK to contracts with ON DELETE CASCADE
  notifications: declared in the schema, unused by any business logic

CASCADE:
  Deleting a contract must leave no orphan payments. The payments table
  carries a foreign key with ON DELETE CASCADE and the database is opened
  with foreign keys enforced, so the invariant holds at the schema level
  rather than in application code.

WAL MODE:
  The database opens with WAL journaling: readers don't block, a single
  writer at a time, better crash recovery.

MONEY AND DATES:
  Amounts are stored as decimal strings, never floats. Dates are stored
  date-only as YYYY-MM-DD text; NULL stands in for the optional end and
  paid dates.

USAGE:
  st, err := sqlite.New("./contracts.db")   // ":memory:" for tests
  defer st.Close()

SEE ALSO:
  - store/store.go: interface and error contract
  - store/flatfile: the single-document variant
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ShuVe1/site-agreement/access"
	"github.com/ShuVe1/site-agreement/ledger"
	"github.com/ShuVe1/site-agreement/store"
)

const dateLayout = "2006-01-02"

// Store implements store.Store on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty
	// database, so pin the pool to a single connection there.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		password TEXT NOT NULL,
		role TEXT NOT NULL,
		full_name TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username);
	CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

	CREATE TABLE IF NOT EXISTS contracts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		contract_number TEXT NOT NULL,
		counterparty TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		status TEXT NOT NULL,
		user_id INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_number ON contracts(contract_number);
	CREATE INDEX IF NOT EXISTS idx_contracts_counterparty ON contracts(counterparty);
	CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);

	CREATE TABLE IF NOT EXISTS payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		contract_id INTEGER NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		due_date TEXT NOT NULL,
		status TEXT NOT NULL,
		paid_date TEXT,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_payments_contract ON payments(contract_id);
	CREATE INDEX IF NOT EXISTS idx_payments_due_date ON payments(due_date);
	CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status);

	-- Declared for parity with the storage schema; no business logic uses it.
	CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		read INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);
	CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) AddUser(ctx context.Context, u ledger.User) (int64, error) {
	if err := store.ValidateUser(u); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password, role, full_name) VALUES (?, ?, ?, ?)`,
		u.Username, u.Password, string(u.Role), u.FullName,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, fmt.Errorf("username %q: %w", u.Username, ledger.ErrConflict)
		}
		return 0, fmt.Errorf("%w: add user: %v", ledger.ErrStorage, err)
	}
	return res.LastInsertId()
}

func (s *Store) GetUser(ctx context.Context, id int64) (*ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password, role, full_name FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password, role, full_name FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context) ([]ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, password, role, full_name FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", ledger.ErrStorage, err)
	}
	defer rows.Close()

	var users []ledger.User
	for rows.Next() {
		var u ledger.User
		var role string
		if err := rows.Scan(&u.ID, &u.Username, &u.Password, &role, &u.FullName); err != nil {
			return nil, fmt.Errorf("%w: scan user: %v", ledger.ErrStorage, err)
		}
		u.Role = access.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, u ledger.User) error {
	if err := store.ValidateUser(u); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET username = ?, password = ?, role = ?, full_name = ? WHERE id = ?`,
		u.Username, u.Password, string(u.Role), u.FullName, u.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("username %q: %w", u.Username, ledger.ErrConflict)
		}
		return fmt.Errorf("%w: update user: %v", ledger.ErrStorage, err)
	}
	return requireRow(res)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete user: %v", ledger.ErrStorage, err)
	}
	return requireRow(res)
}

func scanUser(row *sql.Row) (*ledger.User, error) {
	var u ledger.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Password, &role, &u.FullName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan user: %v", ledger.ErrStorage, err)
	}
	u.Role = access.Role(role)
	return &u, nil
}

// =============================================================================
// CONTRACTS
// =============================================================================

func (s *Store) AddContract(ctx context.Context, c ledger.Contract) (int64, error) {
	if err := store.ValidateContract(c); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contracts (contract_number, counterparty, total_amount, start_date, end_date, status, user_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ContractNumber, c.Counterparty, c.TotalAmount.String(),
		c.StartDate.Format(dateLayout), nullDate(c.EndDate), string(c.Status), c.UserID,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: add contract: %v", ledger.ErrStorage, err)
	}
	return res.LastInsertId()
}

func (s *Store) GetContract(ctx context.Context, id int64) (*ledger.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, contractSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get contract: %v", ledger.ErrStorage, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	c, err := scanContract(rows)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListContracts(ctx context.Context) ([]ledger.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, contractSelect+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list contracts: %v", ledger.ErrStorage, err)
	}
	defer rows.Close()

	var contracts []ledger.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

func (s *Store) UpdateContract(ctx context.Context, c ledger.Contract) error {
	if err := store.ValidateContract(c); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE contracts SET contract_number = ?, counterparty = ?, total_amount = ?,
		 start_date = ?, end_date = ?, status = ?, user_id = ? WHERE id = ?`,
		c.ContractNumber, c.Counterparty, c.TotalAmount.String(),
		c.StartDate.Format(dateLayout), nullDate(c.EndDate), string(c.Status), c.UserID, c.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: update contract: %v", ledger.ErrStorage, err)
	}
	return requireRow(res)
}

func (s *Store) DeleteContract(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Payments go with the contract via ON DELETE CASCADE.
	res, err := s.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete contract: %v", ledger.ErrStorage, err)
	}
	return requireRow(res)
}

const contractSelect = `SELECT id, contract_number, counterparty, total_amount, start_date, end_date, status, user_id FROM contracts`

func scanContract(rows *sql.Rows) (ledger.Contract, error) {
	var (
		c      ledger.Contract
		amount string
		start  string
		end    sql.NullString
		status string
	)
	if err := rows.Scan(&c.ID, &c.ContractNumber, &c.Counterparty, &amount, &start, &end, &status, &c.UserID); err != nil {
		return c, fmt.Errorf("%w: scan contract: %v", ledger.ErrStorage, err)
	}

	var err error
	if c.TotalAmount, err = decimal.NewFromString(amount); err != nil {
		return c, fmt.Errorf("%w: bad amount %q: %v", ledger.ErrStorage, amount, err)
	}
	if c.StartDate, err = time.Parse(dateLayout, start); err != nil {
		return c, fmt.Errorf("%w: bad start date %q: %v", ledger.ErrStorage, start, err)
	}
	if end.Valid {
		if c.EndDate, err = time.Parse(dateLayout, end.String); err != nil {
			return c, fmt.Errorf("%w: bad end date %q: %v", ledger.ErrStorage, end.String, err)
		}
	}
	c.Status = ledger.ContractStatus(status)
	return c, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) AddPayment(ctx context.Context, p ledger.Payment) (int64, error) {
	if err := store.ValidatePayment(p); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (contract_id, amount, due_date, status, paid_date, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ContractID, p.Amount.String(), p.DueDate.Format(dateLayout),
		string(p.Status), nullDate(p.PaidDate), p.Description,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return 0, fmt.Errorf("contract %d: %w", p.ContractID, ledger.ErrNotFound)
		}
		return 0, fmt.Errorf("%w: add payment: %v", ledger.ErrStorage, err)
	}
	return res.LastInsertId()
}

func (s *Store) GetPayment(ctx context.Context, id int64) (*ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, paymentSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get payment: %v", ledger.ErrStorage, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	p, err := scanPayment(rows)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListPayments(ctx context.Context) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayments(ctx, paymentSelect+` ORDER BY due_date, id`)
}

func (s *Store) ListPaymentsByContract(ctx context.Context, contractID int64) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryPayments(ctx, paymentSelect+` WHERE contract_id = ? ORDER BY due_date, id`, contractID)
}

func (s *Store) UpdatePayment(ctx context.Context, p ledger.Payment) error {
	if err := store.ValidatePayment(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE payments SET contract_id = ?, amount = ?, due_date = ?, status = ?, paid_date = ?, description = ?
		 WHERE id = ?`,
		p.ContractID, p.Amount.String(), p.DueDate.Format(dateLayout),
		string(p.Status), nullDate(p.PaidDate), p.Description, p.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: update payment: %v", ledger.ErrStorage, err)
	}
	return requireRow(res)
}

const paymentSelect = `SELECT id, contract_id, amount, due_date, status, paid_date, description FROM payments`

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]ledger.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query payments: %v", ledger.ErrStorage, err)
	}
	defer rows.Close()

	var payments []ledger.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(rows *sql.Rows) (ledger.Payment, error) {
	var (
		p      ledger.Payment
		amount string
		due    string
		status string
		paid   sql.NullString
	)
	if err := rows.Scan(&p.ID, &p.ContractID, &amount, &due, &status, &paid, &p.Description); err != nil {
		return p, fmt.Errorf("%w: scan payment: %v", ledger.ErrStorage, err)
	}

	var err error
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return p, fmt.Errorf("%w: bad amount %q: %v", ledger.ErrStorage, amount, err)
	}
	if p.DueDate, err = time.Parse(dateLayout, due); err != nil {
		return p, fmt.Errorf("%w: bad due date %q: %v", ledger.ErrStorage, due, err)
	}
	if paid.Valid {
		if p.PaidDate, err = time.Parse(dateLayout, paid.String); err != nil {
			return p, fmt.Errorf("%w: bad paid date %q: %v", ledger.ErrStorage, paid.String, err)
		}
	}
	p.Status = ledger.PaymentStatus(status)
	return p, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ledger.ErrStorage, err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
