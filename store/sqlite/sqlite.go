/*
Package sqlite provides the SQLite-backed implementation of pto.Store.

PURPOSE:
  Persists the four relations of the PTO data model (employees, pto_ledger,
  pto_requests, holidays) and gives the lifecycle service its transactional
  execution primitive. The same patterns apply to PostgreSQL - only minor
  SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  The ledger is append-only by construction:
  - No UPDATE statements on pto_ledger
  - No DELETE statements on pto_ledger
  - Balances are derived by summation, never stored

KEY TABLES:
  employees:     Provisioned once, immutable here
  pto_ledger:    Immutable signed-hour deltas (balance = SUM(change_hours))
  pto_requests:  Lifecycle rows; only status/updated_at ever change
  holidays:      Shared reference calendar, unique per date

DECIMAL STORAGE:
  change_hours is stored as its exact decimal string representation and
  parsed back with shopspring/decimal. SQLite REAL would reintroduce the
  floating-point drift the ledger model exists to avoid.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole read-check-write sequence, so two concurrent cancellations of the
  same request cannot both observe "pending". In production with
  PostgreSQL, SELECT ... FOR UPDATE replaces the mutex.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys on:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/pto.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := pto.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - pto/service.go: The Store interface this package implements
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/pto-service/pto"
)

const (
	dayFormat = "2006-01-02"
	tsFormat  = time.RFC3339
)

// Store implements pto.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting the query
// helpers run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer, and every pool connection to a
	// ":memory:" DSN would otherwise get its own empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		employee_id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		hire_date TEXT NOT NULL,
		initial_pto_allowance_hours TEXT NOT NULL DEFAULT '0',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	-- Append-only: rows here are never updated or deleted
	CREATE TABLE IF NOT EXISTS pto_ledger (
		ledger_id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL REFERENCES employees(employee_id),
		transaction_date TEXT NOT NULL,
		change_hours TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		description TEXT,
		related_request_id INTEGER,
		created_at TEXT NOT NULL
	);

	-- Balance calculation (hot path)
	CREATE INDEX IF NOT EXISTS idx_ledger_employee
		ON pto_ledger(employee_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_request
		ON pto_ledger(related_request_id) WHERE related_request_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS pto_requests (
		request_id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL REFERENCES employees(employee_id),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		requested_at TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON pto_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON pto_requests(status);
	-- Listing order (employee, start_date DESC)
	CREATE INDEX IF NOT EXISTS idx_requests_employee_start
		ON pto_requests(employee_id, start_date DESC);

	CREATE TABLE IF NOT EXISTS holidays (
		holiday_id INTEGER PRIMARY KEY AUTOINCREMENT,
		holiday_date TEXT NOT NULL UNIQUE,
		holiday_name TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// InsertEmployee provisions an employee and returns the stored record.
func (s *Store) InsertEmployee(ctx context.Context, e pto.Employee) (*pto.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertEmployee(ctx, s.db, e)
}

func insertEmployee(ctx context.Context, q querier, e pto.Employee) (*pto.Employee, error) {
	now := time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		INSERT INTO employees (first_name, last_name, email, hire_date, initial_pto_allowance_hours, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.FirstName, e.LastName, e.Email,
		e.HireDate.Format(dayFormat),
		e.InitialAllowance.String(),
		e.Active,
		now.Format(tsFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert employee: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	e.ID = id
	e.CreatedAt = now
	return &e, nil
}

// GetEmployee returns the employee, or nil when no such row exists.
func (s *Store) GetEmployee(ctx context.Context, id int64) (*pto.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEmployee(ctx, s.db, id)
}

func getEmployee(ctx context.Context, q querier, id int64) (*pto.Employee, error) {
	var (
		e                   pto.Employee
		hireDate, createdAt string
		allowance           string
	)
	err := q.QueryRowContext(ctx, `
		SELECT employee_id, first_name, last_name, email, hire_date,
		       initial_pto_allowance_hours, is_active, created_at
		FROM employees WHERE employee_id = ?`, id,
	).Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &hireDate, &allowance, &e.Active, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	e.HireDate, _ = time.Parse(dayFormat, hireDate)
	e.CreatedAt, _ = time.Parse(tsFormat, createdAt)
	e.InitialAllowance = mustDecimal(allowance)
	return &e, nil
}

// ListEmployees returns all employees ordered by id.
func (s *Store) ListEmployees(ctx context.Context) ([]pto.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, first_name, last_name, email, hire_date,
		       initial_pto_allowance_hours, is_active, created_at
		FROM employees ORDER BY employee_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []pto.Employee
	for rows.Next() {
		var (
			e                   pto.Employee
			hireDate, createdAt string
			allowance           string
		)
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &hireDate, &allowance, &e.Active, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		e.HireDate, _ = time.Parse(dayFormat, hireDate)
		e.CreatedAt, _ = time.Parse(tsFormat, createdAt)
		e.InitialAllowance = mustDecimal(allowance)
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// =============================================================================
// LEDGER (append-only)
// =============================================================================

// AppendLedgerEntry adds an immutable ledger fact and returns it with its
// assigned id.
func (s *Store) AppendLedgerEntry(ctx context.Context, e pto.LedgerEntry) (*pto.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendLedgerEntry(ctx, s.db, e)
}

func appendLedgerEntry(ctx context.Context, q querier, e pto.LedgerEntry) (*pto.LedgerEntry, error) {
	now := time.Now().UTC()

	var relatedID any
	if e.RelatedRequestID != nil {
		relatedID = *e.RelatedRequestID
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO pto_ledger (employee_id, transaction_date, change_hours, transaction_type, description, related_request_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.EmployeeID,
		e.TransactionDate.Format(dayFormat),
		e.ChangeHours.String(),
		string(e.Type),
		e.Description,
		relatedID,
		now.Format(tsFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	e.ID = id
	e.CreatedAt = now
	return &e, nil
}

// ListLedgerEntries returns every ledger entry for the employee, oldest
// first.
func (s *Store) ListLedgerEntries(ctx context.Context, employeeID int64) ([]pto.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listLedgerEntries(ctx, s.db, employeeID)
}

func listLedgerEntries(ctx context.Context, q querier, employeeID int64) ([]pto.LedgerEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT ledger_id, employee_id, transaction_date, change_hours, transaction_type,
		       COALESCE(description, ''), related_request_id, created_at
		FROM pto_ledger
		WHERE employee_id = ?
		ORDER BY transaction_date ASC, ledger_id ASC`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var entries []pto.LedgerEntry
	for rows.Next() {
		var (
			e                 pto.LedgerEntry
			txDate, createdAt string
			change, entryType string
			relatedID         sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.EmployeeID, &txDate, &change, &entryType, &e.Description, &relatedID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.TransactionDate, _ = time.Parse(dayFormat, txDate)
		e.CreatedAt, _ = time.Parse(tsFormat, createdAt)
		e.ChangeHours = mustDecimal(change)
		e.Type = pto.EntryType(entryType)
		if relatedID.Valid {
			id := relatedID.Int64
			e.RelatedRequestID = &id
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// REQUESTS
// =============================================================================

// InsertRequest persists a new request and returns the stored record.
func (s *Store) InsertRequest(ctx context.Context, r pto.Request) (*pto.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertRequest(ctx, s.db, r)
}

func insertRequest(ctx context.Context, q querier, r pto.Request) (*pto.Request, error) {
	now := time.Now().UTC()
	if r.RequestedAt.IsZero() {
		r.RequestedAt = now
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO pto_requests (employee_id, start_date, end_date, status, requested_at, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.EmployeeID,
		r.StartDate.Format(dayFormat),
		r.EndDate.Format(dayFormat),
		string(r.Status),
		r.RequestedAt.UTC().Format(tsFormat),
		nullString(r.Notes),
		now.Format(tsFormat),
		now.Format(tsFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert request: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return &r, nil
}

// GetRequest returns the request, or nil when no such row exists. The
// ownership decision belongs to the service, not the store.
func (s *Store) GetRequest(ctx context.Context, requestID int64) (*pto.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequest(ctx, s.db, requestID)
}

func getRequest(ctx context.Context, q querier, requestID int64) (*pto.Request, error) {
	row := q.QueryRowContext(ctx, `
		SELECT request_id, employee_id, start_date, end_date, status, requested_at,
		       COALESCE(notes, ''), created_at, updated_at
		FROM pto_requests WHERE request_id = ?`, requestID)

	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// ListRequests returns the employee's requests matching the filter,
// most recent start date first.
func (s *Store) ListRequests(ctx context.Context, employeeID int64, f pto.ListFilter) ([]pto.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRequests(ctx, s.db, employeeID, f)
}

func listRequests(ctx context.Context, q querier, employeeID int64, f pto.ListFilter) ([]pto.Request, error) {
	query := `
		SELECT request_id, employee_id, start_date, end_date, status, requested_at,
		       COALESCE(notes, ''), created_at, updated_at
		FROM pto_requests
		WHERE employee_id = ?`
	args := []any{employeeID}

	if f.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*f.Status))
	}
	if f.StartFrom != nil {
		query += " AND start_date >= ?"
		args = append(args, f.StartFrom.Format(dayFormat))
	}
	if f.StartTo != nil {
		query += " AND start_date <= ?"
		args = append(args, f.StartTo.Format(dayFormat))
	}

	query += " ORDER BY start_date DESC, request_id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []pto.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// UpdateRequestStatus sets the status and updated_at of a request and
// returns the updated record. Status and updated_at are the only mutable
// columns of a request row.
func (s *Store) UpdateRequestStatus(ctx context.Context, requestID int64, status pto.Status, updatedAt time.Time) (*pto.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateRequestStatus(ctx, s.db, requestID, status, updatedAt)
}

func updateRequestStatus(ctx context.Context, q querier, requestID int64, status pto.Status, updatedAt time.Time) (*pto.Request, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE pto_requests SET status = ?, updated_at = ? WHERE request_id = ?`,
		string(status), updatedAt.UTC().Format(tsFormat), requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to update request status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("request %d not found for status update", requestID)
	}
	return getRequest(ctx, q, requestID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*pto.Request, error) {
	var (
		r                                 pto.Request
		startDate, endDate, status        string
		requestedAt, createdAt, updatedAt string
	)
	err := row.Scan(&r.ID, &r.EmployeeID, &startDate, &endDate, &status,
		&requestedAt, &r.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	r.StartDate, _ = time.Parse(dayFormat, startDate)
	r.EndDate, _ = time.Parse(dayFormat, endDate)
	r.Status = pto.Status(status)
	r.RequestedAt, _ = time.Parse(tsFormat, requestedAt)
	r.CreatedAt, _ = time.Parse(tsFormat, createdAt)
	r.UpdatedAt, _ = time.Parse(tsFormat, updatedAt)
	return &r, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// InsertHoliday adds a holiday; a duplicate date is silently ignored,
// matching the unique holiday_date constraint.
func (s *Store) InsertHoliday(ctx context.Context, h pto.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (holiday_date, holiday_name)
		VALUES (?, ?)
		ON CONFLICT(holiday_date) DO NOTHING`,
		h.Date.Format(dayFormat), h.Name)
	if err != nil {
		return fmt.Errorf("failed to insert holiday: %w", err)
	}
	return nil
}

// ListHolidays returns holidays ordered by date, optionally bounded to an
// inclusive [from, to] range.
func (s *Store) ListHolidays(ctx context.Context, from, to *time.Time) ([]pto.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listHolidays(ctx, s.db, from, to)
}

func listHolidays(ctx context.Context, q querier, from, to *time.Time) ([]pto.Holiday, error) {
	query := "SELECT holiday_id, holiday_date, holiday_name FROM holidays"
	var (
		conds []string
		args  []any
	)
	if from != nil {
		conds = append(conds, "holiday_date >= ?")
		args = append(args, from.Format(dayFormat))
	}
	if to != nil {
		conds = append(conds, "holiday_date <= ?")
		args = append(args, to.Format(dayFormat))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY holiday_date ASC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []pto.Holiday
	for rows.Next() {
		var (
			h       pto.Holiday
			dateStr string
		)
		if err := rows.Scan(&h.ID, &dateStr, &h.Name); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		h.Date, _ = time.Parse(dayFormat, dateStr)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// TRANSACTIONAL EXECUTION
// =============================================================================

// WithTx runs fn within a database transaction, holding the store's write
// lock for the duration. Any error from fn rolls back everything written
// through the transactional store.
func (s *Store) WithTx(ctx context.Context, fn func(pto.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the in-transaction view of the store. The surrounding WithTx
// already holds the write lock, so no method here takes it again.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetEmployee(ctx context.Context, id int64) (*pto.Employee, error) {
	return getEmployee(ctx, ts.tx, id)
}

func (ts *txStore) AppendLedgerEntry(ctx context.Context, e pto.LedgerEntry) (*pto.LedgerEntry, error) {
	return appendLedgerEntry(ctx, ts.tx, e)
}

func (ts *txStore) ListLedgerEntries(ctx context.Context, employeeID int64) ([]pto.LedgerEntry, error) {
	return listLedgerEntries(ctx, ts.tx, employeeID)
}

func (ts *txStore) InsertRequest(ctx context.Context, r pto.Request) (*pto.Request, error) {
	return insertRequest(ctx, ts.tx, r)
}

func (ts *txStore) GetRequest(ctx context.Context, requestID int64) (*pto.Request, error) {
	return getRequest(ctx, ts.tx, requestID)
}

func (ts *txStore) ListRequests(ctx context.Context, employeeID int64, f pto.ListFilter) ([]pto.Request, error) {
	return listRequests(ctx, ts.tx, employeeID, f)
}

func (ts *txStore) UpdateRequestStatus(ctx context.Context, requestID int64, status pto.Status, updatedAt time.Time) (*pto.Request, error) {
	return updateRequestStatus(ctx, ts.tx, requestID, status, updatedAt)
}

func (ts *txStore) ListHolidays(ctx context.Context, from, to *time.Time) ([]pto.Holiday, error) {
	return listHolidays(ctx, ts.tx, from, to)
}

// WithTx on an in-transaction store joins the current transaction.
func (ts *txStore) WithTx(ctx context.Context, fn func(pto.Store) error) error {
	return fn(ts)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
