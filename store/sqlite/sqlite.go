/*
Package sqlite provides a SQLite-backed certification.TxStore.

PURPOSE:
  Persists employees with their certifications and OJT sign-offs. This is
  the default backend of the server. store/postgres implements the same
  contract for PostgreSQL with only dialect differences.

KEY TABLES:
  employees:      One row per employee
  certifications: Owned by an employee (ON DELETE CASCADE), ordered by position
  ojt_records:    At most two per certification (slot 1 and 2), cascade

REPLACE SEMANTICS:
  ReplaceEmployee updates the employee row, deletes every certification of
  the employee and reinserts the new set with fresh ids. OJT rows are only
  written when both mentor and date are present. UpdateStatuses touches the
  status column only and keeps ids.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole transaction and hands fn a view bound to the *sql.Tx, so nothing in
  fn may call back into the Store itself.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys on.
  ":memory:" databases are pinned to a single connection because every
  new connection would otherwise open a separate, empty database.

DATES:
  Stored as fixed-width RFC3339 text in UTC (nine fractional digits) so
  ORDER BY on the text column is chronological. Optional dates are NULL.

MIGRATION:
  Schema is auto-migrated on New(). FromDB skips migration and is meant for
  an already-prepared *sql.DB (tests use it with go-sqlmock).

SEE ALSO:
  - certification/store.go: Interface definitions
  - certification/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/warp/cert-tracker/certification"
)

// Store implements certification.TxStore using SQLite.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	now    func() time.Time
	logger *zap.Logger
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := FromDB(db, logger)
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store.logger.Info("sqlite store ready", zap.String("path", dbPath))
	return store, nil
}

// FromDB wraps an open database without running migrations.
func FromDB(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, now: time.Now, logger: logger.Named("sqlite")}
}

// WithClock sets the clock used for created_at/updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		employee_number TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		phone_number TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		profile_image TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_department
		ON employees(department);
	CREATE INDEX IF NOT EXISTS idx_employees_created_at
		ON employees(created_at);

	CREATE TABLE IF NOT EXISTS certifications (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		issue_date TEXT,
		expiry_date TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		status TEXT NOT NULL,
		is_required BOOLEAN NOT NULL DEFAULT FALSE,
		certificate TEXT NOT NULL DEFAULT '',
		certificate_file_name TEXT NOT NULL DEFAULT ''
	);

	-- Hot path: loading an employee's certifications in order
	CREATE INDEX IF NOT EXISTS idx_certifications_employee_position
		ON certifications(employee_id, position);
	CREATE INDEX IF NOT EXISTS idx_certifications_expiry
		ON certifications(expiry_date);

	CREATE TABLE IF NOT EXISTS ojt_records (
		certification_id TEXT NOT NULL REFERENCES certifications(id) ON DELETE CASCADE,
		slot INTEGER NOT NULL CHECK (slot IN (1, 2)),
		mentor TEXT NOT NULL,
		date TEXT NOT NULL,
		PRIMARY KEY (certification_id, slot)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE STORE (certification.EmployeeStore interface)
// =============================================================================

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FindByID returns the employee with its certifications.
func (s *Store) FindByID(ctx context.Context, id string) (*certification.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findByID(ctx, s.db, id)
}

// FindAll returns every employee, newest first.
func (s *Store) FindAll(ctx context.Context) ([]certification.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findAll(ctx, s.db)
}

// Create inserts an employee and its certifications atomically.
func (s *Store) Create(ctx context.Context, emp certification.Employee) (*certification.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created *certification.Employee
	err := s.inTx(ctx, func(q querier) error {
		var err error
		created, err = s.create(ctx, q, emp)
		return err
	})
	return created, err
}

// ReplaceEmployee overwrites the employee and its certification set atomically.
func (s *Store) ReplaceEmployee(ctx context.Context, id string, emp certification.Employee) (*certification.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var replaced *certification.Employee
	err := s.inTx(ctx, func(q querier) error {
		var err error
		replaced, err = s.replace(ctx, q, id, emp)
		return err
	})
	return replaced, err
}

// UpdateStatuses rewrites stored statuses in place, keeping certification ids.
func (s *Store) UpdateStatuses(ctx context.Context, employeeID string, changes []certification.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(q querier) error {
		return s.updateStatuses(ctx, q, employeeID, changes)
	})
}

// Delete removes an employee. Certifications and OJT rows cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delete(ctx, s.db, id)
}

func (s *Store) findByID(ctx context.Context, q querier, id string) (*certification.Employee, error) {
	row := q.QueryRowContext(ctx, selectEmployees+" WHERE id = ?", id)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &certification.NotFoundError{Kind: "employee", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee %s: %w", id, err)
	}

	certs, err := s.loadCertifications(ctx, q, " WHERE c.employee_id = ?", id)
	if err != nil {
		return nil, err
	}
	emp.Certifications = certs[id]
	if emp.Certifications == nil {
		emp.Certifications = []certification.Certification{}
	}
	return emp, nil
}

func (s *Store) findAll(ctx context.Context, q querier) ([]certification.Employee, error) {
	rows, err := q.QueryContext(ctx, selectEmployees+" ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []certification.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, *emp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	certs, err := s.loadCertifications(ctx, q, "")
	if err != nil {
		return nil, err
	}
	for i := range employees {
		employees[i].Certifications = certs[employees[i].ID]
		if employees[i].Certifications == nil {
			employees[i].Certifications = []certification.Certification{}
		}
	}
	return employees, nil
}

func (s *Store) create(ctx context.Context, q querier, emp certification.Employee) (*certification.Employee, error) {
	id := uuid.NewString()
	now := formatTime(s.now())

	_, err := q.ExecContext(ctx, `
		INSERT INTO employees
		(id, employee_number, first_name, last_name, phone_number, email, role,
		 department, start_date, profile_image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, emp.EmployeeNumber, emp.FirstName, emp.LastName, emp.PhoneNumber,
		emp.Email, emp.Role, emp.Department, formatTime(emp.StartDate),
		emp.ProfileImage, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert employee: %w", err)
	}

	if err := s.insertCertifications(ctx, q, id, emp.Certifications); err != nil {
		return nil, err
	}
	return s.findByID(ctx, q, id)
}

func (s *Store) replace(ctx context.Context, q querier, id string, emp certification.Employee) (*certification.Employee, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE employees SET
			employee_number = ?, first_name = ?, last_name = ?, phone_number = ?,
			email = ?, role = ?, department = ?, start_date = ?, profile_image = ?,
			updated_at = ?
		WHERE id = ?
	`,
		emp.EmployeeNumber, emp.FirstName, emp.LastName, emp.PhoneNumber,
		emp.Email, emp.Role, emp.Department, formatTime(emp.StartDate),
		emp.ProfileImage, formatTime(s.now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update employee %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, &certification.NotFoundError{Kind: "employee", ID: id}
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM certifications WHERE employee_id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to clear certifications of %s: %w", id, err)
	}
	if err := s.insertCertifications(ctx, q, id, emp.Certifications); err != nil {
		return nil, err
	}
	return s.findByID(ctx, q, id)
}

func (s *Store) delete(ctx context.Context, q querier, id string) error {
	res, err := q.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete employee %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &certification.NotFoundError{Kind: "employee", ID: id}
	}
	return nil
}

// =============================================================================
// CERTIFICATIONS
// =============================================================================

func (s *Store) updateStatuses(ctx context.Context, q querier, employeeID string, changes []certification.StatusChange) error {
	for _, change := range changes {
		res, err := q.ExecContext(ctx,
			"UPDATE certifications SET status = ? WHERE id = ? AND employee_id = ?",
			string(change.Status), change.CertificationID, employeeID,
		)
		if err != nil {
			return fmt.Errorf("failed to update status of certification %s: %w", change.CertificationID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return &certification.NotFoundError{Kind: "certification", ID: change.CertificationID}
		}
	}
	return nil
}

func (s *Store) insertCertifications(ctx context.Context, q querier, employeeID string, certs []certification.Certification) error {
	for i, c := range certs {
		certID := uuid.NewString()
		_, err := q.ExecContext(ctx, `
			INSERT INTO certifications
			(id, employee_id, position, name, issue_date, expiry_date, start_date,
			 end_date, status, is_required, certificate, certificate_file_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			certID, employeeID, i, c.Name,
			nullTime(c.IssueDate), formatTime(c.ExpiryDate),
			nullTimePtr(c.StartDate), nullTimePtr(c.EndDate),
			string(c.Status), c.IsRequired, c.Certificate, c.CertificateFileName,
		)
		if err != nil {
			return fmt.Errorf("failed to insert certification %q for %s: %w", c.Name, employeeID, err)
		}

		for slot, ojt := range []*certification.OJT{c.OJT1, c.OJT2} {
			if !ojt.Present() {
				continue
			}
			_, err := q.ExecContext(ctx,
				"INSERT INTO ojt_records (certification_id, slot, mentor, date) VALUES (?, ?, ?, ?)",
				certID, slot+1, ojt.Mentor, formatTime(ojt.Date),
			)
			if err != nil {
				return fmt.Errorf("failed to insert OJT record for %q: %w", c.Name, err)
			}
		}
	}
	return nil
}

// loadCertifications returns certifications grouped by employee id, each
// group in position order. where is appended verbatim to the query.
func (s *Store) loadCertifications(ctx context.Context, q querier, where string, args ...any) (map[string][]certification.Certification, error) {
	rows, err := q.QueryContext(ctx, selectCertifications+where+" ORDER BY c.employee_id, c.position", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load certifications: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]certification.Certification)
	for rows.Next() {
		c, err := scanCertification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certification: %w", err)
		}
		result[c.EmployeeID] = append(result[c.EmployeeID], c)
	}
	return result, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (certification.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(certification.EmployeeStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(q querier) error {
		return fn(&txStore{q: q, parent: s})
	})
}

// inTx runs fn in a transaction. The deferred rollback also covers panics
// and is a no-op after a successful commit.
func (s *Store) inTx(ctx context.Context, fn func(querier) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		s.logger.Debug("transaction rolled back", zap.Error(err))
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txStore struct {
	q      querier
	parent *Store
}

func (ts *txStore) FindByID(ctx context.Context, id string) (*certification.Employee, error) {
	return ts.parent.findByID(ctx, ts.q, id)
}

func (ts *txStore) FindAll(ctx context.Context) ([]certification.Employee, error) {
	return ts.parent.findAll(ctx, ts.q)
}

func (ts *txStore) Create(ctx context.Context, emp certification.Employee) (*certification.Employee, error) {
	return ts.parent.create(ctx, ts.q, emp)
}

func (ts *txStore) ReplaceEmployee(ctx context.Context, id string, emp certification.Employee) (*certification.Employee, error) {
	return ts.parent.replace(ctx, ts.q, id, emp)
}

func (ts *txStore) Delete(ctx context.Context, id string) error {
	return ts.parent.delete(ctx, ts.q, id)
}

func (ts *txStore) UpdateStatuses(ctx context.Context, employeeID string, changes []certification.StatusChange) error {
	return ts.parent.updateStatuses(ctx, ts.q, employeeID, changes)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM employees")
	return err
}

var (
	_ certification.TxStore       = (*Store)(nil)
	_ certification.EmployeeStore = (*txStore)(nil)
	_ certification.StatusUpdater = (*Store)(nil)
	_ certification.StatusUpdater = (*txStore)(nil)
)
