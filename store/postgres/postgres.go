/*
Package postgres provides a PostgreSQL-backed certification.TxStore.

PURPOSE:
  Same contract and schema shape as store/sqlite, for deployments that run
  on PostgreSQL. Uses a pgx connection pool.

KEY TABLES:
  employees, certifications (ON DELETE CASCADE), ojt_records (ON DELETE CASCADE)

CONCURRENCY:
  No process-level lock. Database transactions isolate concurrent writers.

SEE ALSO:
  - store/sqlite/sqlite.go: SQLite implementation of the same contract
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/warp/cert-tracker/certification"
)

// Store implements certification.TxStore using PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	now    func() time.Time
	logger *zap.Logger
}

// Connect opens a pool and migrates the schema.
func Connect(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	store := New(pool, logger)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	store.logger.Info("postgres store ready", zap.Int32("max_conns", poolCfg.MaxConns))
	return store, nil
}

// New wraps an existing pool without migrating.
func New(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, now: time.Now, logger: logger.Named("postgres")}
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS employees (
		id UUID PRIMARY KEY,
		employee_number TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		phone_number TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		start_date TIMESTAMPTZ NOT NULL,
		profile_image TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_department ON employees(department);

	CREATE TABLE IF NOT EXISTS certifications (
		id UUID PRIMARY KEY,
		employee_id UUID NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		issue_date TIMESTAMPTZ,
		expiry_date TIMESTAMPTZ NOT NULL,
		start_date TIMESTAMPTZ,
		end_date TIMESTAMPTZ,
		status TEXT NOT NULL CHECK (status IN ('valid', 'expired', 'expiring-soon')),
		is_required BOOLEAN NOT NULL DEFAULT FALSE,
		certificate TEXT NOT NULL DEFAULT '',
		certificate_file_name TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_certifications_employee_position
		ON certifications(employee_id, position);
	CREATE INDEX IF NOT EXISTS idx_certifications_expiry ON certifications(expiry_date);

	CREATE TABLE IF NOT EXISTS ojt_records (
		certification_id UUID NOT NULL REFERENCES certifications(id) ON DELETE CASCADE,
		slot SMALLINT NOT NULL CHECK (slot IN (1, 2)),
		mentor TEXT NOT NULL,
		date TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (certification_id, slot)
	);
	`)
	return err
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// =============================================================================
// EMPLOYEE STORE (certification.EmployeeStore interface)
// =============================================================================

func (s *Store) FindByID(ctx context.Context, id string) (*certification.Employee, error) {
	return s.findByID(ctx, s.pool, id)
}

func (s *Store) FindAll(ctx context.Context) ([]certification.Employee, error) {
	return s.findAll(ctx, s.pool)
}

func (s *Store) Create(ctx context.Context, emp certification.Employee) (*certification.Employee, error) {
	var created *certification.Employee
	err := s.inTx(ctx, func(q querier) error {
		var err error
		created, err = s.create(ctx, q, emp)
		return err
	})
	return created, err
}

func (s *Store) ReplaceEmployee(ctx context.Context, id string, emp certification.Employee) (*certification.Employee, error) {
	var replaced *certification.Employee
	err := s.inTx(ctx, func(q querier) error {
		var err error
		replaced, err = s.replace(ctx, q, id, emp)
		return err
	})
	return replaced, err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, s.pool, id)
}

// UpdateStatuses rewrites stored statuses in place, keeping certification ids.
func (s *Store) UpdateStatuses(ctx context.Context, employeeID string, changes []certification.StatusChange) error {
	return s.inTx(ctx, func(q querier) error {
		return updateStatuses(ctx, q, employeeID, changes)
	})
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM employees")
	return err
}

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(certification.EmployeeStore) error) error {
	return s.inTx(ctx, func(q querier) error {
		return fn(&txStore{q: q, parent: s})
	})
}

func (s *Store) inTx(ctx context.Context, fn func(querier) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		s.logger.Debug("transaction rolled back", zap.Error(err))
		return err
	}
	if err := tx.Commit(ctx); err != nil {
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
	return updateStatuses(ctx, ts.q, employeeID, changes)
}

// =============================================================================
// QUERIES
// =============================================================================

const selectEmployees = `
	SELECT id::text, employee_number, first_name, last_name, phone_number, email, role,
	       department, start_date, profile_image, created_at, updated_at
	FROM employees`

const selectCertifications = `
	SELECT c.id::text, c.employee_id::text, c.name, c.issue_date, c.expiry_date, c.start_date,
	       c.end_date, c.status, c.is_required, c.certificate, c.certificate_file_name,
	       o1.mentor, o1.date, o2.mentor, o2.date
	FROM certifications c
	LEFT JOIN ojt_records o1 ON o1.certification_id = c.id AND o1.slot = 1
	LEFT JOIN ojt_records o2 ON o2.certification_id = c.id AND o2.slot = 2`

func (s *Store) findByID(ctx context.Context, q querier, id string) (*certification.Employee, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &certification.NotFoundError{Kind: "employee", ID: id}
	}

	emp, err := scanEmployee(q.QueryRow(ctx, selectEmployees+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &certification.NotFoundError{Kind: "employee", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee %s: %w", id, err)
	}

	certs, err := loadCertifications(ctx, q, " WHERE c.employee_id = $1", id)
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
	rows, err := q.Query(ctx, selectEmployees+" ORDER BY created_at DESC, id DESC")
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

	certs, err := loadCertifications(ctx, q, "")
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
	now := s.now().UTC()

	_, err := q.Exec(ctx, `
		INSERT INTO employees
		(id, employee_number, first_name, last_name, phone_number, email, role,
		 department, start_date, profile_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`,
		id, emp.EmployeeNumber, emp.FirstName, emp.LastName, emp.PhoneNumber,
		emp.Email, emp.Role, emp.Department, emp.StartDate.UTC(), emp.ProfileImage, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert employee: %w", err)
	}

	if err := insertCertifications(ctx, q, id, emp.Certifications); err != nil {
		return nil, err
	}
	return s.findByID(ctx, q, id)
}

func (s *Store) replace(ctx context.Context, q querier, id string, emp certification.Employee) (*certification.Employee, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &certification.NotFoundError{Kind: "employee", ID: id}
	}

	tag, err := q.Exec(ctx, `
		UPDATE employees SET
			employee_number = $1, first_name = $2, last_name = $3, phone_number = $4,
			email = $5, role = $6, department = $7, start_date = $8, profile_image = $9,
			updated_at = $10
		WHERE id = $11
	`,
		emp.EmployeeNumber, emp.FirstName, emp.LastName, emp.PhoneNumber,
		emp.Email, emp.Role, emp.Department, emp.StartDate.UTC(), emp.ProfileImage,
		s.now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update employee %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &certification.NotFoundError{Kind: "employee", ID: id}
	}

	if _, err := q.Exec(ctx, "DELETE FROM certifications WHERE employee_id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to clear certifications of %s: %w", id, err)
	}
	if err := insertCertifications(ctx, q, id, emp.Certifications); err != nil {
		return nil, err
	}
	return s.findByID(ctx, q, id)
}

func (s *Store) delete(ctx context.Context, q querier, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &certification.NotFoundError{Kind: "employee", ID: id}
	}
	tag, err := q.Exec(ctx, "DELETE FROM employees WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete employee %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &certification.NotFoundError{Kind: "employee", ID: id}
	}
	return nil
}

func updateStatuses(ctx context.Context, q querier, employeeID string, changes []certification.StatusChange) error {
	if _, err := uuid.Parse(employeeID); err != nil {
		return &certification.NotFoundError{Kind: "employee", ID: employeeID}
	}
	for _, change := range changes {
		if _, err := uuid.Parse(change.CertificationID); err != nil {
			return &certification.NotFoundError{Kind: "certification", ID: change.CertificationID}
		}
		tag, err := q.Exec(ctx,
			"UPDATE certifications SET status = $1 WHERE id = $2 AND employee_id = $3",
			string(change.Status), change.CertificationID, employeeID,
		)
		if err != nil {
			return fmt.Errorf("failed to update status of certification %s: %w", change.CertificationID, err)
		}
		if tag.RowsAffected() == 0 {
			return &certification.NotFoundError{Kind: "certification", ID: change.CertificationID}
		}
	}
	return nil
}

func insertCertifications(ctx context.Context, q querier, employeeID string, certs []certification.Certification) error {
	for i, c := range certs {
		certID := uuid.NewString()
		_, err := q.Exec(ctx, `
			INSERT INTO certifications
			(id, employee_id, position, name, issue_date, expiry_date, start_date,
			 end_date, status, is_required, certificate, certificate_file_name)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			certID, employeeID, i, c.Name, optionalTime(c.IssueDate), c.ExpiryDate.UTC(),
			c.StartDate, c.EndDate, string(c.Status), c.IsRequired,
			c.Certificate, c.CertificateFileName,
		)
		if err != nil {
			return fmt.Errorf("failed to insert certification %q for %s: %w", c.Name, employeeID, err)
		}

		for slot, ojt := range []*certification.OJT{c.OJT1, c.OJT2} {
			if !ojt.Present() {
				continue
			}
			_, err := q.Exec(ctx,
				"INSERT INTO ojt_records (certification_id, slot, mentor, date) VALUES ($1, $2, $3, $4)",
				certID, slot+1, ojt.Mentor, ojt.Date.UTC(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert OJT record for %q: %w", c.Name, err)
			}
		}
	}
	return nil
}

func loadCertifications(ctx context.Context, q querier, where string, args ...any) (map[string][]certification.Certification, error) {
	rows, err := q.Query(ctx, selectCertifications+where+" ORDER BY c.employee_id, c.position", args...)
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
// SCANNING
// =============================================================================

func scanEmployee(row pgx.Row) (*certification.Employee, error) {
	var emp certification.Employee
	err := row.Scan(
		&emp.ID, &emp.EmployeeNumber, &emp.FirstName, &emp.LastName,
		&emp.PhoneNumber, &emp.Email, &emp.Role, &emp.Department,
		&emp.StartDate, &emp.ProfileImage, &emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	emp.StartDate = emp.StartDate.UTC()
	emp.CreatedAt = emp.CreatedAt.UTC()
	emp.UpdatedAt = emp.UpdatedAt.UTC()
	return &emp, nil
}

func scanCertification(row pgx.Row) (certification.Certification, error) {
	var c certification.Certification
	var status string
	var issue *time.Time
	var mentor1, mentor2 *string
	var date1, date2 *time.Time

	err := row.Scan(
		&c.ID, &c.EmployeeID, &c.Name, &issue, &c.ExpiryDate, &c.StartDate, &c.EndDate,
		&status, &c.IsRequired, &c.Certificate, &c.CertificateFileName,
		&mentor1, &date1, &mentor2, &date2,
	)
	if err != nil {
		return c, err
	}

	c.Status = certification.Status(status)
	c.ExpiryDate = c.ExpiryDate.UTC()
	if issue != nil {
		c.IssueDate = issue.UTC()
	}
	c.StartDate = utcPtr(c.StartDate)
	c.EndDate = utcPtr(c.EndDate)
	c.OJT1 = ojtFrom(mentor1, date1)
	c.OJT2 = ojtFrom(mentor2, date2)
	return c, nil
}

func ojtFrom(mentor *string, date *time.Time) *certification.OJT {
	if mentor == nil || date == nil {
		return nil
	}
	return &certification.OJT{Mentor: *mentor, Date: date.UTC()}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

var (
	_ certification.TxStore       = (*Store)(nil)
	_ certification.EmployeeStore = (*txStore)(nil)
	_ certification.StatusUpdater = (*Store)(nil)
	_ certification.StatusUpdater = (*txStore)(nil)
)
