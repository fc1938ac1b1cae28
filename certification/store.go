/*
store.go - Persistence contract consumed by the certification core

PURPOSE:
  Defines the interface between the domain logic and the database.
  The core never talks to a database directly; it reads and writes whole
  employee records through an EmployeeStore.

KEY INTERFACES:
  EmployeeStore: fetch, list, create, full replace, delete
  TxStore:       EmployeeStore plus a transactional scope
  StatusUpdater: optional in-place status rewrite that keeps ids

REPLACE SEMANTICS:
  ReplaceEmployee overwrites the employee row and its entire certification
  set (delete-all-then-reinsert). Certifications get fresh ids.

ATOMIC SCOPES:
  WithTx runs fn against a store bound to one transaction. It commits when
  fn returns nil and rolls back when fn returns an error or panics. The
  underlying connection is always released.

IMPLEMENTATIONS:
  - certification/store/memory.go: in-memory, snapshot rollback
  - store/sqlite/sqlite.go: SQLite
  - store/postgres/postgres.go: PostgreSQL (pgx)
*/
package certification

import "context"

//go:generate mockgen -source=store.go -destination=mock/mock_store.go -package=mock

// EmployeeStore persists employees together with their certifications.
type EmployeeStore interface {
	// FindByID returns ErrNotFound (possibly wrapped) when no such employee exists.
	FindByID(ctx context.Context, id string) (*Employee, error)

	FindAll(ctx context.Context) ([]Employee, error)

	// Create assigns fresh ids to the employee and its certifications.
	Create(ctx context.Context, emp Employee) (*Employee, error)

	// ReplaceEmployee overwrites the record, including the certification set.
	ReplaceEmployee(ctx context.Context, id string, emp Employee) (*Employee, error)

	// Delete removes the employee and cascades to its certifications.
	Delete(ctx context.Context, id string) error
}

// TxStore wraps EmployeeStore with transaction support.
type TxStore interface {
	EmployeeStore

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(EmployeeStore) error) error
}

// StatusUpdater is implemented by stores that can rewrite stored statuses in
// place. Unlike ReplaceEmployee it keeps certification ids.
type StatusUpdater interface {
	// UpdateStatuses returns ErrNotFound when a certification does not
	// belong to employeeID.
	UpdateStatuses(ctx context.Context, employeeID string, changes []StatusChange) error
}
