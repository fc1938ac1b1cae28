// Package store provides an in-memory certification.TxStore.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/cert-tracker/certification"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory lists employees newest first, like the SQL stores. Every read
// returns a deep copy, so callers can never mutate stored state.
type Memory struct {
	mu        sync.RWMutex
	employees map[string]certification.Employee
	order     []string
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[string]certification.Employee),
		now:       time.Now,
	}
}

// WithClock sets the clock used for CreatedAt/UpdatedAt.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) FindByID(_ context.Context, id string) (*certification.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLocked(id)
}

func (m *Memory) FindAll(_ context.Context) ([]certification.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findAllLocked(), nil
}

func (m *Memory) Create(_ context.Context, emp certification.Employee) (*certification.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(emp)
}

func (m *Memory) ReplaceEmployee(_ context.Context, id string, emp certification.Employee) (*certification.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaceLocked(id, emp)
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(id)
}

// UpdateStatuses rewrites stored statuses in place, keeping ids.
func (m *Memory) UpdateStatuses(_ context.Context, employeeID string, changes []certification.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateStatusesLocked(employeeID, changes)
}

// Reset drops every employee.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees = make(map[string]certification.Employee)
	m.order = nil
	return nil
}

func (m *Memory) findLocked(id string) (*certification.Employee, error) {
	emp, ok := m.employees[id]
	if !ok {
		return nil, &certification.NotFoundError{Kind: "employee", ID: id}
	}
	out := emp.Clone()
	return &out, nil
}

func (m *Memory) findAllLocked() []certification.Employee {
	result := make([]certification.Employee, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		result = append(result, m.employees[m.order[i]].Clone())
	}
	return result
}

func (m *Memory) createLocked(emp certification.Employee) (*certification.Employee, error) {
	now := m.now()
	stored := emp.Clone()
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	assignCertificationIDs(&stored)

	m.employees[stored.ID] = stored
	m.order = append(m.order, stored.ID)

	out := stored.Clone()
	return &out, nil
}

func (m *Memory) replaceLocked(id string, emp certification.Employee) (*certification.Employee, error) {
	existing, ok := m.employees[id]
	if !ok {
		return nil, &certification.NotFoundError{Kind: "employee", ID: id}
	}

	stored := emp.Clone()
	stored.ID = id
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = m.now()
	assignCertificationIDs(&stored)

	m.employees[id] = stored

	out := stored.Clone()
	return &out, nil
}

// updateStatusesLocked applies every change or none of them.
func (m *Memory) updateStatusesLocked(employeeID string, changes []certification.StatusChange) error {
	existing, ok := m.employees[employeeID]
	if !ok {
		return &certification.NotFoundError{Kind: "employee", ID: employeeID}
	}

	updated := existing.Clone()
	for _, change := range changes {
		i := indexOfCertification(updated.Certifications, change.CertificationID)
		if i < 0 {
			return &certification.NotFoundError{Kind: "certification", ID: change.CertificationID}
		}
		updated.Certifications[i].Status = change.Status
	}
	m.employees[employeeID] = updated
	return nil
}

func indexOfCertification(certs []certification.Certification, id string) int {
	for i := range certs {
		if certs[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Memory) deleteLocked(id string) error {
	if _, ok := m.employees[id]; !ok {
		return &certification.NotFoundError{Kind: "employee", ID: id}
	}
	delete(m.employees, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// assignCertificationIDs gives every certification a fresh id and binds it
// to its owner, the same way the SQL stores do on reinsert.
func assignCertificationIDs(emp *certification.Employee) {
	for i := range emp.Certifications {
		emp.Certifications[i].ID = uuid.NewString()
		emp.Certifications[i].EmployeeID = emp.ID
	}
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The store lock is held for the whole call, so fn must only use the store
// it is given.
func (m *Memory) WithTx(_ context.Context, fn func(certification.EmployeeStore) error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	defer func() {
		if p := recover(); p != nil {
			m.restore(snapshot)
			panic(p)
		}
	}()

	if err = fn(&txMemoryView{parent: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	employees map[string]certification.Employee
	order     []string
}

func (m *Memory) snapshot() memorySnapshot {
	employees := make(map[string]certification.Employee, len(m.employees))
	for id, emp := range m.employees {
		employees[id] = emp.Clone()
	}
	return memorySnapshot{
		employees: employees,
		order:     append([]string(nil), m.order...),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.employees = s.employees
	m.order = s.order
}

type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) FindByID(_ context.Context, id string) (*certification.Employee, error) {
	return tv.parent.findLocked(id)
}

func (tv *txMemoryView) FindAll(_ context.Context) ([]certification.Employee, error) {
	return tv.parent.findAllLocked(), nil
}

func (tv *txMemoryView) Create(_ context.Context, emp certification.Employee) (*certification.Employee, error) {
	return tv.parent.createLocked(emp)
}

func (tv *txMemoryView) ReplaceEmployee(_ context.Context, id string, emp certification.Employee) (*certification.Employee, error) {
	return tv.parent.replaceLocked(id, emp)
}

func (tv *txMemoryView) Delete(_ context.Context, id string) error {
	return tv.parent.deleteLocked(id)
}

func (tv *txMemoryView) UpdateStatuses(_ context.Context, employeeID string, changes []certification.StatusChange) error {
	return tv.parent.updateStatusesLocked(employeeID, changes)
}

var (
	_ certification.TxStore       = (*Memory)(nil)
	_ certification.EmployeeStore = (*txMemoryView)(nil)
	_ certification.StatusUpdater = (*Memory)(nil)
	_ certification.StatusUpdater = (*txMemoryView)(nil)
)
