package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cert-tracker/certification"
	"github.com/warp/cert-tracker/certification/store"
)

var fixedNow = time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)

func newEmployee(first string, certNames ...string) certification.Employee {
	emp := certification.Employee{
		FirstName: first,
		LastName:  "Tester",
		StartDate: fixedNow.AddDate(-2, 0, 0),
	}
	for _, name := range certNames {
		emp.Certifications = append(emp.Certifications, certification.Certification{
			ID:         "caller-supplied",
			Name:       name,
			ExpiryDate: fixedNow.AddDate(1, 0, 0),
			Status:     certification.StatusExpiringSoon,
		})
	}
	return emp
}

func TestMemory_CreateAssignsIDs(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory().WithClock(func() time.Time { return fixedNow })

	created, err := m.Create(ctx, newEmployee("Ana", "Forklift", "Crane"))
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, fixedNow, created.CreatedAt)
	require.Len(t, created.Certifications, 2)
	assert.NotEqual(t, "caller-supplied", created.Certifications[0].ID)
	assert.NotEqual(t, created.Certifications[0].ID, created.Certifications[1].ID)
	assert.Equal(t, created.ID, created.Certifications[1].EmployeeID)
}

func TestMemory_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	created, err := m.Create(ctx, newEmployee("Ana", "Forklift"))
	require.NoError(t, err)

	got, err := m.FindByID(ctx, created.ID)
	require.NoError(t, err)
	got.Certifications[0].Name = "mutated"

	again, err := m.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Forklift", again.Certifications[0].Name)
}

func TestMemory_ReplaceKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	clock := fixedNow
	m := store.NewMemory().WithClock(func() time.Time { return clock })

	created, err := m.Create(ctx, newEmployee("Ana", "Forklift"))
	require.NoError(t, err)

	clock = fixedNow.Add(time.Hour)
	next := created.Clone()
	next.Department = "Maintenance"
	next.Certifications = nil

	replaced, err := m.ReplaceEmployee(ctx, created.ID, next)
	require.NoError(t, err)

	assert.Equal(t, fixedNow, replaced.CreatedAt)
	assert.Equal(t, clock, replaced.UpdatedAt)
	assert.Equal(t, "Maintenance", replaced.Department)
	assert.Empty(t, replaced.Certifications)
}

func TestMemory_NotFound(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	_, err := m.FindByID(ctx, "missing")
	assert.True(t, certification.IsNotFound(err))

	_, err = m.ReplaceEmployee(ctx, "missing", newEmployee("Ghost"))
	assert.True(t, certification.IsNotFound(err))

	assert.True(t, certification.IsNotFound(m.Delete(ctx, "missing")))
}

func TestMemory_FindAllNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	for _, name := range []string{"C", "A", "B"} {
		_, err := m.Create(ctx, newEmployee(name))
		require.NoError(t, err)
	}

	all, err := m.FindAll(ctx)
	require.NoError(t, err)

	var firsts []string
	for _, e := range all {
		firsts = append(firsts, e.FirstName)
	}
	assert.Equal(t, []string{"B", "A", "C"}, firsts)

	require.NoError(t, m.Delete(ctx, all[1].ID))
	all, err = m.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, m.Reset(ctx))
	all, err = m.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemory_WithTxRollsBackOnError(t *testing.T) {
	// GIVEN: One stored employee
	ctx := context.Background()
	m := store.NewMemory()
	created, err := m.Create(ctx, newEmployee("Ana", "Forklift"))
	require.NoError(t, err)

	// WHEN: A transaction replaces it, creates another, then fails
	boom := errors.New("boom")
	err = m.WithTx(ctx, func(tx certification.EmployeeStore) error {
		next := created.Clone()
		next.Certifications = nil
		if _, err := tx.ReplaceEmployee(ctx, created.ID, next); err != nil {
			return err
		}
		if _, err := tx.Create(ctx, newEmployee("Ben")); err != nil {
			return err
		}
		return boom
	})

	// THEN: Every write is undone
	require.ErrorIs(t, err, boom)
	all, err := m.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, *created, all[0])
}

func TestMemory_UpdateStatusesKeepsIDs(t *testing.T) {
	// GIVEN: An employee with two certifications
	ctx := context.Background()
	m := store.NewMemory()
	created, err := m.Create(ctx, newEmployee("Ana", "Forklift", "Crane"))
	require.NoError(t, err)

	// WHEN: One status is rewritten in place
	err = m.UpdateStatuses(ctx, created.ID, []certification.StatusChange{
		{CertificationID: created.Certifications[1].ID, Status: certification.StatusExpired},
	})

	// THEN: Only that status changed and every id survived
	require.NoError(t, err)
	got, err := m.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Certifications[0], got.Certifications[0])
	assert.Equal(t, created.Certifications[1].ID, got.Certifications[1].ID)
	assert.Equal(t, certification.StatusExpired, got.Certifications[1].Status)
}

func TestMemory_UpdateStatusesIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	created, err := m.Create(ctx, newEmployee("Ana", "Forklift"))
	require.NoError(t, err)

	err = m.UpdateStatuses(ctx, created.ID, []certification.StatusChange{
		{CertificationID: created.Certifications[0].ID, Status: certification.StatusExpired},
		{CertificationID: "someone-else", Status: certification.StatusExpired},
	})
	assert.True(t, certification.IsNotFound(err))

	err = m.UpdateStatuses(ctx, "ghost", nil)
	assert.True(t, certification.IsNotFound(err))

	got, err := m.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)
}

func TestMemory_WithTxRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	assert.Panics(t, func() {
		_ = m.WithTx(ctx, func(tx certification.EmployeeStore) error {
			_, _ = tx.Create(ctx, newEmployee("Ana"))
			panic("bug")
		})
	})

	all, err := m.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemory_WithTxCommits(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	err := m.WithTx(ctx, func(tx certification.EmployeeStore) error {
		created, err := tx.Create(ctx, newEmployee("Ana"))
		if err != nil {
			return err
		}
		_, err = tx.FindByID(ctx, created.ID)
		return err
	})
	require.NoError(t, err)

	all, err := m.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
