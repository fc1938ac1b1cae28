package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/cert-tracker/certification"
)

// These tests need a disposable database:
//
//	CERTTRACK_TEST_DATABASE_URL=postgres://localhost/certtrack_test go test ./store/postgres
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("CERTTRACK_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CERTTRACK_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := Connect(ctx, url, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Reset(ctx))

	now := time.Date(2025, time.May, 5, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store
}

func pgCert(name string) certification.Certification {
	return certification.Certification{
		Name:       name,
		IssueDate:  time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate: time.Date(2027, time.May, 1, 0, 0, 0, 0, time.UTC),
		Status:     certification.StatusValid,
		IsRequired: true,
		OJT1:       &certification.OJT{Mentor: "A", Date: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)},
		OJT2:       &certification.OJT{Mentor: "B", Date: time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func pgEmployee(first string, certs ...certification.Certification) certification.Employee {
	return certification.Employee{
		FirstName:      first,
		LastName:       "Tester",
		Department:     "Maintenance",
		StartDate:      time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC),
		Certifications: certs,
	}
}

func TestPostgres_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, pgEmployee("Ana", pgCert("Forklift"), pgCert("Crane")))
	require.NoError(t, err)

	got, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created, got)
	require.Len(t, got.Certifications, 2)
	assert.Equal(t, "Forklift", got.Certifications[0].Name)
	assert.True(t, got.Certifications[1].OJTComplete())

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPostgres_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.FindByID(ctx, "not-a-uuid")
	assert.True(t, certification.IsNotFound(err))

	_, err = store.FindByID(ctx, "6f1d7a0e-5b8e-4a57-9a43-3f7c2b1f0c11")
	assert.True(t, certification.IsNotFound(err))
}

func TestPostgres_WithTxRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, pgEmployee("Ana", pgCert("Forklift")))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithTx(ctx, func(tx certification.EmployeeStore) error {
		next := created.Clone()
		next.Certifications = nil
		if _, err := tx.ReplaceEmployee(ctx, created.ID, next); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Certifications, 1)
}

func TestPostgres_CopyFromEmployee(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	source, err := store.Create(ctx, pgEmployee("Source", pgCert("Forklift")))
	require.NoError(t, err)
	target, err := store.Create(ctx, pgEmployee("Target", pgCert("Crane")))
	require.NoError(t, err)

	result, err := certification.NewCopier(store, nil).CopyFromEmployee(ctx, source.ID, nil, []string{target.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.UpdatedEmployees)

	got, err := store.FindByID(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, got.Certifications, 2)
	assert.Equal(t, "Forklift", got.Certifications[1].Name)
}
