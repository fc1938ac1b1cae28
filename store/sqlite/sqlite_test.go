/*
sqlite_test.go - Tests for the SQLite store

Tests for:
- Round-trip of employees, certifications and OJT records
- Replace semantics (fresh ids, cascade of the old set)
- Transaction rollback across several employees (copy workflow)
- SQL issued inside a failed transaction (go-sqlmock)
*/
package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/cert-tracker/certification"
)

var testNow = time.Date(2025, time.April, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store.WithClock(func() time.Time { return testNow })
}

func testCert(name string) certification.Certification {
	start := testNow.AddDate(-1, 0, 0)
	return certification.Certification{
		Name:                name,
		IssueDate:           testNow.AddDate(-1, 0, 0),
		ExpiryDate:          testNow.AddDate(2, 0, 0),
		StartDate:           &start,
		Status:              certification.StatusValid,
		IsRequired:          true,
		OJT1:                &certification.OJT{Mentor: "M. One", Date: testNow.AddDate(0, -6, 0)},
		OJT2:                &certification.OJT{Mentor: "M. Two", Date: testNow.AddDate(0, -3, 0)},
		CertificateFileName: name + ".pdf",
	}
}

func testEmployee(first string, certs ...certification.Certification) certification.Employee {
	return certification.Employee{
		EmployeeNumber: "E-" + first,
		FirstName:      first,
		LastName:       "Tester",
		Email:          first + "@example.com",
		Role:           "Technician",
		Department:     "Maintenance",
		StartDate:      time.Date(2022, time.January, 3, 0, 0, 0, 0, time.UTC),
		Certifications: certs,
	}
}

func TestStore_CreateAndFind_RoundTrip(t *testing.T) {
	// GIVEN: An employee with a full certification and a half-filled OJT one
	store := newTestStore(t)
	ctx := context.Background()

	half := testCert("Crane")
	half.OJT2 = &certification.OJT{Mentor: "No date"}
	half.StartDate = nil
	half.IssueDate = time.Time{}

	// WHEN: Creating and reading it back
	created, err := store.Create(ctx, testEmployee("Ana", testCert("Forklift"), half))
	require.NoError(t, err)

	got, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)

	// THEN: Every field survives
	assert.Equal(t, created, got)
	assert.Equal(t, "Ana", got.FirstName)
	assert.Equal(t, testNow, got.CreatedAt)
	require.Len(t, got.Certifications, 2)

	forklift := got.Certifications[0]
	assert.Equal(t, "Forklift", forklift.Name)
	assert.Equal(t, created.ID, forklift.EmployeeID)
	assert.True(t, forklift.IsRequired)
	assert.True(t, forklift.OJTComplete())
	assert.Equal(t, testNow.AddDate(2, 0, 0), forklift.ExpiryDate)
	require.NotNil(t, forklift.StartDate)
	assert.Equal(t, testNow.AddDate(-1, 0, 0), *forklift.StartDate)

	// AND: The half-filled OJT is not stored and optional dates stay empty
	crane := got.Certifications[1]
	assert.NotNil(t, crane.OJT1)
	assert.Nil(t, crane.OJT2)
	assert.False(t, crane.OJTComplete())
	assert.Nil(t, crane.StartDate)
	assert.True(t, crane.IssueDate.IsZero())
}

func TestStore_FindByID_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.FindByID(context.Background(), "missing")

	assert.True(t, certification.IsNotFound(err))
}

func TestStore_ReplaceEmployee_ReplacesCertificationSet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testEmployee("Ana", testCert("Forklift"), testCert("Crane")))
	require.NoError(t, err)
	oldIDs := []string{created.Certifications[0].ID, created.Certifications[1].ID}

	next := created.Clone()
	next.Department = "Operations"
	next.Certifications = append(next.Certifications[1:], testCert("Welding"))

	replaced, err := store.ReplaceEmployee(ctx, created.ID, next)
	require.NoError(t, err)

	assert.Equal(t, "Operations", replaced.Department)
	require.Len(t, replaced.Certifications, 2)
	assert.Equal(t, "Crane", replaced.Certifications[0].Name)
	assert.Equal(t, "Welding", replaced.Certifications[1].Name)
	for _, c := range replaced.Certifications {
		assert.NotContains(t, oldIDs, c.ID)
	}

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM ojt_records").Scan(&count))
	assert.Equal(t, 4, count, "OJT rows of the old set are cascaded away")
}

func TestStore_ReplaceEmployee_Missing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ReplaceEmployee(context.Background(), "missing", testEmployee("Ghost"))

	assert.True(t, certification.IsNotFound(err))
}

func TestStore_DeleteCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testEmployee("Ana", testCert("Forklift")))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, created.ID))
	assert.True(t, certification.IsNotFound(store.Delete(ctx, created.ID)))

	var certs, ojts int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM certifications").Scan(&certs))
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM ojt_records").Scan(&ojts))
	assert.Zero(t, certs)
	assert.Zero(t, ojts)
}

func TestStore_FindAll_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	clock := testNow
	store.WithClock(func() time.Time { return clock })
	for _, name := range []string{"Ana", "Ben", "Cy"} {
		_, err := store.Create(ctx, testEmployee(name, testCert(name+" cert")))
		require.NoError(t, err)
		clock = clock.Add(time.Minute)
	}

	all, err := store.FindAll(ctx)
	require.NoError(t, err)

	require.Len(t, all, 3)
	assert.Equal(t, "Cy", all[0].FirstName)
	assert.Equal(t, "Ben", all[1].FirstName)
	assert.Equal(t, "Ana", all[2].FirstName)
	assert.Equal(t, "Ana cert", all[2].Certifications[0].Name)

	require.NoError(t, store.Reset(ctx))
	all, err = store.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_FindAll_NewestFirstWithinOneSecond(t *testing.T) {
	// GIVEN: Employees created a few milliseconds apart in the same second
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, time.April, 10, 10, 0, 0, 0, time.UTC)
	steps := []struct {
		name   string
		offset time.Duration
	}{
		{"Whole", 0},
		{"Half", 500 * time.Millisecond},
		{"Later", 550 * time.Millisecond},
		{"Latest", 900*time.Millisecond + 1},
	}
	for _, step := range steps {
		at := base.Add(step.offset)
		store.WithClock(func() time.Time { return at })
		_, err := store.Create(ctx, testEmployee(step.name))
		require.NoError(t, err)
	}

	// WHEN: Listing them
	all, err := store.FindAll(ctx)
	require.NoError(t, err)

	// THEN: The order follows creation time, not the text of a trimmed fraction
	require.Len(t, all, 4)
	assert.Equal(t, []string{"Latest", "Later", "Half", "Whole"},
		[]string{all[0].FirstName, all[1].FirstName, all[2].FirstName, all[3].FirstName})
	assert.Equal(t, base.Add(550*time.Millisecond), all[1].CreatedAt)
}

func TestParseTime_AcceptsTrimmedFractions(t *testing.T) {
	for _, s := range []string{"2025-04-10T10:00:00.55Z", "2025-04-10T10:00:00Z", "2025-04-10T10:00:00.550000000Z"} {
		got, err := parseTime(s)
		require.NoError(t, err, s)
		assert.Equal(t, 2025, got.Year())
	}
	assert.Equal(t, "2025-04-10T10:00:00.500000000Z",
		formatTime(time.Date(2025, time.April, 10, 12, 0, 0, 500_000_000, time.FixedZone("X", 2*3600))))
}

func TestStore_UpdateStatuses_KeepsIDs(t *testing.T) {
	// GIVEN: Two employees with certifications
	store := newTestStore(t)
	ctx := context.Background()
	ana, err := store.Create(ctx, testEmployee("Ana", testCert("Forklift"), testCert("Crane")))
	require.NoError(t, err)
	ben, err := store.Create(ctx, testEmployee("Ben", testCert("Forklift")))
	require.NoError(t, err)

	// WHEN: Rewriting one of Ana's statuses inside a transaction
	err = store.WithTx(ctx, func(tx certification.EmployeeStore) error {
		return tx.(certification.StatusUpdater).UpdateStatuses(ctx, ana.ID, []certification.StatusChange{
			{CertificationID: ana.Certifications[1].ID, Status: certification.StatusExpired},
		})
	})

	// THEN: The status changed and nothing else did, ids included
	require.NoError(t, err)
	got, err := store.FindByID(ctx, ana.ID)
	require.NoError(t, err)
	want := ana.Clone()
	want.Certifications[1].Status = certification.StatusExpired
	assert.Equal(t, want, *got)

	// AND: A certification owned by someone else is not found and nothing is written
	err = store.UpdateStatuses(ctx, ana.ID, []certification.StatusChange{
		{CertificationID: ana.Certifications[0].ID, Status: certification.StatusExpired},
		{CertificationID: ben.Certifications[0].ID, Status: certification.StatusExpired},
	})
	assert.True(t, certification.IsNotFound(err))
	got, err = store.FindByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, certification.StatusValid, got.Certifications[0].Status)
}

func TestStore_CopyRollsBackEveryTarget(t *testing.T) {
	// GIVEN: A source and three targets, and a trigger that rejects
	// certification inserts for the second target
	store := newTestStore(t)
	ctx := context.Background()

	source, err := store.Create(ctx, testEmployee("Source", testCert("Forklift")))
	require.NoError(t, err)
	var targets []*certification.Employee
	for _, name := range []string{"T1", "T2", "T3"} {
		emp, err := store.Create(ctx, testEmployee(name, testCert("Existing")))
		require.NoError(t, err)
		targets = append(targets, emp)
	}

	_, err = store.db.Exec(`
		CREATE TRIGGER reject_second_target BEFORE INSERT ON certifications
		WHEN NEW.employee_id = '` + targets[1].ID + `'
		BEGIN SELECT RAISE(ABORT, 'rejected by trigger'); END;
	`)
	require.NoError(t, err)

	// WHEN: Copying the source's certifications to all three
	copier := certification.NewCopier(store, zap.NewNop())
	_, err = copier.CopyFromEmployee(ctx, source.ID, nil,
		[]string{targets[0].ID, targets[1].ID, targets[2].ID})

	// THEN: The batch fails as a persistence error
	require.Error(t, err)
	assert.True(t, certification.IsPersistence(err))

	// AND: No target changed, including the first one
	for _, want := range targets {
		got, err := store.FindByID(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestStore_CopyCommits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	source, err := store.Create(ctx, testEmployee("Source", testCert("Forklift"), testCert("Crane")))
	require.NoError(t, err)
	target, err := store.Create(ctx, testEmployee("Target", testCert("Crane")))
	require.NoError(t, err)

	copier := certification.NewCopier(store, zap.NewNop())
	result, err := copier.CopyFromEmployee(ctx, source.ID, nil, []string{target.ID, "missing"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.UpdatedEmployees)
	assert.Equal(t, 2, result.CopiedCertifications)

	got, err := store.FindByID(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, got.Certifications, 2)
	assert.Equal(t, "Crane", got.Certifications[0].Name)
	assert.Equal(t, "Forklift", got.Certifications[1].Name)
	assert.True(t, got.Certifications[1].OJTComplete())
}

// =============================================================================
// SQLMOCK
// =============================================================================

func expectTx(mock sqlmock.Sqlmock, fn func()) {
	mock.ExpectBegin()
	fn()
}

func TestStore_ReplaceEmployee_RollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := FromDB(db, zap.NewNop())

	expectTx(mock, func() {
		mock.ExpectExec("UPDATE employees SET").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("DELETE FROM certifications WHERE employee_id").
			WithArgs("emp-1").
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec("INSERT INTO certifications").WillReturnError(errors.New("disk I/O error"))
		mock.ExpectRollback()
	})

	_, err = store.ReplaceEmployee(context.Background(), "emp-1", testEmployee("Ana", testCert("Forklift")))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_RollsBackWhenCallbackFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := FromDB(db, zap.NewNop())
	boom := errors.New("boom")

	expectTx(mock, func() {
		mock.ExpectRollback()
	})

	err = store.WithTx(context.Background(), func(certification.EmployeeStore) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx_CommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := FromDB(db, zap.NewNop())

	expectTx(mock, func() {
		mock.ExpectCommit().WillReturnError(errors.New("database is locked"))
	})

	err = store.WithTx(context.Background(), func(certification.EmployeeStore) error { return nil })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Delete_MissingReportsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM employees WHERE id").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = FromDB(db, nil).Delete(context.Background(), "ghost")

	assert.True(t, certification.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
