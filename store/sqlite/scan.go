package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/cert-tracker/certification"
)

const selectEmployees = `
	SELECT id, employee_number, first_name, last_name, phone_number, email, role,
	       department, start_date, profile_image, created_at, updated_at
	FROM employees`

const selectCertifications = `
	SELECT c.id, c.employee_id, c.name, c.issue_date, c.expiry_date, c.start_date,
	       c.end_date, c.status, c.is_required, c.certificate, c.certificate_file_name,
	       o1.mentor, o1.date, o2.mentor, o2.date
	FROM certifications c
	LEFT JOIN ojt_records o1 ON o1.certification_id = c.id AND o1.slot = 1
	LEFT JOIN ojt_records o2 ON o2.certification_id = c.id AND o2.slot = 2`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (*certification.Employee, error) {
	var emp certification.Employee
	var startDate, createdAt, updatedAt string

	err := row.Scan(
		&emp.ID, &emp.EmployeeNumber, &emp.FirstName, &emp.LastName,
		&emp.PhoneNumber, &emp.Email, &emp.Role, &emp.Department,
		&startDate, &emp.ProfileImage, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if emp.StartDate, err = parseTime(startDate); err != nil {
		return nil, err
	}
	if emp.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if emp.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &emp, nil
}

func scanCertification(row scanner) (certification.Certification, error) {
	var c certification.Certification
	var status, expiry string
	var issue, start, end sql.NullString
	var mentor1, date1, mentor2, date2 sql.NullString

	err := row.Scan(
		&c.ID, &c.EmployeeID, &c.Name, &issue, &expiry, &start, &end,
		&status, &c.IsRequired, &c.Certificate, &c.CertificateFileName,
		&mentor1, &date1, &mentor2, &date2,
	)
	if err != nil {
		return c, err
	}

	c.Status = certification.Status(status)
	if c.ExpiryDate, err = parseTime(expiry); err != nil {
		return c, err
	}
	if c.IssueDate, err = parseNullTime(issue); err != nil {
		return c, err
	}
	if c.StartDate, err = parseNullTimePtr(start); err != nil {
		return c, err
	}
	if c.EndDate, err = parseNullTimePtr(end); err != nil {
		return c, err
	}
	if c.OJT1, err = parseOJT(mentor1, date1); err != nil {
		return c, err
	}
	if c.OJT2, err = parseOJT(mentor2, date2); err != nil {
		return c, err
	}
	return c, nil
}

func parseOJT(mentor, date sql.NullString) (*certification.OJT, error) {
	if !mentor.Valid || !date.Valid {
		return nil, nil
	}
	t, err := parseTime(date.String)
	if err != nil {
		return nil, err
	}
	return &certification.OJT{Mentor: mentor.String, Date: t}, nil
}

// =============================================================================
// DATE ENCODING
// =============================================================================

// timeLayout is fixed-width so stored dates order correctly as text.
// RFC3339Nano trims trailing zeros and does not.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime also accepts rows written with trimmed fractions.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func nullTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return nullTime(*t)
}

func parseNullTime(s sql.NullString) (time.Time, error) {
	if !s.Valid {
		return time.Time{}, nil
	}
	return parseTime(s.String)
}

func parseNullTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
