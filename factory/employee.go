package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warp/cert-tracker/certification"
)

// =============================================================================
// EMPLOYEE JSON - Shared by the HTTP API and the bulk import
// =============================================================================

// EmployeeJSON is the wire form of an employee. Dates are "YYYY-MM-DD" or
// RFC3339.
type EmployeeJSON struct {
	EmployeeNumber string              `json:"employeeNumber"`
	FirstName      string              `json:"firstName" validate:"required"`
	LastName       string              `json:"lastName" validate:"required"`
	PhoneNumber    string              `json:"phoneNumber"`
	Email          string              `json:"email" validate:"omitempty,email"`
	Role           string              `json:"role"`
	Department     string              `json:"department"`
	StartDate      string              `json:"startDate" validate:"required"`
	ProfileImage   string              `json:"profileImage,omitempty"`
	Certifications []CertificationJSON `json:"certifications" validate:"dive"`
}

// CertificationJSON is the wire form of a certification. Status is
// accepted but recomputed from the expiry date.
type CertificationJSON struct {
	ID                  string   `json:"id,omitempty"`
	EmployeeID          string   `json:"employeeId,omitempty"`
	Name                string   `json:"name" validate:"required"`
	IssueDate           string   `json:"issueDate"`
	ExpiryDate          string   `json:"expiryDate" validate:"required"`
	StartDate           string   `json:"startDate,omitempty"`
	EndDate             string   `json:"endDate,omitempty"`
	Status              string   `json:"status,omitempty"`
	IsRequired          bool     `json:"isRequired"`
	OJT1                *OJTJSON `json:"ojt1,omitempty"`
	OJT2                *OJTJSON `json:"ojt2,omitempty"`
	Certificate         string   `json:"certificate,omitempty"`
	CertificateFileName string   `json:"certificateFileName,omitempty"`
}

type OJTJSON struct {
	Mentor string `json:"mentor"`
	Date   string `json:"date"`
}

// ParseDate accepts "YYYY-MM-DD", RFC3339 and RFC3339 with fractions.
// An empty string is the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC3339", s)
}

func parseDateField(field, s string) (time.Time, error) {
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, &certification.ValidationError{Field: field, Message: err.Error()}
	}
	return t, nil
}

// EmployeeFromJSON converts the wire form. Certification statuses are
// classified at now.
func EmployeeFromJSON(ej EmployeeJSON, now time.Time) (certification.Employee, error) {
	start, err := parseDateField("startDate", ej.StartDate)
	if err != nil {
		return certification.Employee{}, err
	}

	emp := certification.Employee{
		EmployeeNumber: strings.TrimSpace(ej.EmployeeNumber),
		FirstName:      strings.TrimSpace(ej.FirstName),
		LastName:       strings.TrimSpace(ej.LastName),
		PhoneNumber:    strings.TrimSpace(ej.PhoneNumber),
		Email:          strings.TrimSpace(ej.Email),
		Role:           strings.TrimSpace(ej.Role),
		Department:     strings.TrimSpace(ej.Department),
		StartDate:      start,
		ProfileImage:   ej.ProfileImage,
		Certifications: make([]certification.Certification, 0, len(ej.Certifications)),
	}

	for i, cj := range ej.Certifications {
		c, err := CertificationFromJSON(cj, now)
		if err != nil {
			if ve, ok := err.(*certification.ValidationError); ok {
				return certification.Employee{}, &certification.ValidationError{
					Field:   fmt.Sprintf("certifications[%d].%s", i, ve.Field),
					Message: ve.Message,
				}
			}
			return certification.Employee{}, err
		}
		emp.Certifications = append(emp.Certifications, c)
	}
	return emp, nil
}

// CertificationFromJSON converts one certification.
func CertificationFromJSON(cj CertificationJSON, now time.Time) (certification.Certification, error) {
	issue, err := parseDateField("issueDate", cj.IssueDate)
	if err != nil {
		return certification.Certification{}, err
	}
	expiry, err := parseDateField("expiryDate", cj.ExpiryDate)
	if err != nil {
		return certification.Certification{}, err
	}
	start, err := optionalDate("startDate", cj.StartDate)
	if err != nil {
		return certification.Certification{}, err
	}
	end, err := optionalDate("endDate", cj.EndDate)
	if err != nil {
		return certification.Certification{}, err
	}
	ojt1, err := ojtFromJSON("ojt1", cj.OJT1)
	if err != nil {
		return certification.Certification{}, err
	}
	ojt2, err := ojtFromJSON("ojt2", cj.OJT2)
	if err != nil {
		return certification.Certification{}, err
	}

	c := certification.Certification{
		ID:                  cj.ID,
		EmployeeID:          cj.EmployeeID,
		Name:                strings.TrimSpace(cj.Name),
		IssueDate:           issue,
		ExpiryDate:          expiry,
		StartDate:           start,
		EndDate:             end,
		IsRequired:          cj.IsRequired,
		OJT1:                ojt1,
		OJT2:                ojt2,
		Certificate:         cj.Certificate,
		CertificateFileName: cj.CertificateFileName,
	}
	if !expiry.IsZero() {
		c.Status = certification.Classify(expiry, now)
	}
	return c, nil
}

func optionalDate(field, s string) (*time.Time, error) {
	t, err := parseDateField(field, s)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

// ojtFromJSON drops half-filled sign-offs.
func ojtFromJSON(field string, oj *OJTJSON) (*certification.OJT, error) {
	if oj == nil {
		return nil, nil
	}
	date, err := parseDateField(field+".date", oj.Date)
	if err != nil {
		return nil, err
	}
	ojt := &certification.OJT{Mentor: strings.TrimSpace(oj.Mentor), Date: date}
	if !ojt.Present() {
		return nil, nil
	}
	return ojt, nil
}

// EmployeeToJSON converts back to the wire form.
func EmployeeToJSON(emp certification.Employee) EmployeeJSON {
	ej := EmployeeJSON{
		EmployeeNumber: emp.EmployeeNumber,
		FirstName:      emp.FirstName,
		LastName:       emp.LastName,
		PhoneNumber:    emp.PhoneNumber,
		Email:          emp.Email,
		Role:           emp.Role,
		Department:     emp.Department,
		StartDate:      formatDate(emp.StartDate),
		ProfileImage:   emp.ProfileImage,
		Certifications: make([]CertificationJSON, 0, len(emp.Certifications)),
	}
	for _, c := range emp.Certifications {
		cj := CertificationJSON{
			ID:                  c.ID,
			EmployeeID:          c.EmployeeID,
			Name:                c.Name,
			IssueDate:           formatDate(c.IssueDate),
			ExpiryDate:          formatDate(c.ExpiryDate),
			Status:              string(c.Status),
			IsRequired:          c.IsRequired,
			Certificate:         c.Certificate,
			CertificateFileName: c.CertificateFileName,
		}
		if c.StartDate != nil {
			cj.StartDate = formatDate(*c.StartDate)
		}
		if c.EndDate != nil {
			cj.EndDate = formatDate(*c.EndDate)
		}
		if c.OJT1 != nil {
			cj.OJT1 = &OJTJSON{Mentor: c.OJT1.Mentor, Date: formatDate(c.OJT1.Date)}
		}
		if c.OJT2 != nil {
			cj.OJT2 = &OJTJSON{Mentor: c.OJT2.Mentor, Date: formatDate(c.OJT2.Date)}
		}
		ej.Certifications = append(ej.Certifications, cj)
	}
	return ej
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

// =============================================================================
// BULK IMPORT
// =============================================================================

// ImportFailure records one employee that could not be imported.
type ImportFailure struct {
	Index          int    `json:"index"`
	EmployeeNumber string `json:"employeeNumber"`
	Name           string `json:"name"`
	Error          string `json:"error"`
}

// ImportResult counts successes and failures of a best-effort import.
type ImportResult struct {
	Imported int             `json:"imported"`
	Failed   []ImportFailure `json:"failed"`
}

// ParseEmployees reads a JSON array of employees.
func ParseEmployees(r io.Reader) ([]EmployeeJSON, error) {
	var list []EmployeeJSON
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to parse employees JSON: %w", err)
	}
	return list, nil
}

// ImportEmployees creates every employee independently. A failing employee
// is recorded and the import continues. Only context cancellation stops it.
func ImportEmployees(ctx context.Context, store certification.EmployeeStore, list []EmployeeJSON, now time.Time, logger *zap.Logger) (ImportResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	result := ImportResult{Failed: []ImportFailure{}}

	for i, ej := range list {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fail := func(err error) {
			result.Failed = append(result.Failed, ImportFailure{
				Index:          i,
				EmployeeNumber: ej.EmployeeNumber,
				Name:           strings.TrimSpace(ej.FirstName + " " + ej.LastName),
				Error:          err.Error(),
			})
			logger.Warn("employee not imported",
				zap.Int("index", i),
				zap.String("employee_number", ej.EmployeeNumber),
				zap.Error(err),
			)
		}

		emp, err := EmployeeFromJSON(ej, now)
		if err != nil {
			fail(err)
			continue
		}
		if err := certification.ValidateEmployee(emp); err != nil {
			fail(err)
			continue
		}
		created, err := store.Create(ctx, emp)
		if err != nil {
			fail(err)
			continue
		}

		result.Imported++
		logger.Debug("employee imported",
			zap.String("id", created.ID),
			zap.String("name", created.FullName()),
		)
	}

	logger.Info("import finished",
		zap.Int("imported", result.Imported),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}
