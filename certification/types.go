/*
Package certification provides the core of the certification tracker.

PURPOSE:
  Turns raw employee and certification records into derived values
  (expiry status, OJT completion, qualification score) and implements the
  bulk copy of certifications between employees.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: a person with a start date and a list of certifications
  - Certification: a named qualification with issue/expiry dates
  - OJT: an on-the-job-training sign-off (mentor + date)
  - Status: the stored, redundant expiry classification

DESIGN PRINCIPLES:
  1. Purity: every date-relative function takes an explicit "now"
  2. Derived values are recomputed on read (the score is never stored)
  3. Certification names are the identity used when merging

SEE ALSO:
  - time.go: expiry classification and tenure
  - score.go: qualification score
  - merge.go: merge-by-name
  - copy.go: copy workflow
  - store.go: persistence contract
*/
package certification

import (
	"strings"
	"time"
)

// =============================================================================
// STATUS - Expiry classification of a certification
// =============================================================================

type Status string

const (
	StatusValid        Status = "valid"
	StatusExpired      Status = "expired"
	StatusExpiringSoon Status = "expiring-soon"
)

func (s Status) IsKnown() bool {
	switch s {
	case StatusValid, StatusExpired, StatusExpiringSoon:
		return true
	}
	return false
}

// =============================================================================
// OJT - On-the-job-training sign-off
// =============================================================================

// OJT has no lifecycle of its own; it lives inside a Certification.
type OJT struct {
	Mentor string    `json:"mentor"`
	Date   time.Time `json:"date"`
}

// Present reports whether the sign-off carries both a mentor and a date.
// A half-filled record is treated as missing.
func (o *OJT) Present() bool {
	return o != nil && strings.TrimSpace(o.Mentor) != "" && !o.Date.IsZero()
}

// =============================================================================
// CERTIFICATION
// =============================================================================

type Certification struct {
	ID         string `json:"id,omitempty"`
	EmployeeID string `json:"employeeId,omitempty"`

	// Name is free text and doubles as the merge key (see MergeKey).
	Name string `json:"name"`

	IssueDate  time.Time  `json:"issueDate"`
	ExpiryDate time.Time  `json:"expiryDate"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`

	Status     Status `json:"status"`
	IsRequired bool   `json:"isRequired"`

	OJT1 *OJT `json:"ojt1,omitempty"`
	OJT2 *OJT `json:"ojt2,omitempty"`

	Certificate         string `json:"certificate,omitempty"`
	CertificateFileName string `json:"certificateFileName,omitempty"`
}

// OJTComplete is true iff both sign-offs are present.
func (c Certification) OJTComplete() bool {
	return c.OJT1.Present() && c.OJT2.Present()
}

// IsCurrentlyValid is true iff the expiry date is strictly after now.
func (c Certification) IsCurrentlyValid(now time.Time) bool {
	return c.ExpiryDate.After(now)
}

// CountsTowardScore is true for required, OJT-complete, unexpired certifications.
func (c Certification) CountsTowardScore(now time.Time) bool {
	return c.IsRequired && c.OJTComplete() && c.IsCurrentlyValid(now)
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (c Certification) Clone() Certification {
	out := c
	if c.StartDate != nil {
		t := *c.StartDate
		out.StartDate = &t
	}
	if c.EndDate != nil {
		t := *c.EndDate
		out.EndDate = &t
	}
	if c.OJT1 != nil {
		o := *c.OJT1
		out.OJT1 = &o
	}
	if c.OJT2 != nil {
		o := *c.OJT2
		out.OJT2 = &o
	}
	return out
}

// =============================================================================
// EMPLOYEE
// =============================================================================

type Employee struct {
	ID             string          `json:"id"`
	EmployeeNumber string          `json:"employeeNumber"`
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	PhoneNumber    string          `json:"phoneNumber"`
	Email          string          `json:"email"`
	Role           string          `json:"role"`
	Department     string          `json:"department"`
	StartDate      time.Time       `json:"startDate"`
	Certifications []Certification `json:"certifications"`
	ProfileImage   string          `json:"profileImage,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// Clone returns a deep copy of the employee and its certifications.
func (e Employee) Clone() Employee {
	out := e
	out.Certifications = CloneAll(e.Certifications)
	return out
}

// CertificationByID returns the certification with the given id, if any.
func (e Employee) CertificationByID(id string) (Certification, bool) {
	for _, c := range e.Certifications {
		if c.ID == id {
			return c, true
		}
	}
	return Certification{}, false
}

// CloneAll deep-copies a certification list. A nil input yields an empty list.
func CloneAll(certs []Certification) []Certification {
	out := make([]Certification, len(certs))
	for i, c := range certs {
		out[i] = c.Clone()
	}
	return out
}
