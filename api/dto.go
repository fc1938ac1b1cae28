/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Employee bodies reuse
  factory.EmployeeJSON so the API and the bulk import accept the same
  format.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry go-playground/validator tags. Domain rules that need
  parsed values (dates, attachment sizes) run in certification.ValidateEmployee.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/employee.go: EmployeeJSON
*/
package api

import (
	"time"

	"github.com/warp/cert-tracker/certification"
	"github.com/warp/cert-tracker/factory"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO is an employee with its derived qualification.
type EmployeeDTO struct {
	ID string `json:"id"`
	factory.EmployeeJSON
	Qualification     int                `json:"qualification"`
	QualificationBand certification.Band `json:"qualificationBand"`
	CreatedAt         string             `json:"createdAt,omitempty"`
	UpdatedAt         string             `json:"updatedAt,omitempty"`
}

// QualificationDTO is the score breakdown of one employee.
type QualificationDTO struct {
	EmployeeID string `json:"employeeId"`
	Policy     string `json:"policy"`
	certification.Breakdown
	TenureYears  int `json:"tenureYears"`
	TenureMonths int `json:"tenureMonths"`
}

// =============================================================================
// COPY CERTIFICATIONS
// =============================================================================

// CopyCertificationsRequest copies either an explicit list or the
// certifications of a source employee.
type CopyCertificationsRequest struct {
	SourceEmployeeID  string                      `json:"sourceEmployeeId"`
	CertificationIDs  []string                    `json:"certificationIds"`
	Certifications    []factory.CertificationJSON `json:"certifications" validate:"omitempty,dive"`
	TargetEmployeeIDs []string                    `json:"targetEmployeeIds"`
}

// CopyCertificationsResponse reports both counts separately.
type CopyCertificationsResponse struct {
	Success                   bool                          `json:"success"`
	Message                   string                        `json:"message"`
	CopiedCertificationsCount int                           `json:"copiedCertificationsCount"`
	UpdatedEmployeesCount     int                           `json:"updatedEmployeesCount"`
	Skipped                   []certification.SkippedTarget `json:"skipped"`
}

// =============================================================================
// ADMIN
// =============================================================================

type RefreshStatusesResponse struct {
	Employees        int       `json:"employees"`
	UpdatedEmployees int       `json:"updatedEmployees"`
	ChangedStatuses  int       `json:"changedStatuses"`
	RefreshedAt      time.Time `json:"refreshedAt"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId" validate:"required"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// FieldErrorDTO names one invalid request field.
type FieldErrorDTO struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(emp certification.Employee, scorer *certification.Scorer, now time.Time) EmployeeDTO {
	score := scorer.Score(emp, now)
	dto := EmployeeDTO{
		ID:                emp.ID,
		EmployeeJSON:      factory.EmployeeToJSON(emp),
		Qualification:     score,
		QualificationBand: scorer.Band(score),
	}
	if !emp.CreatedAt.IsZero() {
		dto.CreatedAt = emp.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !emp.UpdatedAt.IsZero() {
		dto.UpdatedAt = emp.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}
