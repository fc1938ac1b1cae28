/*
handlers.go - HTTP API handlers for the certification tracker

PURPOSE:
  Exposes employees, certification copying, qualification scores and
  reports via REST. Handles HTTP request/response and JSON, and delegates
  to the certification core and the reports package.

ENDPOINTS:
  Employees:
    GET    /api/employees                       List employees, newest first
    POST   /api/employees                       Create employee
    GET    /api/employees/{id}                  Get employee
    PUT    /api/employees/{id}                  Replace employee
    DELETE /api/employees/{id}                  Delete employee
    GET    /api/employees/{id}/qualification    Score breakdown
    GET    /api/employees/{id}/report           Employee report (JSON)
    GET    /api/employees/{id}/report.pdf       Employee report (PDF)
    POST   /api/employees/copy-certifications   Copy certifications to employees

  Reports:
    GET    /api/dashboard                       Summary figures
    GET    /api/reports/departments             Per-department statistics
    GET    /api/reports/expiring?months=N       Certifications expiring soon
    GET    /api/reports/missing-ojt             Certifications lacking sign-offs

  Admin:
    POST   /api/admin/refresh-statuses          Recompute stored statuses

ARCHITECTURE:
  Handler holds all dependencies:
  - Store: employee persistence with transactions and reset
  - Scorer: the process-wide scoring policy
  - Copier: the copy-certifications workflow

STATUSES:
  Certification statuses are reclassified on every write and in every
  response. The stored value is only refreshed on write, by the admin
  endpoint or by the scheduler.

ERROR HANDLING:
  Errors are returned as JSON {error, code, details}:
  - 400: invalid input (code invalid_argument)
  - 404: employee or certification not found (code not_found)
  - 500: persistence failure (code persistence_failure) or anything else

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/warp/cert-tracker/certification"
	"github.com/warp/cert-tracker/factory"
	"github.com/warp/cert-tracker/reports"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the API needs: transactional employee access
// plus a full reset for demo scenarios.
type Store interface {
	certification.TxStore
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  Store
	Scorer *certification.Scorer

	copier   *certification.Copier
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time

	// Track currently loaded scenario
	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a handler. A nil scorer selects the balanced policy.
func NewHandler(store Store, scorer *certification.Scorer, logger *zap.Logger) *Handler {
	if scorer == nil {
		scorer = certification.DefaultScorer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:    store,
		Scorer:   scorer,
		copier:   certification.NewCopier(store, logger),
		validate: newValidator(),
		logger:   logger.Named("api"),
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	h.copier.WithClock(now)
	return h
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness and the active scoring policy.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"policy": h.Scorer.Policy().Name,
		"time":   h.now().UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees, newest first.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.FindAll(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list employees", err)
		return
	}

	now := h.now()
	dtos := make([]EmployeeDTO, len(employees))
	for i, emp := range employees {
		certification.RefreshStatuses(&emp, now)
		dtos[i] = toEmployeeDTO(emp, h.Scorer, now)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}
	now := h.now()
	certification.RefreshStatuses(emp, now)
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp, h.Scorer, now))
}

// CreateEmployee creates a new employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	emp, ok := h.decodeEmployee(w, r, now)
	if !ok {
		return
	}

	created, err := h.Store.Create(r.Context(), emp)
	if err != nil {
		h.writeDomainError(w, "Failed to create employee", err)
		return
	}

	h.logger.Info("employee created",
		zap.String("id", created.ID),
		zap.Int("certifications", len(created.Certifications)),
	)
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*created, h.Scorer, now))
}

// UpdateEmployee replaces an employee, including its certification set.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	now := h.now()
	emp, ok := h.decodeEmployee(w, r, now)
	if !ok {
		return
	}

	updated, err := h.Store.ReplaceEmployee(r.Context(), id, emp)
	if err != nil {
		h.writeDomainError(w, "Failed to update employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*updated, h.Scorer, now))
}

// DeleteEmployee removes an employee and its certifications.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete employee", err)
		return
	}
	h.logger.Info("employee deleted", zap.String("id", id))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Employee deleted"})
}

// GetQualification returns the score breakdown.
func (h *Handler) GetQualification(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}
	now := h.now()
	tenure := certification.TenureSince(emp.StartDate, now)
	writeJSON(w, http.StatusOK, QualificationDTO{
		EmployeeID:   emp.ID,
		Policy:       h.Scorer.Policy().Name,
		Breakdown:    h.Scorer.Breakdown(*emp, now),
		TenureYears:  tenure.Years,
		TenureMonths: tenure.Months,
	})
}

// GetEmployeeReport returns the per-employee report as JSON.
func (h *Handler) GetEmployeeReport(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, reports.BuildEmployeeReport(*emp, h.Scorer, h.now()))
}

// GetEmployeeReportPDF renders the per-employee report as a PDF download.
func (h *Handler) GetEmployeeReportPDF(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}

	report := reports.BuildEmployeeReport(*emp, h.Scorer, h.now())
	var buf bytes.Buffer
	if err := reports.RenderEmployeePDF(&buf, report); err != nil {
		h.writeDomainError(w, "Failed to render report", err)
		return
	}

	name := emp.EmployeeNumber
	if name == "" {
		name = emp.ID
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="employee-%s.pdf"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// =============================================================================
// COPY CERTIFICATIONS
// =============================================================================

// CopyCertifications copies certifications to every target employee in one
// transaction.
// POST /api/employees/copy-certifications
func (h *Handler) CopyCertifications(w http.ResponseWriter, r *http.Request) {
	var req CopyCertificationsRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	now := h.now()
	copyReq := certification.CopyRequest{
		SourceEmployeeID:  strings.TrimSpace(req.SourceEmployeeID),
		CertificationIDs:  req.CertificationIDs,
		TargetEmployeeIDs: req.TargetEmployeeIDs,
	}
	if req.Certifications != nil {
		copyReq.Certifications = make([]certification.Certification, 0, len(req.Certifications))
		for i, cj := range req.Certifications {
			c, err := factory.CertificationFromJSON(cj, now)
			if err != nil {
				h.writeDomainError(w, "Invalid certification", prefixField(err, fmt.Sprintf("certifications[%d]", i)))
				return
			}
			copyReq.Certifications = append(copyReq.Certifications, c)
		}
	}

	result, err := h.copier.Copy(r.Context(), copyReq)
	if err != nil {
		h.writeDomainError(w, "Failed to copy certifications", err)
		return
	}

	skipped := result.Skipped
	if skipped == nil {
		skipped = []certification.SkippedTarget{}
	}
	writeJSON(w, http.StatusOK, CopyCertificationsResponse{
		Success: true,
		Message: fmt.Sprintf("Copied %d certifications to %d employees",
			result.CopiedCertifications, result.UpdatedEmployees),
		CopiedCertificationsCount: result.CopiedCertifications,
		UpdatedEmployeesCount:     result.UpdatedEmployees,
		Skipped:                   skipped,
	})
}

// =============================================================================
// REPORTS
// =============================================================================

// GetDashboard returns the summary figures.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	employees, ok := h.loadAll(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, reports.Summarize(employees, h.Scorer, h.now()))
}

// GetDepartmentReport returns per-department statistics.
func (h *Handler) GetDepartmentReport(w http.ResponseWriter, r *http.Request) {
	employees, ok := h.loadAll(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, reports.DepartmentStats(employees, h.Scorer, h.now()))
}

// GetExpiringReport lists certifications expiring within ?months=N
// (default 3).
func (h *Handler) GetExpiringReport(w http.ResponseWriter, r *http.Request) {
	months := reports.DefaultExpiringMonths
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 120 {
			h.writeDomainError(w, "Invalid months",
				&certification.ValidationError{Field: "months", Message: "must be an integer between 1 and 120"})
			return
		}
		months = n
	}

	employees, ok := h.loadAll(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, reports.ExpiringCertifications(employees, months, h.now()))
}

// GetMissingOJTReport lists certifications lacking a sign-off.
func (h *Handler) GetMissingOJTReport(w http.ResponseWriter, r *http.Request) {
	employees, ok := h.loadAll(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, reports.MissingOJT(employees))
}

// =============================================================================
// ADMIN
// =============================================================================

// RefreshStatuses recomputes and stores every certification status.
// POST /api/admin/refresh-statuses
func (h *Handler) RefreshStatuses(w http.ResponseWriter, r *http.Request) {
	resp, err := RefreshAllStatuses(r.Context(), h.Store, h.now())
	if err != nil {
		h.writeDomainError(w, "Failed to refresh statuses", err)
		return
	}
	h.logger.Info("statuses refreshed",
		zap.Int("updated_employees", resp.UpdatedEmployees),
		zap.Int("changed_statuses", resp.ChangedStatuses),
	)
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadEmployee(w http.ResponseWriter, r *http.Request) (*certification.Employee, bool) {
	id := chi.URLParam(r, "id")
	emp, err := h.Store.FindByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get employee", err)
		return nil, false
	}
	return emp, true
}

func (h *Handler) loadAll(w http.ResponseWriter, r *http.Request) ([]certification.Employee, bool) {
	employees, err := h.Store.FindAll(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list employees", err)
		return nil, false
	}
	return employees, true
}

// decodeEmployee parses, converts and validates an employee body.
// Statuses are classified at now.
func (h *Handler) decodeEmployee(w http.ResponseWriter, r *http.Request, now time.Time) (certification.Employee, bool) {
	var ej factory.EmployeeJSON
	if !h.decodeAndValidate(w, r, &ej) {
		return certification.Employee{}, false
	}

	emp, err := factory.EmployeeFromJSON(ej, now)
	if err != nil {
		h.writeDomainError(w, "Invalid employee", err)
		return certification.Employee{}, false
	}
	if err := certification.ValidateEmployee(emp); err != nil {
		h.writeDomainError(w, "Invalid employee", err)
		return certification.Employee{}, false
	}
	return emp, true
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", "too_large", nil)
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_argument", err.Error())
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, "Validation failed", "invalid_argument", fieldErrors(verrs))
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", "invalid_argument", err.Error())
		return false
	}
	return true
}

// writeDomainError maps a core error to a status code. Persistence is
// checked first since a persistence error may wrap a not-found cause.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case certification.IsPersistence(err):
		h.logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, "persistence_failure", err.Error())
	case certification.IsClientError(err):
		var ve *certification.ValidationError
		if errors.As(err, &ve) && ve.Field != "" {
			writeError(w, http.StatusBadRequest, message, "invalid_argument",
				[]FieldErrorDTO{{Field: ve.Field, Message: ve.Message}})
			return
		}
		writeError(w, http.StatusBadRequest, message, "invalid_argument", err.Error())
	case certification.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", "not_found", err.Error())
	default:
		h.logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, "internal", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, code string, details any) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}

func prefixField(err error, prefix string) error {
	var ve *certification.ValidationError
	if errors.As(err, &ve) {
		return &certification.ValidationError{Field: prefix + "." + ve.Field, Message: ve.Message}
	}
	return err
}

// =============================================================================
// REQUEST VALIDATION
// =============================================================================

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldLabel turns "expiryDate" into "Expiry Date".
func fieldLabel(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return cases.Title(language.English).String(b.String())
}

func fieldErrors(verrs validator.ValidationErrors) []FieldErrorDTO {
	out := make([]FieldErrorDTO, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace starts with the struct type name
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}

		label := fieldLabel(fe.Field())
		var msg string
		switch fe.Tag() {
		case "required":
			msg = label + " is required"
		case "email":
			msg = label + " must be a valid email address"
		default:
			msg = label + " is invalid"
		}
		out = append(out, FieldErrorDTO{Field: path, Message: msg})
	}
	return out
}
