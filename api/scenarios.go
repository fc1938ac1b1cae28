/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for demos. Dates are relative to the handler clock so that the
	expiring, expired and qualified cases always look the same.

AVAILABLE SCENARIOS:

	navigation-team:  Long-serving shift leads with full certification sets
	mixed-compliance: Expired, expiring and OJT-pending certifications
	new-hires:        A mentor plus new hires without certifications, ready
	                  for copy-certifications

HOW SCENARIOS WORK:
 1. Reset the store (delete every employee)
 2. Create employees with their certifications

USAGE VIA API:

	POST /api/scenarios/load
	{"scenarioId": "mixed-compliance"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/warp/cert-tracker/certification"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "navigation-team",
		Name:        "Navigation Team",
		Description: "Shift leads with long tenure and complete, valid certifications",
	},
	{
		ID:          "mixed-compliance",
		Name:        "Mixed Compliance",
		Description: "Expired, expiring-soon and OJT-pending certifications across departments",
	},
	{
		ID:          "new-hires",
		Name:        "New Hires",
		Description: "A certified mentor and three new hires to copy certifications to",
	},
}

var scenarioLoaders = map[string]func(ctx context.Context, store certification.EmployeeStore, now time.Time) error{
	"navigation-team":  loadNavigationTeamScenario,
	"mixed-compliance": loadMixedComplianceScenario,
	"new-hires":        loadNewHiresScenario,
}

// requiredCertifications is the seven-certification set used by the demos.
var requiredCertifications = []string{
	"Radar Operation",
	"Approach Control",
	"Tower Operations",
	"Emergency Procedures",
	"Weather Briefing",
	"Ground Movement",
	"Communication Protocols",
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", "invalid_argument", req.ScenarioID)
		return
	}

	ctx := r.Context()
	h.mu.Lock()
	defer h.mu.Unlock()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		h.writeDomainError(w, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx, h.Store, h.now()); err != nil {
		h.writeDomainError(w, fmt.Sprintf("Failed to load scenario %s", req.ScenarioID), err)
		return
	}
	h.currentScenario = req.ScenarioID

	h.logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadNavigationTeamScenario(ctx context.Context, store certification.EmployeeStore, now time.Time) error {
	team := []certification.Employee{
		demoEmployee("23351", "Moti", "Cohen", "Head of Department", "Navigation", now.AddDate(-13, 0, 0)),
		demoEmployee("15794", "Roi", "Avner", "Shift Lead", "Navigation", now.AddDate(-21, -10, 0)),
		demoEmployee("14334", "Chen", "Zuckerman", "Shift Lead", "Navigation", now.AddDate(-26, -8, 0)),
		demoEmployee("16676", "Rami", "Daniel", "Shift Lead", "Navigation", now.AddDate(-23, -5, 0)),
	}
	for i := range team {
		for j, name := range requiredCertifications {
			team[i].Certifications = append(team[i].Certifications,
				demoCertification(name, now.AddDate(-1, 0, j), now.AddDate(2, 0, j), true, "Moti Cohen"))
		}
	}
	return createAll(ctx, store, now, team)
}

func loadMixedComplianceScenario(ctx context.Context, store certification.EmployeeStore, now time.Time) error {
	expired := demoEmployee("30101", "Dana", "Levi", "Controller", "Tower", now.AddDate(-4, 0, 0))
	for i, name := range requiredCertifications[:5] {
		expired.Certifications = append(expired.Certifications,
			demoCertification(name, now.AddDate(-3, 0, 0), now.AddDate(0, 0, -10*(i+1)), true, "Roi Avner"))
	}

	expiring := demoEmployee("30102", "Yossi", "Mizrahi", "Controller", "Tower", now.AddDate(-2, -6, 0))
	for i, name := range requiredCertifications {
		expiring.Certifications = append(expiring.Certifications,
			demoCertification(name, now.AddDate(-1, 0, 0), now.AddDate(0, 0, 20+30*i), true, "Roi Avner"))
	}

	pending := demoEmployee("30103", "Noa", "Friedman", "Trainee", "Approach", now.AddDate(0, -8, 0))
	for _, name := range requiredCertifications[:4] {
		c := demoCertification(name, now.AddDate(0, -6, 0), now.AddDate(2, 0, 0), true, "Chen Zuckerman")
		c.OJT2 = nil
		pending.Certifications = append(pending.Certifications, c)
	}
	optional := demoCertification("First Aid", now.AddDate(0, -2, 0), now.AddDate(1, 6, 0), false, "")
	pending.Certifications = append(pending.Certifications, optional)

	return createAll(ctx, store, now, []certification.Employee{expired, expiring, pending})
}

func loadNewHiresScenario(ctx context.Context, store certification.EmployeeStore, now time.Time) error {
	mentor := demoEmployee("40001", "Avi", "Shapiro", "Senior Controller", "Approach", now.AddDate(-9, 0, 0))
	for _, name := range requiredCertifications {
		mentor.Certifications = append(mentor.Certifications,
			demoCertification(name, now.AddDate(0, -3, 0), now.AddDate(3, 0, 0), true, "Moti Cohen"))
	}

	employees := []certification.Employee{mentor}
	for i, first := range []string{"Tal", "Omer", "Shira"} {
		employees = append(employees, demoEmployee(fmt.Sprintf("4100%d", i+1), first, "Katz",
			"Trainee", "Approach", now.AddDate(0, 0, -7*(i+1))))
	}
	return createAll(ctx, store, now, employees)
}

// =============================================================================
// HELPERS
// =============================================================================

func demoEmployee(number, first, last, role, department string, start time.Time) certification.Employee {
	return certification.Employee{
		EmployeeNumber: number,
		FirstName:      first,
		LastName:       last,
		Email:          fmt.Sprintf("%s.%s@example.com", strings.ToLower(first), strings.ToLower(last)),
		Role:           role,
		Department:     department,
		StartDate:      start.UTC().Truncate(24 * time.Hour),
	}
}

// demoCertification signs off both OJT records when mentor is set.
func demoCertification(name string, issued, expires time.Time, required bool, mentor string) certification.Certification {
	issued = issued.UTC().Truncate(24 * time.Hour)
	c := certification.Certification{
		Name:       name,
		IssueDate:  issued,
		ExpiryDate: expires.UTC().Truncate(24 * time.Hour),
		IsRequired: required,
	}
	if mentor != "" {
		c.OJT1 = &certification.OJT{Mentor: mentor, Date: issued.AddDate(0, 0, 14)}
		c.OJT2 = &certification.OJT{Mentor: mentor, Date: issued.AddDate(0, 0, 28)}
	}
	return c
}

// createAll classifies statuses at now and stores each employee.
func createAll(ctx context.Context, store certification.EmployeeStore, now time.Time, employees []certification.Employee) error {
	for _, emp := range employees {
		certification.RefreshStatuses(&emp, now)
		if _, err := store.Create(ctx, emp); err != nil {
			return fmt.Errorf("failed to create %s: %w", emp.FullName(), err)
		}
	}
	return nil
}

