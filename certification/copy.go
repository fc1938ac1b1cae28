/*
copy.go - Bulk copy of certifications from one source to many employees

PURPOSE:
  Propagates a set of certifications to a list of target employees using
  merge-by-name (see merge.go).

TWO PHASES:
  1. ResolveTargets (pure): drops blank ids, the source employee itself and
     repeated ids. Never touches storage.
  2. ApplyCopy (transactional): for each surviving target, fetch, merge,
     reclassify statuses at now, replace. A target that no longer exists is
     skipped. Any other store error aborts the batch.

SOFT SKIPS vs HARD FAILURES:
  Skipping self/missing/duplicate targets is not an error; it only lowers
  UpdatedEmployees. A persistence error rolls back every target in the
  batch. There is no automatic retry.

VALIDATION (before any store call):
  - explicit certification list that is empty  -> NotFound
  - no source employee and no list             -> InvalidArgument
  - empty target list                          -> InvalidArgument
  After that: unknown source employee, a certification-id filter matching
  nothing, or a source without certifications -> NotFound.
*/
package certification

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// REQUEST / RESULT
// =============================================================================

type SkipReason string

const (
	SkipSelf      SkipReason = "self"
	SkipMissing   SkipReason = "missing"
	SkipDuplicate SkipReason = "duplicate"
	SkipBlank     SkipReason = "blank"
)

type SkippedTarget struct {
	EmployeeID string     `json:"employeeId"`
	Reason     SkipReason `json:"reason"`
}

// CopyRequest selects the certifications to copy and where to copy them.
// When SourceEmployeeID is set, the certifications come from that employee
// (optionally filtered by CertificationIDs) and Certifications is ignored.
type CopyRequest struct {
	SourceEmployeeID  string
	CertificationIDs  []string
	Certifications    []Certification
	TargetEmployeeIDs []string
}

// CopyResult keeps the number of employees updated distinct from the number
// of certifications copied to each of them.
type CopyResult struct {
	UpdatedEmployees     int
	CopiedCertifications int
	Skipped              []SkippedTarget
}

// TargetPlan is the outcome of the pure target-resolution phase.
type TargetPlan struct {
	SourceEmployeeID string
	Targets          []string
	Skipped          []SkippedTarget
}

// =============================================================================
// PHASE 1 - RESOLVE TARGETS
// =============================================================================

// ResolveTargets applies the soft-skip rules that need no storage.
// Target order is preserved.
func ResolveTargets(sourceEmployeeID string, targetIDs []string) TargetPlan {
	plan := TargetPlan{SourceEmployeeID: sourceEmployeeID}
	seen := make(map[string]bool, len(targetIDs))

	for _, raw := range targetIDs {
		id := strings.TrimSpace(raw)
		switch {
		case id == "":
			plan.Skipped = append(plan.Skipped, SkippedTarget{EmployeeID: raw, Reason: SkipBlank})
		case sourceEmployeeID != "" && id == sourceEmployeeID:
			plan.Skipped = append(plan.Skipped, SkippedTarget{EmployeeID: id, Reason: SkipSelf})
		case seen[id]:
			plan.Skipped = append(plan.Skipped, SkippedTarget{EmployeeID: id, Reason: SkipDuplicate})
		default:
			seen[id] = true
			plan.Targets = append(plan.Targets, id)
		}
	}
	return plan
}

// =============================================================================
// PHASE 2 - APPLY
// =============================================================================

// ApplyCopy merges certs into every planned target through store, which is
// expected to be bound to a transaction. The first store error is returned
// as a *PersistenceError and the caller must roll back. Stored statuses of
// the merged set are reclassified at now.
func ApplyCopy(ctx context.Context, store EmployeeStore, plan TargetPlan, certs []Certification, now time.Time) (CopyResult, error) {
	result := CopyResult{
		CopiedCertifications: len(certs),
		Skipped:              append([]SkippedTarget(nil), plan.Skipped...),
	}

	for _, id := range plan.Targets {
		target, err := store.FindByID(ctx, id)
		if errors.Is(err, ErrNotFound) || (err == nil && target == nil) {
			result.Skipped = append(result.Skipped, SkippedTarget{EmployeeID: id, Reason: SkipMissing})
			continue
		}
		if err != nil {
			return CopyResult{}, persistence("load employee", id, err)
		}

		updated := target.Clone()
		updated.Certifications = Merge(target.Certifications, certs)
		RefreshStatuses(&updated, now)

		if _, err := store.ReplaceEmployee(ctx, id, updated); err != nil {
			return CopyResult{}, persistence("replace employee", id, err)
		}
		result.UpdatedEmployees++
	}

	return result, nil
}

// =============================================================================
// COPIER - Orchestrates validation, source resolution and the transaction
// =============================================================================

type Copier struct {
	store  TxStore
	logger *zap.Logger
	now    func() time.Time
}

func NewCopier(store TxStore, logger *zap.Logger) *Copier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Copier{store: store, logger: logger.Named("copier"), now: time.Now}
}

// WithClock sets the clock used to classify copied certifications.
func (c *Copier) WithClock(now func() time.Time) *Copier {
	c.now = now
	return c
}

// CopyCertifications copies an explicit certification list. The source
// employee, used for the self-copy rule, is taken from the certifications'
// EmployeeID when they all agree.
func (c *Copier) CopyCertifications(ctx context.Context, certs []Certification, targetIDs []string) (CopyResult, error) {
	if certs == nil {
		certs = []Certification{}
	}
	return c.Copy(ctx, CopyRequest{Certifications: certs, TargetEmployeeIDs: targetIDs})
}

// CopyFromEmployee copies certifications owned by sourceID. An empty
// certIDs selects all of them.
func (c *Copier) CopyFromEmployee(ctx context.Context, sourceID string, certIDs, targetIDs []string) (CopyResult, error) {
	return c.Copy(ctx, CopyRequest{
		SourceEmployeeID:  sourceID,
		CertificationIDs:  certIDs,
		TargetEmployeeIDs: targetIDs,
	})
}

// Copy runs the whole workflow in one transaction.
func (c *Copier) Copy(ctx context.Context, req CopyRequest) (CopyResult, error) {
	if err := validateCopyRequest(req); err != nil {
		return CopyResult{}, err
	}

	sourceID, certs, err := c.resolveSource(ctx, req)
	if err != nil {
		return CopyResult{}, err
	}

	plan := ResolveTargets(sourceID, req.TargetEmployeeIDs)
	now := c.now()

	var result CopyResult
	err = c.store.WithTx(ctx, func(tx EmployeeStore) error {
		r, err := ApplyCopy(ctx, tx, plan, certs, now)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		c.logger.Error("copy certifications rolled back",
			zap.String("source_employee_id", sourceID),
			zap.Int("targets", len(plan.Targets)),
			zap.Error(err),
		)
		return CopyResult{}, persistence("copy certifications", "", err)
	}

	c.logger.Info("certifications copied",
		zap.String("source_employee_id", sourceID),
		zap.Int("certifications", result.CopiedCertifications),
		zap.Int("updated_employees", result.UpdatedEmployees),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func validateCopyRequest(req CopyRequest) error {
	if strings.TrimSpace(req.SourceEmployeeID) == "" {
		if req.Certifications == nil {
			return invalid("sourceEmployeeId", "either a source employee or certifications must be provided")
		}
		if len(req.Certifications) == 0 {
			return notFound("certifications to copy", "")
		}
	}
	if len(req.TargetEmployeeIDs) == 0 {
		return invalid("targetEmployeeIds", "must contain at least one employee")
	}
	return nil
}

func (c *Copier) resolveSource(ctx context.Context, req CopyRequest) (string, []Certification, error) {
	sourceID := strings.TrimSpace(req.SourceEmployeeID)
	if sourceID == "" {
		return commonOwner(req.Certifications), CloneAll(req.Certifications), nil
	}

	source, err := c.store.FindByID(ctx, sourceID)
	if errors.Is(err, ErrNotFound) || (err == nil && source == nil) {
		return "", nil, notFound("source employee", sourceID)
	}
	if err != nil {
		return "", nil, persistence("load source employee", sourceID, err)
	}

	certs := source.Certifications
	if len(req.CertificationIDs) > 0 {
		wanted := make(map[string]bool, len(req.CertificationIDs))
		for _, id := range req.CertificationIDs {
			wanted[id] = true
		}
		var selected []Certification
		for _, cert := range certs {
			if wanted[cert.ID] {
				selected = append(selected, cert)
			}
		}
		certs = selected
	}

	if len(certs) == 0 {
		return "", nil, notFound("certifications to copy", "")
	}
	return sourceID, CloneAll(certs), nil
}

// commonOwner returns the EmployeeID shared by every certification, or "".
func commonOwner(certs []Certification) string {
	if len(certs) == 0 {
		return ""
	}
	owner := certs[0].EmployeeID
	for _, c := range certs[1:] {
		if c.EmployeeID != owner {
			return ""
		}
	}
	return owner
}
