/*
score.go - Qualification score

PURPOSE:
  Produces a single 0-100 integer per employee for ranking and display,
  blending certification completeness with tenure.

FORMULA:
  perCert           = round(100 / RequiredTotal)
  certPercent       = min(validRequired * perCert, 100)
  experience        = clamp(tenureYears, 0, TenureCapYears) / TenureCapYears
  experiencePercent = experience * 100
  score             = round(certPercent*CertificationWeight + experiencePercent*ExperienceWeight)

  validRequired counts certifications that are required, OJT-complete and
  unexpired at "now". Rounding is half-up. Arithmetic is decimal so the
  result does not depend on float representation of the weights.

CANONICAL POLICY:
  BalancedPolicy (0.5/0.5, qualified >= 90, partial >= 70). One policy is
  chosen per process and every consumer (API, dashboard, reports, PDF)
  scores through the same Scorer.

  The score is derived data. It is never stored and never cached.
*/
package certification

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BANDS
// =============================================================================

type Band string

const (
	BandQualified   Band = "qualified"
	BandPartial     Band = "partial"
	BandUnqualified Band = "unqualified"
)

// =============================================================================
// SCORING POLICY
// =============================================================================

type ScoringPolicy struct {
	Name                string
	RequiredTotal       int
	TenureCapYears      int
	CertificationWeight decimal.Decimal
	ExperienceWeight    decimal.Decimal
	QualifiedThreshold  int
	PartialThreshold    int
}

// BalancedPolicy is the canonical policy.
var BalancedPolicy = ScoringPolicy{
	Name:                "balanced",
	RequiredTotal:       7,
	TenureCapYears:      3,
	CertificationWeight: decimal.RequireFromString("0.5"),
	ExperienceWeight:    decimal.RequireFromString("0.5"),
	QualifiedThreshold:  90,
	PartialThreshold:    70,
}

// TenureWeightedPolicy weights tenure over certifications (0.4/0.6).
var TenureWeightedPolicy = ScoringPolicy{
	Name:                "tenure-weighted",
	RequiredTotal:       7,
	TenureCapYears:      3,
	CertificationWeight: decimal.RequireFromString("0.4"),
	ExperienceWeight:    decimal.RequireFromString("0.6"),
	QualifiedThreshold:  90,
	PartialThreshold:    70,
}

var hundred = decimal.NewFromInt(100)

// Validate checks that the policy produces scores in [0,100].
func (p ScoringPolicy) Validate() error {
	if p.RequiredTotal <= 0 {
		return invalid("requiredTotal", "must be positive")
	}
	if p.TenureCapYears <= 0 {
		return invalid("tenureCapYears", "must be positive")
	}
	if p.CertificationWeight.IsNegative() || p.ExperienceWeight.IsNegative() {
		return invalid("weights", "must not be negative")
	}
	if !p.CertificationWeight.Add(p.ExperienceWeight).Equal(decimal.NewFromInt(1)) {
		return invalid("weights", fmt.Sprintf("must sum to 1, got %s", p.CertificationWeight.Add(p.ExperienceWeight)))
	}
	if p.PartialThreshold < 0 || p.QualifiedThreshold > 100 || p.PartialThreshold > p.QualifiedThreshold {
		return invalid("thresholds", "need 0 <= partial <= qualified <= 100")
	}
	return nil
}

// =============================================================================
// SCORER
// =============================================================================

// Breakdown shows how a score was assembled.
type Breakdown struct {
	ValidRequired        int  `json:"validRequired"`
	RequiredTotal        int  `json:"requiredTotal"`
	CertificationPercent int  `json:"certificationPercent"`
	ExperiencePercent    int  `json:"experiencePercent"`
	Score                int  `json:"score"`
	Band                 Band `json:"band"`
}

type Scorer struct {
	policy ScoringPolicy
}

// NewScorer returns a scorer for the policy. An invalid policy is rejected.
func NewScorer(policy ScoringPolicy) (*Scorer, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{policy: policy}, nil
}

// DefaultScorer scores with BalancedPolicy.
func DefaultScorer() *Scorer {
	return &Scorer{policy: BalancedPolicy}
}

func (s *Scorer) Policy() ScoringPolicy { return s.policy }

// Score returns the qualification score of emp at now.
func (s *Scorer) Score(emp Employee, now time.Time) int {
	return s.Breakdown(emp, now).Score
}

// Breakdown computes the score with its components.
func (s *Scorer) Breakdown(emp Employee, now time.Time) Breakdown {
	valid := CountValidRequired(emp.Certifications, now)
	certPct := s.certificationPercent(valid)
	expPct := s.experiencePercent(emp.StartDate, now)

	total := certPct.Mul(s.policy.CertificationWeight).
		Add(expPct.Mul(s.policy.ExperienceWeight)).
		Round(0)
	score := clampPercent(int(total.IntPart()))

	return Breakdown{
		ValidRequired:        valid,
		RequiredTotal:        s.policy.RequiredTotal,
		CertificationPercent: int(certPct.IntPart()),
		ExperiencePercent:    int(expPct.Round(0).IntPart()),
		Score:                score,
		Band:                 s.Band(score),
	}
}

// CertificationProgress is the certification component alone (0-100).
func (s *Scorer) CertificationProgress(emp Employee, now time.Time) int {
	return int(s.certificationPercent(CountValidRequired(emp.Certifications, now)).IntPart())
}

// ExperienceProgress is the tenure component alone (0-100).
func (s *Scorer) ExperienceProgress(emp Employee, now time.Time) int {
	return int(s.experiencePercent(emp.StartDate, now).Round(0).IntPart())
}

// Band classifies a score.
func (s *Scorer) Band(score int) Band {
	switch {
	case score >= s.policy.QualifiedThreshold:
		return BandQualified
	case score >= s.policy.PartialThreshold:
		return BandPartial
	default:
		return BandUnqualified
	}
}

func (s *Scorer) certificationPercent(valid int) decimal.Decimal {
	perCert := hundred.Div(decimal.NewFromInt(int64(s.policy.RequiredTotal))).Round(0)
	pct := perCert.Mul(decimal.NewFromInt(int64(valid)))
	return decimal.Min(pct, hundred)
}

func (s *Scorer) experiencePercent(start, now time.Time) decimal.Decimal {
	if start.IsZero() || !now.After(start) {
		return decimal.Zero
	}
	yearNanos := decimal.NewFromInt(int64(daysPerYear * day))
	years := decimal.NewFromInt(int64(now.Sub(start))).Div(yearNanos)
	capYears := decimal.NewFromInt(int64(s.policy.TenureCapYears))
	years = decimal.Min(years, capYears)
	return years.Div(capYears).Mul(hundred)
}

// CountValidRequired counts certifications that count toward the score.
func CountValidRequired(certs []Certification, now time.Time) int {
	n := 0
	for _, c := range certs {
		if c.CountsTowardScore(now) {
			n++
		}
	}
	return n
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
