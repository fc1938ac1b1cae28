/*
Package factory provides JSON to Go conversion for configuration and imports.

PURPOSE:
  Converts JSON definitions into certification types so that scoring
  policies and employee data can be supplied without code changes.

SCORING POLICY JSON:
  {
    "name": "balanced",
    "required_total": 7,
    "tenure_cap_years": 3,
    "certification_weight": "0.5",
    "experience_weight": "0.5",
    "qualified_threshold": 90,
    "partial_threshold": 70
  }

  Omitted fields take the balanced defaults. Weights may be JSON numbers or
  strings and must sum to 1.

USAGE:
  f := NewScoringFactory()

  // Preset name or path to a JSON file
  policy, err := f.Resolve("tenure-weighted")

  scorer, err := certification.NewScorer(policy)

SEE ALSO:
  - certification/score.go: ScoringPolicy and Scorer
  - factory/employee.go: employee import format
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/cert-tracker/certification"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ScoringPolicyJSON is the JSON representation of a scoring policy.
type ScoringPolicyJSON struct {
	Name                string           `json:"name"`
	RequiredTotal       int              `json:"required_total,omitempty"`
	TenureCapYears      int              `json:"tenure_cap_years,omitempty"`
	CertificationWeight *decimal.Decimal `json:"certification_weight,omitempty"`
	ExperienceWeight    *decimal.Decimal `json:"experience_weight,omitempty"`
	QualifiedThreshold  int              `json:"qualified_threshold,omitempty"`
	PartialThreshold    int              `json:"partial_threshold,omitempty"`
}

// =============================================================================
// PRESETS
// =============================================================================

var presets = map[string]certification.ScoringPolicy{
	certification.BalancedPolicy.Name:       certification.BalancedPolicy,
	certification.TenureWeightedPolicy.Name: certification.TenureWeightedPolicy,
}

// PresetNames lists the built-in policies.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// SCORING FACTORY
// =============================================================================

// ScoringFactory converts JSON scoring policies to certification.ScoringPolicy.
type ScoringFactory struct{}

func NewScoringFactory() *ScoringFactory {
	return &ScoringFactory{}
}

// Resolve accepts a preset name or a path to a JSON policy file.
// An empty value selects the balanced policy.
func (f *ScoringFactory) Resolve(value string) (certification.ScoringPolicy, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return certification.BalancedPolicy, nil
	}
	if p, ok := presets[value]; ok {
		return p, nil
	}
	if !strings.HasSuffix(value, ".json") {
		return certification.ScoringPolicy{}, fmt.Errorf("unknown scoring policy %q (presets: %s)",
			value, strings.Join(PresetNames(), ", "))
	}

	data, err := os.ReadFile(value)
	if err != nil {
		return certification.ScoringPolicy{}, fmt.Errorf("failed to read scoring policy: %w", err)
	}
	return f.ParsePolicy(string(data))
}

// ParsePolicy parses a JSON string into a validated ScoringPolicy.
func (f *ScoringFactory) ParsePolicy(jsonStr string) (certification.ScoringPolicy, error) {
	var pj ScoringPolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return certification.ScoringPolicy{}, fmt.Errorf("failed to parse scoring policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON fills omitted fields from BalancedPolicy and validates the result.
func (f *ScoringFactory) FromJSON(pj ScoringPolicyJSON) (certification.ScoringPolicy, error) {
	p := certification.BalancedPolicy
	p.Name = "custom"

	if pj.Name != "" {
		p.Name = pj.Name
	}
	if pj.RequiredTotal != 0 {
		p.RequiredTotal = pj.RequiredTotal
	}
	if pj.TenureCapYears != 0 {
		p.TenureCapYears = pj.TenureCapYears
	}

	// One weight alone implies the other
	switch {
	case pj.CertificationWeight != nil && pj.ExperienceWeight != nil:
		p.CertificationWeight = *pj.CertificationWeight
		p.ExperienceWeight = *pj.ExperienceWeight
	case pj.CertificationWeight != nil:
		p.CertificationWeight = *pj.CertificationWeight
		p.ExperienceWeight = decimal.NewFromInt(1).Sub(*pj.CertificationWeight)
	case pj.ExperienceWeight != nil:
		p.ExperienceWeight = *pj.ExperienceWeight
		p.CertificationWeight = decimal.NewFromInt(1).Sub(*pj.ExperienceWeight)
	}

	if pj.QualifiedThreshold != 0 {
		p.QualifiedThreshold = pj.QualifiedThreshold
	}
	if pj.PartialThreshold != 0 {
		p.PartialThreshold = pj.PartialThreshold
	}

	if err := p.Validate(); err != nil {
		return certification.ScoringPolicy{}, err
	}
	return p, nil
}

// ToJSON converts a ScoringPolicy to ScoringPolicyJSON.
func (f *ScoringFactory) ToJSON(p certification.ScoringPolicy) ScoringPolicyJSON {
	cw, ew := p.CertificationWeight, p.ExperienceWeight
	return ScoringPolicyJSON{
		Name:                p.Name,
		RequiredTotal:       p.RequiredTotal,
		TenureCapYears:      p.TenureCapYears,
		CertificationWeight: &cw,
		ExperienceWeight:    &ew,
		QualifiedThreshold:  p.QualifiedThreshold,
		PartialThreshold:    p.PartialThreshold,
	}
}
