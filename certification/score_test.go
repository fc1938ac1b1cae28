package certification_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cert-tracker/certification"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func signedOff() *certification.OJT {
	return &certification.OJT{Mentor: "J. Mentor", Date: now.AddDate(-1, 0, 0)}
}

// requiredCert is a required, OJT-complete certification expiring in two years.
func requiredCert(name string) certification.Certification {
	return certification.Certification{
		Name:       name,
		IssueDate:  now.AddDate(-1, 0, 0),
		ExpiryDate: now.AddDate(2, 0, 0),
		Status:     certification.StatusValid,
		IsRequired: true,
		OJT1:       signedOff(),
		OJT2:       signedOff(),
	}
}

func requiredCerts(n int) []certification.Certification {
	certs := make([]certification.Certification, n)
	for i := range certs {
		certs[i] = requiredCert(fmt.Sprintf("Cert %d", i+1))
	}
	return certs
}

func employeeWith(start time.Time, certs ...certification.Certification) certification.Employee {
	return certification.Employee{
		FirstName:      "Test",
		LastName:       "User",
		StartDate:      start,
		Certifications: certs,
	}
}

// =============================================================================
// SCORE TESTS
// =============================================================================

func TestScore_FullyCertifiedVeteran(t *testing.T) {
	// GIVEN: 7 valid required certifications and 3+ years of tenure
	emp := employeeWith(now.AddDate(-5, 0, 0), requiredCerts(7)...)

	// WHEN: Scoring with the balanced policy
	b := certification.DefaultScorer().Breakdown(emp, now)

	// THEN: 7*14 = 98% certs, 100% experience, round(49 + 50) = 99
	assert.Equal(t, 7, b.ValidRequired)
	assert.Equal(t, 98, b.CertificationPercent)
	assert.Equal(t, 100, b.ExperiencePercent)
	assert.Equal(t, 99, b.Score)
	assert.Equal(t, certification.BandQualified, b.Band)
}

func TestScore_NewHireWithNothing(t *testing.T) {
	emp := employeeWith(now)

	b := certification.DefaultScorer().Breakdown(emp, now)

	assert.Equal(t, 0, b.Score)
	assert.Equal(t, certification.BandUnqualified, b.Band)
}

func TestScore_HalfwayTenure(t *testing.T) {
	// GIVEN: 5 valid certifications (70%) and exactly 1.5 years (50%)
	start := now.Add(-(547*day + 12*time.Hour))
	emp := employeeWith(start, requiredCerts(5)...)

	// THEN: round(35 + 25) = 60
	b := certification.DefaultScorer().Breakdown(emp, now)
	assert.Equal(t, 70, b.CertificationPercent)
	assert.Equal(t, 50, b.ExperiencePercent)
	assert.Equal(t, 60, b.Score)
}

func TestScore_RoundsHalfUp(t *testing.T) {
	// GIVEN: 1 certification (14%) and 0.03 years of tenure (1%)
	start := now.Add(-(10*day + 22*time.Hour + 48*time.Minute))
	emp := employeeWith(start, requiredCert("Only"))

	// WHEN: 14*0.5 + 1*0.5 = 7.5
	// THEN: Rounded up to 8
	assert.Equal(t, 8, certification.DefaultScorer().Score(emp, now))
}

func TestScore_CertificationPercentCapsAt100(t *testing.T) {
	emp := employeeWith(now.AddDate(-5, 0, 0), requiredCerts(9)...)

	b := certification.DefaultScorer().Breakdown(emp, now)

	assert.Equal(t, 9, b.ValidRequired)
	assert.Equal(t, 100, b.CertificationPercent)
	assert.Equal(t, 100, b.Score)
}

func TestScore_OnlyCountingCertificationsContribute(t *testing.T) {
	// GIVEN: One certification of each disqualifying kind and one good one
	expired := requiredCert("Expired")
	expired.ExpiryDate = now.Add(-day)

	expiresNow := requiredCert("Expires now")
	expiresNow.ExpiryDate = now

	optional := requiredCert("Optional")
	optional.IsRequired = false

	halfOJT := requiredCert("Half OJT")
	halfOJT.OJT2 = nil

	noMentor := requiredCert("No mentor")
	noMentor.OJT1 = &certification.OJT{Date: now}

	emp := employeeWith(now, expired, expiresNow, optional, halfOJT, noMentor, requiredCert("Good"))

	// THEN: Only "Good" counts
	assert.Equal(t, 1, certification.CountValidRequired(emp.Certifications, now))
	assert.Equal(t, 14, certification.DefaultScorer().CertificationProgress(emp, now))
}

func TestScore_FutureStartDateHasNoExperience(t *testing.T) {
	emp := employeeWith(now.AddDate(0, 2, 0), requiredCerts(7)...)

	s := certification.DefaultScorer()
	assert.Equal(t, 0, s.ExperienceProgress(emp, now))
	assert.Equal(t, 49, s.Score(emp, now))
}

func TestScore_TenureWeightedPolicy(t *testing.T) {
	// GIVEN: The 0.4/0.6 policy
	s, err := certification.NewScorer(certification.TenureWeightedPolicy)
	require.NoError(t, err)

	emp := employeeWith(now.AddDate(-5, 0, 0), requiredCerts(7)...)

	// THEN: 98*0.4 + 100*0.6 = 99.2 -> 99
	assert.Equal(t, 99, s.Score(emp, now))
	assert.Equal(t, "tenure-weighted", s.Policy().Name)
}

func TestScore_AlwaysWithinRange(t *testing.T) {
	s := certification.DefaultScorer()
	starts := []time.Time{time.Time{}, now.AddDate(10, 0, 0), now, now.AddDate(-1, 0, 0), now.AddDate(-40, 0, 0)}
	for _, start := range starts {
		for n := 0; n <= 12; n++ {
			score := s.Score(employeeWith(start, requiredCerts(n)...), now)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	}
}

func TestBand_Thresholds(t *testing.T) {
	s := certification.DefaultScorer()

	assert.Equal(t, certification.BandQualified, s.Band(100))
	assert.Equal(t, certification.BandQualified, s.Band(90))
	assert.Equal(t, certification.BandPartial, s.Band(89))
	assert.Equal(t, certification.BandPartial, s.Band(70))
	assert.Equal(t, certification.BandUnqualified, s.Band(69))
	assert.Equal(t, certification.BandUnqualified, s.Band(0))
}

func TestNewScorer_RejectsInvalidPolicies(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *certification.ScoringPolicy)
	}{
		{"zero required", func(p *certification.ScoringPolicy) { p.RequiredTotal = 0 }},
		{"zero tenure cap", func(p *certification.ScoringPolicy) { p.TenureCapYears = 0 }},
		{"weights do not sum to one", func(p *certification.ScoringPolicy) {
			p.CertificationWeight = decimal.RequireFromString("0.7")
		}},
		{"negative weight", func(p *certification.ScoringPolicy) {
			p.CertificationWeight = decimal.RequireFromString("-0.5")
			p.ExperienceWeight = decimal.RequireFromString("1.5")
		}},
		{"partial above qualified", func(p *certification.ScoringPolicy) { p.PartialThreshold = 95 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := certification.BalancedPolicy
			tt.mutate(&policy)

			_, err := certification.NewScorer(policy)

			require.Error(t, err)
			assert.True(t, certification.IsClientError(err))
		})
	}
}
