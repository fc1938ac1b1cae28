/*
Package reports reduces employee lists to the figures shown on the
dashboard and the report pages, and renders the per-employee PDF.

CONVENTIONS:
  Every reduction takes the full employee list, the process-wide Scorer and
  an explicit "now". Nothing here touches storage and nothing is cached:
  statuses are reclassified from expiry dates and scores are recomputed on
  every call.

WINDOWS:
  ExpiringThisMonth  expiry <= now + 1 calendar month
  ExpiringThisYear   expiry <= now + 1 calendar year
  ExpiringCertifications(months) expiry <= now + months calendar months

  The dashboard windows include certifications that have already expired.
*/
package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cert-tracker/certification"
)

// DefaultExpiringMonths is the window of the expiring-certifications report.
const DefaultExpiringMonths = 3

// =============================================================================
// SUMMARY
// =============================================================================

type Summary struct {
	TotalEmployees        int `json:"totalEmployees"`
	TotalCertifications   int `json:"totalCertifications"`
	ValidCertifications   int `json:"validCertifications"`
	ExpiredCertifications int `json:"expiredCertifications"`
	ExpiringThisMonth     int `json:"expiringThisMonth"`
	ExpiringThisYear      int `json:"expiringThisYear"`
	PendingOJT            int `json:"pendingOjt"`
	AverageQualification  int `json:"averageQualification"`
	Qualified             int `json:"qualified"`
	Partial               int `json:"partial"`
	Unqualified           int `json:"unqualified"`
}

// Summarize computes the dashboard figures.
func Summarize(employees []certification.Employee, scorer *certification.Scorer, now time.Time) Summary {
	monthFromNow := now.AddDate(0, 1, 0)
	yearFromNow := now.AddDate(1, 0, 0)

	s := Summary{TotalEmployees: len(employees)}
	var scores average

	for _, emp := range employees {
		score := scorer.Score(emp, now)
		scores.add(score)
		countBand(scorer.Band(score), &s.Qualified, &s.Partial, &s.Unqualified)

		for _, c := range emp.Certifications {
			s.TotalCertifications++
			if c.IsCurrentlyValid(now) {
				s.ValidCertifications++
			} else {
				s.ExpiredCertifications++
			}
			if !c.ExpiryDate.After(monthFromNow) {
				s.ExpiringThisMonth++
			}
			if !c.ExpiryDate.After(yearFromNow) {
				s.ExpiringThisYear++
			}
			if !c.OJTComplete() {
				s.PendingOJT++
			}
		}
	}

	s.AverageQualification = scores.value()
	return s
}

// =============================================================================
// DEPARTMENTS
// =============================================================================

type DepartmentStat struct {
	Department            string `json:"department"`
	Employees             int    `json:"employees"`
	Qualified             int    `json:"qualified"`
	Partial               int    `json:"partial"`
	Unqualified           int    `json:"unqualified"`
	Certifications        int    `json:"certifications"`
	ValidCertifications   int    `json:"validCertifications"`
	ExpiredCertifications int    `json:"expiredCertifications"`
	AverageQualification  int    `json:"averageQualification"`
}

// UnassignedDepartment groups employees with a blank department.
const UnassignedDepartment = "Unassigned"

// DepartmentStats groups employees by department, sorted by department name.
func DepartmentStats(employees []certification.Employee, scorer *certification.Scorer, now time.Time) []DepartmentStat {
	stats := make(map[string]*DepartmentStat)
	scores := make(map[string]*average)

	for _, emp := range employees {
		name := departmentOf(emp)
		st, ok := stats[name]
		if !ok {
			st = &DepartmentStat{Department: name}
			stats[name] = st
			scores[name] = &average{}
		}

		score := scorer.Score(emp, now)
		scores[name].add(score)
		st.Employees++
		countBand(scorer.Band(score), &st.Qualified, &st.Partial, &st.Unqualified)

		for _, c := range emp.Certifications {
			st.Certifications++
			if c.IsCurrentlyValid(now) {
				st.ValidCertifications++
			} else {
				st.ExpiredCertifications++
			}
		}
	}

	out := make([]DepartmentStat, 0, len(stats))
	for name, st := range stats {
		st.AverageQualification = scores[name].value()
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Department < out[j].Department })
	return out
}

// =============================================================================
// EXPIRING CERTIFICATIONS
// =============================================================================

type ExpiringRow struct {
	EmployeeID        string               `json:"employeeId"`
	EmployeeName      string               `json:"employeeName"`
	Department        string               `json:"department"`
	CertificationID   string               `json:"certificationId"`
	CertificationName string               `json:"certificationName"`
	IsRequired        bool                 `json:"isRequired"`
	ExpiryDate        time.Time            `json:"expiryDate"`
	DaysLeft          int                  `json:"daysLeft"`
	Status            certification.Status `json:"status"`
}

// ExpiringCertifications lists certifications expiring within months
// calendar months of now, expired ones included, soonest first.
// A non-positive months selects DefaultExpiringMonths.
func ExpiringCertifications(employees []certification.Employee, months int, now time.Time) []ExpiringRow {
	if months <= 0 {
		months = DefaultExpiringMonths
	}
	until := now.AddDate(0, months, 0)

	rows := []ExpiringRow{}
	for _, emp := range employees {
		for _, c := range emp.Certifications {
			if c.ExpiryDate.After(until) {
				continue
			}
			rows = append(rows, ExpiringRow{
				EmployeeID:        emp.ID,
				EmployeeName:      emp.FullName(),
				Department:        emp.Department,
				CertificationID:   c.ID,
				CertificationName: c.Name,
				IsRequired:        c.IsRequired,
				ExpiryDate:        c.ExpiryDate,
				DaysLeft:          certification.DaysUntilExpiry(c.ExpiryDate, now),
				Status:            certification.Classify(c.ExpiryDate, now),
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DaysLeft != rows[j].DaysLeft {
			return rows[i].DaysLeft < rows[j].DaysLeft
		}
		return rows[i].EmployeeName < rows[j].EmployeeName
	})
	return rows
}

// =============================================================================
// MISSING OJT
// =============================================================================

type MissingOJTRow struct {
	EmployeeID        string    `json:"employeeId"`
	EmployeeName      string    `json:"employeeName"`
	Department        string    `json:"department"`
	Role              string    `json:"role"`
	CertificationID   string    `json:"certificationId"`
	CertificationName string    `json:"certificationName"`
	IsRequired        bool      `json:"isRequired"`
	MissingOJT1       bool      `json:"missingOjt1"`
	MissingOJT2       bool      `json:"missingOjt2"`
	ExpiryDate        time.Time `json:"expiryDate"`
}

// MissingOJT lists certifications lacking either sign-off, in employee order.
func MissingOJT(employees []certification.Employee) []MissingOJTRow {
	rows := []MissingOJTRow{}
	for _, emp := range employees {
		for _, c := range emp.Certifications {
			if c.OJTComplete() {
				continue
			}
			rows = append(rows, MissingOJTRow{
				EmployeeID:        emp.ID,
				EmployeeName:      emp.FullName(),
				Department:        emp.Department,
				Role:              emp.Role,
				CertificationID:   c.ID,
				CertificationName: c.Name,
				IsRequired:        c.IsRequired,
				MissingOJT1:       !c.OJT1.Present(),
				MissingOJT2:       !c.OJT2.Present(),
				ExpiryDate:        c.ExpiryDate,
			})
		}
	}
	return rows
}

// =============================================================================
// HELPERS
// =============================================================================

// average is a running integer mean, rounded half-up. Empty is 0.
type average struct {
	sum   int64
	count int64
}

func (a *average) add(v int) {
	a.sum += int64(v)
	a.count++
}

func (a *average) value() int {
	if a.count == 0 {
		return 0
	}
	return int(decimal.NewFromInt(a.sum).Div(decimal.NewFromInt(a.count)).Round(0).IntPart())
}

func countBand(b certification.Band, qualified, partial, unqualified *int) {
	switch b {
	case certification.BandQualified:
		*qualified++
	case certification.BandPartial:
		*partial++
	default:
		*unqualified++
	}
}

func departmentOf(emp certification.Employee) string {
	if d := strings.TrimSpace(emp.Department); d != "" {
		return d
	}
	return UnassignedDepartment
}
