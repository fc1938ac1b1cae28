package reports

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/warp/cert-tracker/certification"
)

// RenewalNoticeDays is how close to expiry a report line starts counting
// down in months.
const RenewalNoticeDays = 90

// =============================================================================
// EMPLOYEE REPORT
// =============================================================================

type CertificationLine struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	IsRequired        bool                 `json:"isRequired"`
	IssueDate         time.Time            `json:"issueDate"`
	ExpiryDate        time.Time            `json:"expiryDate"`
	Status            certification.Status `json:"status"`
	DaysLeft          int                  `json:"daysLeft"`
	MonthsLeft        int                  `json:"monthsLeft"`
	Countdown         string               `json:"countdown"`
	OJT1              *certification.OJT   `json:"ojt1,omitempty"`
	OJT2              *certification.OJT   `json:"ojt2,omitempty"`
	OJTComplete       bool                 `json:"ojtComplete"`
	CountsTowardScore bool                 `json:"countsTowardScore"`
}

type EmployeeReport struct {
	EmployeeID     string                  `json:"employeeId"`
	EmployeeNumber string                  `json:"employeeNumber"`
	Name           string                  `json:"name"`
	Role           string                  `json:"role"`
	Department     string                  `json:"department"`
	Email          string                  `json:"email"`
	PhoneNumber    string                  `json:"phoneNumber"`
	StartDate      time.Time               `json:"startDate"`
	TenureYears    int                     `json:"tenureYears"`
	TenureMonths   int                     `json:"tenureMonths"`
	Qualification  certification.Breakdown `json:"qualification"`
	Certifications []CertificationLine     `json:"certifications"`
	GeneratedAt    time.Time               `json:"generatedAt"`
}

// BuildEmployeeReport assembles the printable view of one employee.
func BuildEmployeeReport(emp certification.Employee, scorer *certification.Scorer, now time.Time) EmployeeReport {
	tenure := certification.TenureSince(emp.StartDate, now)

	r := EmployeeReport{
		EmployeeID:     emp.ID,
		EmployeeNumber: emp.EmployeeNumber,
		Name:           emp.FullName(),
		Role:           emp.Role,
		Department:     emp.Department,
		Email:          emp.Email,
		PhoneNumber:    emp.PhoneNumber,
		StartDate:      emp.StartDate,
		TenureYears:    tenure.Years,
		TenureMonths:   tenure.Months,
		Qualification:  scorer.Breakdown(emp, now),
		Certifications: make([]CertificationLine, 0, len(emp.Certifications)),
		GeneratedAt:    now,
	}

	for _, c := range emp.Certifications {
		days := certification.DaysUntilExpiry(c.ExpiryDate, now)
		months := certification.MonthsUntilExpiry(c.ExpiryDate, now)
		r.Certifications = append(r.Certifications, CertificationLine{
			ID:                c.ID,
			Name:              c.Name,
			IsRequired:        c.IsRequired,
			IssueDate:         c.IssueDate,
			ExpiryDate:        c.ExpiryDate,
			Status:            certification.Classify(c.ExpiryDate, now),
			DaysLeft:          days,
			MonthsLeft:        months,
			Countdown:         countdown(days, months),
			OJT1:              c.OJT1,
			OJT2:              c.OJT2,
			OJTComplete:       c.OJTComplete(),
			CountsTowardScore: c.CountsTowardScore(now),
		})
	}
	return r
}

func countdown(days, months int) string {
	switch {
	case days < 0:
		return "Expired"
	case days <= RenewalNoticeDays:
		return fmt.Sprintf("Expires soon (%d months)", months)
	default:
		return "Valid"
	}
}

// =============================================================================
// PDF
// =============================================================================

// StatusLabel turns a status or band into a heading, "expiring-soon"
// becoming "Expiring Soon".
func StatusLabel(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "-", " "))
}

// RenderEmployeePDF writes the employee report as an A4 PDF.
func RenderEmployeePDF(w io.Writer, r EmployeeReport) error {
	return renderEmployeePDF(w, r, true)
}

// renderEmployeePDF uses the core Helvetica font, which is cp1252 encoded,
// so every piece of text goes through the translator first.
func renderEmployeePDF(w io.Writer, r EmployeeReport, compress bool) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetTitle("Employee report - "+r.Name, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Employee Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	line := func(format string, args ...any) {
		pdf.Cell(0, 7, tr(fmt.Sprintf(format, args...)))
		pdf.Ln(6)
	}
	line("Name: %s", r.Name)
	if r.EmployeeNumber != "" {
		line("Employee number: %s", r.EmployeeNumber)
	}
	line("Role: %s", r.Role)
	line("Department: %s", r.Department)
	line("Start date: %s (%d years, %d months)", formatDay(r.StartDate), r.TenureYears, r.TenureMonths)
	pdf.Ln(4)

	q := r.Qualification
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Qualification: %d%% (%s)", q.Score, StatusLabel(string(q.Band)))))
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 11)
	line("Certifications: %d of %d required (%d%%)", q.ValidRequired, q.RequiredTotal, q.CertificationPercent)
	line("Experience: %d%%", q.ExperiencePercent)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	widths := []float64{55, 18, 26, 26, 35, 30}
	for i, h := range []string{"Certification", "Required", "Issued", "Expires", "Status", "OJT"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, c := range r.Certifications {
		required := "No"
		if c.IsRequired {
			required = "Yes"
		}
		ojt := "Pending"
		if c.OJTComplete {
			ojt = "Complete"
		}
		cells := []string{c.Name, required, formatDay(c.IssueDate), formatDay(c.ExpiryDate), c.Countdown, ojt}
		for i, v := range cells {
			pdf.CellFormat(widths[i], 7, tr(v), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(r.Certifications) == 0 {
		pdf.Cell(0, 7, "No certifications on record.")
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, "Generated "+r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render employee report: %w", err)
	}
	return nil
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}
