package certification

import (
	"time"
)

// =============================================================================
// EXPIRY WINDOWS - Classification of a certification relative to "now"
// =============================================================================

// ExpiringSoonWindowDays is the one-year policy window. Not configurable.
const ExpiringSoonWindowDays = 365

const (
	day          = 24 * time.Hour
	daysPerYear  = 365
	daysPerMonth = 30
)

// DaysUntilExpiry returns the ceiling of (expiry - now) in days.
// Negative once the certification has expired.
func DaysUntilExpiry(expiry, now time.Time) int {
	return ceilDays(expiry.Sub(now))
}

// Classify maps an expiry date to a Status.
// Zero days left is still expiring-soon, not expired.
func Classify(expiry, now time.Time) Status {
	days := DaysUntilExpiry(expiry, now)
	switch {
	case days < 0:
		return StatusExpired
	case days <= ExpiringSoonWindowDays:
		return StatusExpiringSoon
	default:
		return StatusValid
	}
}

// MonthsUntilExpiry is the 30-day-month countdown shown next to a certification.
func MonthsUntilExpiry(expiry, now time.Time) int {
	days := DaysUntilExpiry(expiry, now)
	months := days / daysPerMonth
	if days%daysPerMonth > 0 {
		months++
	}
	return months
}

// ceilDays rounds a duration up to whole days. Integer division truncates
// toward zero, which already is the ceiling for negative durations.
func ceilDays(d time.Duration) int {
	days := d / day
	if d%day > 0 {
		days++
	}
	return int(days)
}

// RefreshStatuses recomputes the stored status of every certification and
// returns how many changed.
func RefreshStatuses(emp *Employee, now time.Time) int {
	changed := 0
	for i := range emp.Certifications {
		status := Classify(emp.Certifications[i].ExpiryDate, now)
		if emp.Certifications[i].Status != status {
			emp.Certifications[i].Status = status
			changed++
		}
	}
	return changed
}

// StatusChange is the classified status of one stored certification.
type StatusChange struct {
	CertificationID string
	Status          Status
}

// StaleStatuses lists the certifications whose stored status differs from
// their classification at now, in certification order. emp is not modified.
func StaleStatuses(emp Employee, now time.Time) []StatusChange {
	var changes []StatusChange
	for _, c := range emp.Certifications {
		if status := Classify(c.ExpiryDate, now); c.Status != status {
			changes = append(changes, StatusChange{CertificationID: c.ID, Status: status})
		}
	}
	return changes
}

// =============================================================================
// TENURE
// =============================================================================

// Tenure is time since an employee's start date, in 365-day years and
// 30-day months of the remainder.
type Tenure struct {
	Days   int
	Years  int
	Months int
}

// TenureSince returns the tenure at now. A start date in the future yields zero.
func TenureSince(start, now time.Time) Tenure {
	if start.IsZero() || !now.After(start) {
		return Tenure{}
	}
	days := int(now.Sub(start) / day)
	return Tenure{
		Days:   days,
		Years:  days / daysPerYear,
		Months: (days % daysPerYear) / daysPerMonth,
	}
}
