package certification

import (
	"errors"
	"fmt"
	"strings"
)

// MaxAttachmentBytes caps a profile image or a certificate file.
const MaxAttachmentBytes = 5_000_000

// ValidateEmployee checks an employee record before it is written.
func ValidateEmployee(emp Employee) error {
	if strings.TrimSpace(emp.FirstName) == "" {
		return invalid("firstName", "is required")
	}
	if strings.TrimSpace(emp.LastName) == "" {
		return invalid("lastName", "is required")
	}
	if emp.StartDate.IsZero() {
		return invalid("startDate", "is required")
	}
	if len(emp.ProfileImage) > MaxAttachmentBytes {
		return invalid("profileImage", fmt.Sprintf("exceeds %d bytes", MaxAttachmentBytes))
	}
	for i, c := range emp.Certifications {
		if err := ValidateCertification(c); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return invalid(fmt.Sprintf("certifications[%d].%s", i, ve.Field), ve.Message)
			}
			return err
		}
	}
	return nil
}

// ValidateCertification checks a single certification.
func ValidateCertification(c Certification) error {
	if MergeKey(c.Name) == "" {
		return invalid("name", "is required")
	}
	if c.ExpiryDate.IsZero() {
		return invalid("expiryDate", "is required")
	}
	if !c.IssueDate.IsZero() && c.ExpiryDate.Before(c.IssueDate) {
		return invalid("expiryDate", "must not be before issueDate")
	}
	if c.Status != "" && !c.Status.IsKnown() {
		return invalid("status", fmt.Sprintf("unknown status %q", c.Status))
	}
	if len(c.Certificate) > MaxAttachmentBytes {
		return invalid("certificate", fmt.Sprintf("exceeds %d bytes", MaxAttachmentBytes))
	}
	return nil
}
