package certification

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// MERGE BY NAME
// =============================================================================

// MergeKey is the identity of a certification when merging: the name with
// surrounding whitespace trimmed, in Unicode NFC form. Case is significant.
func MergeKey(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Merge folds incoming certifications into existing ones.
//
// An incoming certification whose key matches an existing one replaces it in
// place; otherwise it is appended. Incoming items are processed in order, so
// for duplicate names within one batch the last one wins. Incoming ids and
// owners are cleared: the result belongs to a different employee and gets
// fresh ids when persisted. Neither input is modified.
func Merge(existing, incoming []Certification) []Certification {
	merged := CloneAll(existing)

	index := make(map[string]int, len(merged))
	for i, c := range merged {
		key := MergeKey(c.Name)
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	for _, c := range incoming {
		next := c.Clone()
		next.ID = ""
		next.EmployeeID = ""

		key := MergeKey(next.Name)
		if i, ok := index[key]; ok {
			merged[i] = next
			continue
		}
		index[key] = len(merged)
		merged = append(merged, next)
	}

	return merged
}
