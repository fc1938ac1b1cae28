package certification_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cert-tracker/certification"
)

func names(certs []certification.Certification) []string {
	out := make([]string, len(certs))
	for i, c := range certs {
		out[i] = c.Name
	}
	return out
}

func stored(id, owner, name string) certification.Certification {
	c := requiredCert(name)
	c.ID = id
	c.EmployeeID = owner
	return c
}

func TestMerge_ReplacesInPlaceAndAppends(t *testing.T) {
	// GIVEN: A target holding A and B, and an incoming B' and C
	existing := []certification.Certification{
		stored("t-1", "target", "A"),
		stored("t-2", "target", "B"),
	}
	newerB := stored("s-1", "source", "B")
	newerB.ExpiryDate = now.AddDate(5, 0, 0)
	incoming := []certification.Certification{newerB, stored("s-2", "source", "C")}

	// WHEN: Merging
	merged := certification.Merge(existing, incoming)

	// THEN: B is replaced where it was and C is appended
	require.Equal(t, []string{"A", "B", "C"}, names(merged))
	assert.Equal(t, "t-1", merged[0].ID, "unmatched existing keeps its id")
	assert.Equal(t, newerB.ExpiryDate, merged[1].ExpiryDate)

	// AND: Incoming ids and owners are cleared
	assert.Empty(t, merged[1].ID)
	assert.Empty(t, merged[1].EmployeeID)
	assert.Empty(t, merged[2].ID)
	assert.Empty(t, merged[2].EmployeeID)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	existing := []certification.Certification{stored("t-1", "target", "A")}
	incoming := []certification.Certification{stored("s-1", "source", "A")}
	incoming[0].OJT1.Mentor = "Incoming mentor"

	merged := certification.Merge(existing, incoming)
	merged[0].OJT1.Mentor = "changed after merge"

	assert.Equal(t, "t-1", existing[0].ID)
	assert.Equal(t, "s-1", incoming[0].ID)
	assert.Equal(t, "source", incoming[0].EmployeeID)
	assert.Equal(t, "Incoming mentor", incoming[0].OJT1.Mentor)
	assert.Equal(t, "J. Mentor", existing[0].OJT1.Mentor)
}

func TestMerge_KeyIsTrimmedAndNormalized(t *testing.T) {
	// GIVEN: Names that differ only by whitespace or Unicode composition
	existing := []certification.Certification{
		stored("t-1", "target", "Caf\u00e9 Safety"),
		stored("t-2", "target", "Forklift"),
	}
	incoming := []certification.Certification{
		stored("s-1", "source", "Cafe\u0301 Safety"),
		stored("s-2", "source", "  Forklift "),
	}

	merged := certification.Merge(existing, incoming)

	// THEN: Both replace rather than append
	require.Len(t, merged, 2)
	assert.Equal(t, "Cafe\u0301 Safety", merged[0].Name)
	assert.Equal(t, "  Forklift ", merged[1].Name)
}

func TestMerge_KeyIsCaseSensitive(t *testing.T) {
	existing := []certification.Certification{stored("t-1", "target", "First Aid")}
	incoming := []certification.Certification{stored("s-1", "source", "FIRST AID")}

	merged := certification.Merge(existing, incoming)

	assert.Equal(t, []string{"First Aid", "FIRST AID"}, names(merged))
}

func TestMerge_LastIncomingDuplicateWins(t *testing.T) {
	first := stored("s-1", "source", "Dup")
	first.CertificateFileName = "first.pdf"
	second := stored("s-2", "source", "Dup")
	second.CertificateFileName = "second.pdf"

	merged := certification.Merge(nil, []certification.Certification{first, second})

	require.Len(t, merged, 1)
	assert.Equal(t, "second.pdf", merged[0].CertificateFileName)
}

func TestMerge_DuplicateNamesInExistingOnlyFirstIsReplaced(t *testing.T) {
	existing := []certification.Certification{
		stored("t-1", "target", "Dup"),
		stored("t-2", "target", "Dup"),
	}

	merged := certification.Merge(existing, []certification.Certification{stored("s-1", "source", "Dup")})

	require.Len(t, merged, 2)
	assert.Empty(t, merged[0].ID)
	assert.Equal(t, "t-2", merged[1].ID)
}

func TestMerge_Properties(t *testing.T) {
	existing := []certification.Certification{
		stored("t-1", "target", "A"),
		stored("t-2", "target", "B"),
		stored("t-3", "target", "C"),
	}
	incoming := []certification.Certification{
		stored("s-1", "source", "B"),
		stored("s-2", "source", "D"),
		stored("s-3", "source", "E"),
		stored("s-4", "source", "D"),
	}

	once := certification.Merge(existing, incoming)
	twice := certification.Merge(once, incoming)

	t.Run("length is existing plus new distinct keys", func(t *testing.T) {
		assert.Len(t, once, 3+2)
	})

	t.Run("idempotent", func(t *testing.T) {
		assert.Equal(t, once, twice)
	})

	t.Run("unmatched existing preserved", func(t *testing.T) {
		assert.Equal(t, existing[0], once[0])
		assert.Equal(t, existing[2], once[2])
	})

	t.Run("every incoming key present", func(t *testing.T) {
		keys := map[string]bool{}
		for _, c := range once {
			keys[certification.MergeKey(c.Name)] = true
		}
		for _, c := range incoming {
			assert.True(t, keys[certification.MergeKey(c.Name)], c.Name)
		}
	})
}

func TestMerge_EmptyInputs(t *testing.T) {
	assert.Empty(t, certification.Merge(nil, nil))

	existing := []certification.Certification{stored("t-1", "target", "A")}
	assert.Equal(t, existing, certification.Merge(existing, nil))
}
