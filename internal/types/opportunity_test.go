package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveIdentity_SameReferenceAcrossSources(t *testing.T) {
	posted := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	samgov := RawCandidate{
		Source:     "sam.gov",
		Reference:  "AB-100",
		Title:      "Robotic conveyor retrofit",
		Agency:     "Department of Defense",
		PostedDate: posted,
	}
	portal := RawCandidate{
		Source:     "state-portal",
		Reference:  "AB-100",
		Title:      "ROBOTIC CONVEYOR RETROFIT (REPOST)",
		Agency:     "DoD",
		PostedDate: posted.AddDate(0, 0, 2),
	}

	assert.Equal(t, DeriveIdentity(samgov), DeriveIdentity(portal),
		"same reference number must collapse to one identity regardless of source")
}

func TestDeriveIdentity_ReferenceNormalization(t *testing.T) {
	a := RawCandidate{Reference: "ab-100"}
	b := RawCandidate{Reference: "  AB-100  "}
	assert.Equal(t, DeriveIdentity(a), DeriveIdentity(b))
}

func TestDeriveIdentity_FallbackKey(t *testing.T) {
	posted := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	a := RawCandidate{
		Title:      "Forklift  Maintenance",
		Agency:     "general services administration",
		PostedDate: posted,
	}
	b := RawCandidate{
		Title:      "forklift maintenance",
		Agency:     "GENERAL SERVICES ADMINISTRATION",
		PostedDate: posted.Add(3 * time.Hour), // Same calendar day
	}
	assert.Equal(t, DeriveIdentity(a), DeriveIdentity(b),
		"fallback identity normalizes case, whitespace, and time of day")
}

func TestDeriveIdentity_FallbackDiffersByDay(t *testing.T) {
	a := RawCandidate{Title: "T", Agency: "A", PostedDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}
	b := RawCandidate{Title: "T", Agency: "A", PostedDate: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)}
	assert.NotEqual(t, DeriveIdentity(a), DeriveIdentity(b))
}

func TestDeriveIdentity_ReferenceBeatsFallback(t *testing.T) {
	withRef := RawCandidate{Reference: "AB-100", Title: "T", Agency: "A"}
	withoutRef := RawCandidate{Title: "T", Agency: "A"}
	assert.NotEqual(t, DeriveIdentity(withRef), DeriveIdentity(withoutRef))
}

func TestDeriveIdentity_Length(t *testing.T) {
	id := DeriveIdentity(RawCandidate{Reference: "AB-100"})
	assert.Len(t, id, 16)
}
