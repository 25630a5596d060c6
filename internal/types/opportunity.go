package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Opportunity is the canonical, deduplicated entity tracked through the pipeline.
// Its ID is a pure function of the business key, so re-ingesting equivalent
// candidates always lands on the same record.
type Opportunity struct {
	ID             string    `json:"id"`
	Reference      string    `json:"reference"`
	Title          string    `json:"title"`
	Agency         string    `json:"agency"`
	Description    string    `json:"description"`
	Codes          []string  `json:"codes"`
	PostedDate     time.Time `json:"posted_date"`
	DueDate        time.Time `json:"due_date,omitempty"`
	EstimatedValue float64   `json:"estimated_value,omitempty"`
	SetAside       string    `json:"set_aside,omitempty"`
	Location       string    `json:"location,omitempty"`
	Attachments    []string  `json:"attachments,omitempty"`
	Sources        []string  `json:"sources"` // Provenance: which sources contributed
}

// ScoredOpportunity carries the deterministic sub-score vector and final rank.
type ScoredOpportunity struct {
	Opportunity Opportunity `json:"opportunity"`
	Factors     Factors     `json:"factors"`
	Score       float64     `json:"score"` // 0-100
}

// Factors holds the five normalized [0,1] scoring components.
type Factors struct {
	Category  float64 `json:"category"`
	Value     float64 `json:"value"`
	Geography float64 `json:"geography"`
	SetAside  float64 `json:"set_aside"`
	Semantic  float64 `json:"semantic"`
}

// DeriveIdentity computes the canonical opportunity ID for a candidate.
// When the source supplies a reference number the ID hashes only that, so the
// same solicitation seen on different portals collapses to one identity.
// Otherwise it falls back to normalized agency + title + posting date.
func DeriveIdentity(c RawCandidate) string {
	ref := normalizeKey(c.Reference)
	var key string
	if ref != "" {
		key = "ref:" + ref
	} else {
		key = "alt:" + normalizeKey(c.Agency) + "|" + normalizeKey(c.Title) + "|" + c.PostedDate.UTC().Format("2006-01-02")
	}

	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// normalizeKey collapses whitespace and case so superficial formatting
// differences between portals do not split identities.
func normalizeKey(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
