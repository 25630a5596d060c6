// Package types provides type definitions for structured data used throughout the winscope system.
package types

import "time"

// RawCandidate is one source's pre-deduplication view of a possible opportunity.
// Adapters produce these; they are immutable once returned from a fetch.
type RawCandidate struct {
	Source         string            `json:"source"`
	Reference      string            `json:"reference"` // Solicitation number, may be empty
	Title          string            `json:"title"`
	Agency         string            `json:"agency"`
	Description    string            `json:"description"`
	Codes          []string          `json:"codes"` // NAICS or equivalent topical codes
	PostedDate     time.Time         `json:"posted_date"`
	DueDate        time.Time         `json:"due_date,omitempty"`
	EstimatedValue float64           `json:"estimated_value,omitempty"` // 0 means unknown
	SetAside       string            `json:"set_aside,omitempty"`
	Location       string            `json:"location,omitempty"`
	Attachments    []string          `json:"attachments,omitempty"`
	Raw            map[string]string `json:"raw,omitempty"` // Opaque source-specific payload
}

// Batch groups the candidates one source produced in a single fetch.
type Batch struct {
	Source     string
	Candidates []RawCandidate
}
