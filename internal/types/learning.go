package types

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal result a learning sample records.
type Outcome string

// Terminal outcomes tracked by the ledger.
const (
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
)

// LearningSample is an append-only fact written when a pipeline record
// reaches Won or Lost. It feeds future scoring calibration.
type LearningSample struct {
	ID            uuid.UUID `json:"id"`
	OpportunityID string    `json:"opportunity_id"`
	Agency        string    `json:"agency"`
	Score         float64   `json:"score"` // Score at decision time
	Outcome       Outcome   `json:"outcome"`
	BidAmount     float64   `json:"bid_amount,omitempty"`
	WinningBid    float64   `json:"winning_bid,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PricingObservation tracks estimated vs actual price for one line item.
type PricingObservation struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Estimated   float64   `json:"estimated"`
	Actual      float64   `json:"actual"`
	ErrorPct    float64   `json:"error_pct"`
	Source      string    `json:"source,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AutomationEvent records whether an automated pipeline step succeeded for
// one opportunity, and whether a human had to step in.
type AutomationEvent struct {
	ID            uuid.UUID     `json:"id"`
	OpportunityID string        `json:"opportunity_id"`
	Stage         Stage         `json:"stage"`
	Success       bool          `json:"success"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	Manual        bool          `json:"manual"` // Manual intervention required
	Duration      time.Duration `json:"duration"`
	CreatedAt     time.Time     `json:"created_at"`
}

// PricingError computes the percentage error of an estimate against the
// actual price. Returns 0 when the actual price is unknown.
func PricingError(estimated, actual float64) float64 {
	if actual <= 0 {
		return 0
	}
	diff := estimated - actual
	if diff < 0 {
		diff = -diff
	}
	return diff / actual * 100
}
