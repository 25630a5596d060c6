package types

import "time"

// Intervention records a manual correction or note attached to a record.
type Intervention struct {
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
	From   Stage     `json:"from,omitempty"`
	To     Stage     `json:"to,omitempty"`
}

// PipelineRecord tracks one opportunity identity through the lifecycle.
// Created the first time an opportunity qualifies for tracking; mutated only
// through defined stage transitions; never deleted.
type PipelineRecord struct {
	ID          string      `json:"id"`
	Opportunity Opportunity `json:"opportunity"`
	Stage       Stage       `json:"stage"`
	Score       float64     `json:"score"`
	Factors     Factors     `json:"factors"`

	// StageHistory maps each stage to the time it was entered.
	StageHistory map[Stage]time.Time `json:"stage_history"`

	// Bid decision tracking, filled at Qualified -> NoBid/DocumentsDownloaded
	// and at the terminal stages.
	DecisionReason string  `json:"decision_reason,omitempty"`
	BidAmount      float64 `json:"bid_amount,omitempty"`
	WinningBid     float64 `json:"winning_bid,omitempty"`

	Notes         []string       `json:"notes,omitempty"`
	Interventions []Intervention `json:"interventions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
