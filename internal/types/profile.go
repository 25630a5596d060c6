package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// OperatorProfile describes the bidding company: what it can do, what it
// holds certifications for, and what contracts it wants. Scoring compares
// every opportunity against this profile.
type OperatorProfile struct {
	Name           string   `json:"name" validate:"required"`
	Codes          []string `json:"codes" validate:"required,min=1,dive,required"`
	Capabilities   []string `json:"capabilities" validate:"required,min=1"`
	Certifications []string `json:"certifications,omitempty"`

	// Target contract value range in dollars.
	TargetValueLow  float64 `json:"target_value_low" validate:"gte=0"`
	TargetValueHigh float64 `json:"target_value_high" validate:"gtefield=TargetValueLow"`

	PreferredRegions []string `json:"preferred_regions,omitempty"`
}

// Validate checks the profile using struct tags.
func (p *OperatorProfile) Validate() error {
	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid operator profile: %w", err)
	}
	return nil
}

// CapabilityText renders the capability list for the semantic judge prompt.
func (p *OperatorProfile) CapabilityText() string {
	text := ""
	for i, c := range p.Capabilities {
		if i > 0 {
			text += ", "
		}
		text += c
	}
	return text
}
