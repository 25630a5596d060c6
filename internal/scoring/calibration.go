package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/amizuno/winscope/internal/db"
)

// Trailing windows for ledger aggregates.
const (
	pricingWindow    = 90 * 24 * time.Hour
	automationWindow = 30 * 24 * time.Hour
)

// LedgerReader is the read-only slice of the store that calibration consumes.
// It runs outside the scoring hot path so ledger query cost never adds to
// cycle latency.
type LedgerReader interface {
	WinRateByAgency(ctx context.Context) ([]db.AgencyWinRate, error)
	TrailingPricingError(ctx context.Context, window time.Duration) (float64, error)
	AutomationSuccessRate(ctx context.Context, window time.Duration) ([]db.StageSuccessRate, error)
}

// Calibration is a point-in-time snapshot of the learning ledger's aggregates.
type Calibration struct {
	GeneratedAt     time.Time             `json:"generated_at"`
	AgencyWinRates  []db.AgencyWinRate    `json:"agency_win_rates"`
	PricingErrorPct float64               `json:"pricing_error_pct"`
	AutomationRates []db.StageSuccessRate `json:"automation_rates"`
}

// ReadCalibration assembles the current aggregates. Operators use the
// snapshot to adjust weights and thresholds between cycles.
func ReadCalibration(ctx context.Context, ledger LedgerReader) (*Calibration, error) {
	winRates, err := ledger.WinRateByAgency(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading win rates: %w", err)
	}
	pricingErr, err := ledger.TrailingPricingError(ctx, pricingWindow)
	if err != nil {
		return nil, fmt.Errorf("reading pricing error: %w", err)
	}
	automation, err := ledger.AutomationSuccessRate(ctx, automationWindow)
	if err != nil {
		return nil, fmt.Errorf("reading automation rates: %w", err)
	}

	return &Calibration{
		GeneratedAt:     time.Now().UTC(),
		AgencyWinRates:  winRates,
		PricingErrorPct: pricingErr,
		AutomationRates: automation,
	}, nil
}

// AgencyWinRate looks up the historical win rate against one agency.
// The second return reports whether any history exists.
func (c *Calibration) AgencyWinRate(agency string) (float64, bool) {
	for _, r := range c.AgencyWinRates {
		if r.Agency == agency {
			return r.WinRate, true
		}
	}
	return 0, false
}
