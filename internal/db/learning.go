package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/amizuno/winscope/internal/types"
)

// execer lets the insert helpers run against the pool or an open transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// The learning ledger is append-only: samples, pricing observations, and
// automation events are inserted once and never mutated. Aggregate reads feed
// scoring calibration without touching the write path.

func insertLearningSample(ctx context.Context, tx pgx.Tx, s types.LearningSample) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO learning_samples
		 (id, opportunity_id, agency, score, outcome, bid_amount, winning_bid, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.OpportunityID, s.Agency, s.Score, string(s.Outcome),
		s.BidAmount, s.WinningBid, s.CreatedAt,
	)
	return err
}

// AddPricingObservation records one estimated-vs-actual price comparison.
func (db *DB) AddPricingObservation(ctx context.Context, obs types.PricingObservation) error {
	if err := insertPricingObservation(ctx, db.pool, obs); err != nil {
		return &PersistenceError{Op: "pricing observation", Err: err}
	}
	return nil
}

func insertPricingObservation(ctx context.Context, q execer, obs types.PricingObservation) error {
	if obs.ID == uuid.Nil {
		obs.ID = uuid.New()
	}
	if obs.CreatedAt.IsZero() {
		obs.CreatedAt = time.Now().UTC()
	}
	if obs.ErrorPct == 0 {
		obs.ErrorPct = types.PricingError(obs.Estimated, obs.Actual)
	}
	_, err := q.Exec(ctx,
		`INSERT INTO pricing_observations
		 (id, description, estimated, actual, error_pct, source, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		obs.ID, obs.Description, obs.Estimated, obs.Actual, obs.ErrorPct, obs.Source, obs.CreatedAt,
	)
	return err
}

// AddAutomationEvent records whether an automated stage succeeded.
func (db *DB) AddAutomationEvent(ctx context.Context, ev types.AutomationEvent) error {
	if err := insertAutomationEvent(ctx, db.pool, ev); err != nil {
		return &PersistenceError{Op: "automation event", Err: err}
	}
	return nil
}

func insertAutomationEvent(ctx context.Context, q execer, ev types.AutomationEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := q.Exec(ctx,
		`INSERT INTO automation_events
		 (id, opportunity_id, stage, success, error_message, manual, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.OpportunityID, string(ev.Stage), ev.Success, ev.ErrorMessage,
		ev.Manual, ev.Duration.Milliseconds(), ev.CreatedAt,
	)
	return err
}

// AgencyWinRate summarizes terminal outcomes against one agency.
type AgencyWinRate struct {
	Agency  string  `json:"agency"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"win_rate"`
}

// WinRateByAgency aggregates won/lost samples per agency.
func (db *DB) WinRateByAgency(ctx context.Context) ([]AgencyWinRate, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT agency,
		        COUNT(*) FILTER (WHERE outcome = 'won')  AS wins,
		        COUNT(*) FILTER (WHERE outcome = 'lost') AS losses
		 FROM learning_samples
		 GROUP BY agency
		 ORDER BY agency`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate win rates: %w", err)
	}
	defer rows.Close()

	var result []AgencyWinRate
	for rows.Next() {
		var r AgencyWinRate
		if err := rows.Scan(&r.Agency, &r.Wins, &r.Losses); err != nil {
			return nil, fmt.Errorf("failed to scan win rate: %w", err)
		}
		if total := r.Wins + r.Losses; total > 0 {
			r.WinRate = float64(r.Wins) / float64(total)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// TrailingPricingError returns the mean absolute pricing error percentage
// over the trailing window. Returns 0 when no observations exist.
func (db *DB) TrailingPricingError(ctx context.Context, window time.Duration) (float64, error) {
	var avg *float64
	err := db.pool.QueryRow(ctx,
		`SELECT AVG(error_pct) FROM pricing_observations WHERE created_at >= $1`,
		time.Now().UTC().Add(-window),
	).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate pricing error: %w", err)
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

// StageSuccessRate summarizes automation outcomes for one stage.
type StageSuccessRate struct {
	Stage       types.Stage `json:"stage"`
	Attempts    int         `json:"attempts"`
	Successes   int         `json:"successes"`
	ManualCount int         `json:"manual_count"`
	SuccessRate float64     `json:"success_rate"`
}

// AutomationSuccessRate aggregates automation events per stage over the
// trailing window.
func (db *DB) AutomationSuccessRate(ctx context.Context, window time.Duration) ([]StageSuccessRate, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT stage,
		        COUNT(*) AS attempts,
		        COUNT(*) FILTER (WHERE success) AS successes,
		        COUNT(*) FILTER (WHERE manual)  AS manual_count
		 FROM automation_events
		 WHERE created_at >= $1
		 GROUP BY stage
		 ORDER BY stage`,
		time.Now().UTC().Add(-window),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate automation events: %w", err)
	}
	defer rows.Close()

	var result []StageSuccessRate
	for rows.Next() {
		var r StageSuccessRate
		var stage string
		if err := rows.Scan(&stage, &r.Attempts, &r.Successes, &r.ManualCount); err != nil {
			return nil, fmt.Errorf("failed to scan automation rate: %w", err)
		}
		r.Stage = types.Stage(stage)
		if r.Attempts > 0 {
			r.SuccessRate = float64(r.Successes) / float64(r.Attempts)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// RecentSamples returns the newest learning samples, newest first.
func (db *DB) RecentSamples(ctx context.Context, limit int) ([]types.LearningSample, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, opportunity_id, agency, score, outcome, bid_amount, winning_bid, created_at
		 FROM learning_samples ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer rows.Close()

	var samples []types.LearningSample
	for rows.Next() {
		var s types.LearningSample
		var outcome string
		if err := rows.Scan(&s.ID, &s.OpportunityID, &s.Agency, &s.Score, &outcome,
			&s.BidAmount, &s.WinningBid, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		s.Outcome = types.Outcome(outcome)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}
