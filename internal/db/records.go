package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/amizuno/winscope/internal/types"
)

// UpsertScored inserts or refreshes the record for a scored opportunity.
// New identities start at the scored stage. Re-ingesting an existing identity
// updates score, factors, and opportunity metadata but never touches the
// stage or its history, so rediscovery cannot reset a record's progress.
// Returns the stored record and whether it was newly created.
func (db *DB) UpsertScored(ctx context.Context, scored types.ScoredOpportunity) (*types.PipelineRecord, bool, error) {
	id := scored.Opportunity.ID

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, false, &PersistenceError{Op: "upsert", ID: id, Err: err}
	}
	defer tx.Rollback(ctx)

	existing, err := lockRecord(ctx, tx, id)
	if err != nil {
		return nil, false, &PersistenceError{Op: "upsert", ID: id, Err: err}
	}

	now := time.Now().UTC()

	if existing == nil {
		record := &types.PipelineRecord{
			ID:          id,
			Opportunity: scored.Opportunity,
			Stage:       types.StageScored,
			Score:       scored.Score,
			Factors:     scored.Factors,
			StageHistory: map[types.Stage]time.Time{
				types.StageDiscovered: now,
				types.StageScored:     now,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := insertRecord(ctx, tx, record); err != nil {
			return nil, false, &PersistenceError{Op: "upsert", ID: id, Err: err}
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, false, &PersistenceError{Op: "upsert", ID: id, Err: err}
		}
		return record, true, nil
	}

	existing.Opportunity = scored.Opportunity
	existing.Score = scored.Score
	existing.Factors = scored.Factors
	existing.UpdatedAt = now

	if err := updateRecord(ctx, tx, existing); err != nil {
		return nil, false, &PersistenceError{Op: "upsert", ID: id, Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, &PersistenceError{Op: "upsert", ID: id, Err: err}
	}
	return existing, false, nil
}

// AdvanceOptions carries the optional decision data attached to a transition.
type AdvanceOptions struct {
	Reason     string
	BidAmount  float64
	WinningBid float64
	Note       string
}

// AdvanceStage moves a record forward one legal transition. The row is locked
// for the duration of the transaction so concurrent rediscovery of the same
// identity cannot produce lost updates. Reaching Won or Lost writes exactly
// one learning sample in the same transaction.
func (db *DB) AdvanceStage(ctx context.Context, id string, next types.Stage, opts AdvanceOptions) (*types.PipelineRecord, error) {
	if !next.Valid() {
		return nil, &types.InvalidTransitionError{To: next}
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "advance", ID: id, Err: err}
	}
	defer tx.Rollback(ctx)

	record, err := lockRecord(ctx, tx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "advance", ID: id, Err: err}
	}
	if record == nil {
		return nil, fmt.Errorf("no pipeline record for %s", id)
	}

	if !record.Stage.CanAdvance(next) {
		return nil, &types.InvalidTransitionError{From: record.Stage, To: next}
	}

	now := time.Now().UTC()
	record.Stage = next
	record.StageHistory[next] = now
	record.UpdatedAt = now
	if opts.Reason != "" {
		record.DecisionReason = opts.Reason
	}
	if opts.BidAmount > 0 {
		record.BidAmount = opts.BidAmount
	}
	if opts.WinningBid > 0 {
		record.WinningBid = opts.WinningBid
	}
	if opts.Note != "" {
		record.Notes = append(record.Notes, opts.Note)
	}

	if err := updateRecord(ctx, tx, record); err != nil {
		return nil, &PersistenceError{Op: "advance", ID: id, Err: err}
	}

	if next == types.StageWon || next == types.StageLost {
		outcome := types.OutcomeWon
		if next == types.StageLost {
			outcome = types.OutcomeLost
		}
		sample := types.LearningSample{
			ID:            uuid.New(),
			OpportunityID: record.ID,
			Agency:        record.Opportunity.Agency,
			Score:         record.Score,
			Outcome:       outcome,
			BidAmount:     record.BidAmount,
			WinningBid:    record.WinningBid,
			CreatedAt:     now,
		}
		if err := insertLearningSample(ctx, tx, sample); err != nil {
			return nil, &PersistenceError{Op: "advance", ID: id, Err: err}
		}

		// Disclosed winning bids calibrate future pricing.
		if record.BidAmount > 0 && record.WinningBid > 0 {
			obs := types.PricingObservation{
				Description: record.Opportunity.Title,
				Estimated:   record.BidAmount,
				Actual:      record.WinningBid,
				Source:      record.Opportunity.Agency,
				CreatedAt:   now,
			}
			if err := insertPricingObservation(ctx, tx, obs); err != nil {
				return nil, &PersistenceError{Op: "advance", ID: id, Err: err}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &PersistenceError{Op: "advance", ID: id, Err: err}
	}
	return record, nil
}

// CorrectStage moves a record to an arbitrary earlier stage. This is the only
// backward path and every use is logged as a manual intervention on the record.
func (db *DB) CorrectStage(ctx context.Context, id string, to types.Stage, reason string) (*types.PipelineRecord, error) {
	if !to.Valid() {
		return nil, &types.InvalidTransitionError{To: to}
	}
	if reason == "" {
		return nil, fmt.Errorf("a correction requires a reason")
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "correct", ID: id, Err: err}
	}
	defer tx.Rollback(ctx)

	record, err := lockRecord(ctx, tx, id)
	if err != nil {
		return nil, &PersistenceError{Op: "correct", ID: id, Err: err}
	}
	if record == nil {
		return nil, fmt.Errorf("no pipeline record for %s", id)
	}
	if !record.Stage.CanCorrectTo(to) {
		return nil, &types.InvalidTransitionError{From: record.Stage, To: to}
	}

	now := time.Now().UTC()
	record.Interventions = append(record.Interventions, types.Intervention{
		At:     now,
		Reason: reason,
		From:   record.Stage,
		To:     to,
	})
	record.Stage = to
	record.StageHistory[to] = now
	record.UpdatedAt = now

	if err := updateRecord(ctx, tx, record); err != nil {
		return nil, &PersistenceError{Op: "correct", ID: id, Err: err}
	}

	// Corrections count against the automation record for the corrected stage.
	manual := types.AutomationEvent{
		OpportunityID: record.ID,
		Stage:         to,
		Success:       false,
		ErrorMessage:  reason,
		Manual:        true,
		CreatedAt:     now,
	}
	if err := insertAutomationEvent(ctx, tx, manual); err != nil {
		return nil, &PersistenceError{Op: "correct", ID: id, Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &PersistenceError{Op: "correct", ID: id, Err: err}
	}
	return record, nil
}

// GetRecord retrieves a record by opportunity identity. Returns nil when absent.
func (db *DB) GetRecord(ctx context.Context, id string) (*types.PipelineRecord, error) {
	rows, err := db.pool.Query(ctx, selectRecords+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// ListByStage retrieves records currently at the given stage, newest first.
func (db *DB) ListByStage(ctx context.Context, stage types.Stage, limit int) ([]types.PipelineRecord, error) {
	rows, err := db.pool.Query(ctx,
		selectRecords+` WHERE stage = $1 ORDER BY updated_at DESC LIMIT $2`,
		string(stage), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list records by stage: %w", err)
	}
	return collectRecords(rows)
}

// ListByMinScore retrieves records at or above a score threshold, best first.
func (db *DB) ListByMinScore(ctx context.Context, minScore float64, limit int) ([]types.PipelineRecord, error) {
	rows, err := db.pool.Query(ctx,
		selectRecords+` WHERE score >= $1 ORDER BY score DESC, updated_at DESC LIMIT $2`,
		minScore, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list records by score: %w", err)
	}
	return collectRecords(rows)
}

// StageCounts returns how many records sit in each stage.
func (db *DB) StageCounts(ctx context.Context) (map[types.Stage]int, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT stage, COUNT(*) FROM pipeline_records GROUP BY stage`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count records by stage: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.Stage]int)
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stage count: %w", err)
		}
		counts[types.Stage(stage)] = count
	}
	return counts, rows.Err()
}

const selectRecords = `SELECT id, opportunity, stage, score, factors, stage_history,
	decision_reason, bid_amount, winning_bid, notes, interventions, created_at, updated_at
	FROM pipeline_records`

func collectRecords(rows pgx.Rows) ([]types.PipelineRecord, error) {
	defer rows.Close()

	var records []types.PipelineRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*types.PipelineRecord, error) {
	var (
		record                                        types.PipelineRecord
		stage                                         string
		oppJSON, factorsJSON, historyJSON, notesJSON  []byte
		interventionsJSON                             []byte
	)

	err := row.Scan(&record.ID, &oppJSON, &stage, &record.Score, &factorsJSON,
		&historyJSON, &record.DecisionReason, &record.BidAmount, &record.WinningBid,
		&notesJSON, &interventionsJSON, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	record.Stage = types.Stage(stage)
	if err := json.Unmarshal(oppJSON, &record.Opportunity); err != nil {
		return nil, fmt.Errorf("corrupt opportunity for %s: %w", record.ID, err)
	}
	if err := json.Unmarshal(factorsJSON, &record.Factors); err != nil {
		return nil, fmt.Errorf("corrupt factors for %s: %w", record.ID, err)
	}
	if err := json.Unmarshal(historyJSON, &record.StageHistory); err != nil {
		return nil, fmt.Errorf("corrupt stage history for %s: %w", record.ID, err)
	}
	if record.StageHistory == nil {
		record.StageHistory = map[types.Stage]time.Time{}
	}
	if len(notesJSON) > 0 {
		if err := json.Unmarshal(notesJSON, &record.Notes); err != nil {
			return nil, fmt.Errorf("corrupt notes for %s: %w", record.ID, err)
		}
	}
	if len(interventionsJSON) > 0 {
		if err := json.Unmarshal(interventionsJSON, &record.Interventions); err != nil {
			return nil, fmt.Errorf("corrupt interventions for %s: %w", record.ID, err)
		}
	}
	return &record, nil
}

func lockRecord(ctx context.Context, tx pgx.Tx, id string) (*types.PipelineRecord, error) {
	rows, err := tx.Query(ctx, selectRecords+` WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func insertRecord(ctx context.Context, tx pgx.Tx, r *types.PipelineRecord) error {
	oppJSON, factorsJSON, historyJSON, notesJSON, interventionsJSON, err := marshalRecord(r)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO pipeline_records
		 (id, opportunity, stage, score, factors, stage_history, decision_reason,
		  bid_amount, winning_bid, notes, interventions, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.ID, oppJSON, string(r.Stage), r.Score, factorsJSON, historyJSON,
		r.DecisionReason, r.BidAmount, r.WinningBid, notesJSON, interventionsJSON,
		r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func updateRecord(ctx context.Context, tx pgx.Tx, r *types.PipelineRecord) error {
	oppJSON, factorsJSON, historyJSON, notesJSON, interventionsJSON, err := marshalRecord(r)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE pipeline_records SET opportunity = $2, stage = $3, score = $4,
		 factors = $5, stage_history = $6, decision_reason = $7, bid_amount = $8,
		 winning_bid = $9, notes = $10, interventions = $11, updated_at = $12
		 WHERE id = $1`,
		r.ID, oppJSON, string(r.Stage), r.Score, factorsJSON, historyJSON,
		r.DecisionReason, r.BidAmount, r.WinningBid, notesJSON, interventionsJSON,
		r.UpdatedAt,
	)
	return err
}

func marshalRecord(r *types.PipelineRecord) (opp, factors, history, notes, interventions []byte, err error) {
	if opp, err = json.Marshal(r.Opportunity); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal opportunity: %w", err)
	}
	if factors, err = json.Marshal(r.Factors); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal factors: %w", err)
	}
	if history, err = json.Marshal(r.StageHistory); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal stage history: %w", err)
	}
	if r.Notes == nil {
		notes = []byte("[]")
	} else if notes, err = json.Marshal(r.Notes); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal notes: %w", err)
	}
	if r.Interventions == nil {
		interventions = []byte("[]")
	} else if interventions, err = json.Marshal(r.Interventions); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal interventions: %w", err)
	}
	return opp, factors, history, notes, interventions, nil
}
