package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/amizuno/winscope/internal/db"
	"github.com/amizuno/winscope/internal/pipeline"
	"github.com/amizuno/winscope/internal/scoring"
	"github.com/amizuno/winscope/internal/types"
)

const defaultListLimit = 50

// scanState tracks one on-demand discovery cycle.
type scanState struct {
	ID         uuid.UUID        `json:"id"`
	Status     string           `json:"status"` // running, completed, failed
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Report     *pipeline.Report `json:"report,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListOpportunities serves the read-only query surface: filter by
// stage or by minimum score, newest first.
func (s *Server) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	stage := r.URL.Query().Get("stage")
	minScoreRaw := r.URL.Query().Get("min_score")

	var (
		records []types.PipelineRecord
		err     error
	)
	switch {
	case stage != "":
		st := types.Stage(stage)
		if !st.Valid() {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown stage: %s", stage))
			return
		}
		records, err = s.db.ListByStage(r.Context(), st, limit)
	case minScoreRaw != "":
		minScore, parseErr := strconv.ParseFloat(minScoreRaw, 64)
		if parseErr != nil {
			respondError(w, http.StatusBadRequest, "min_score must be a number")
			return
		}
		records, err = s.db.ListByMinScore(r.Context(), minScore, limit)
	default:
		records, err = s.db.ListByMinScore(r.Context(), 0, limit)
	}
	if err != nil {
		respondError(w, HTTPStatus(err), err.Error())
		return
	}

	if records == nil {
		records = []types.PipelineRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

func (s *Server) handleGetOpportunity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, err := s.db.GetRecord(r.Context(), id)
	if err != nil {
		respondError(w, HTTPStatus(err), err.Error())
		return
	}
	if record == nil {
		err := &ErrRecordNotFound{ID: id}
		respondError(w, HTTPStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, record)
}

type statsResponse struct {
	Stages        map[types.Stage]int    `json:"stages"`
	Calibration   *scoring.Calibration   `json:"calibration"`
	RecentSamples []types.LearningSample `json:"recent_samples"`
}

// handleStats serves pipeline counts and the learning ledger aggregates.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.db.StageCounts(r.Context())
	if err != nil {
		respondError(w, HTTPStatus(err), err.Error())
		return
	}
	calibration, err := scoring.ReadCalibration(r.Context(), s.db)
	if err != nil {
		respondError(w, HTTPStatus(err), err.Error())
		return
	}
	samples, err := s.db.RecentSamples(r.Context(), defaultListLimit)
	if err != nil {
		respondError(w, HTTPStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, statsResponse{
		Stages:        counts,
		Calibration:   calibration,
		RecentSamples: samples,
	})
}

// handleStartScan kicks off one discovery cycle in the background and
// returns a scan ID for polling.
func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	scan := &scanState{
		ID:        uuid.New(),
		Status:    "running",
		StartedAt: time.Now().UTC(),
	}
	s.scanMu.Lock()
	s.scans[scan.ID] = scan
	s.scanMu.Unlock()

	opts := s.cycleOpts
	opts.ForceAll = r.URL.Query().Get("force") == "true"

	go func() {
		// Detached from the request context: the scan outlives the
		// HTTP request that started it.
		report, err := pipeline.RunCycle(context.Background(), opts)

		now := time.Now().UTC()
		s.scanMu.Lock()
		defer s.scanMu.Unlock()
		scan.FinishedAt = &now
		if err != nil {
			scan.Status = "failed"
			scan.Error = err.Error()
			return
		}
		scan.Status = "completed"
		scan.Report = report
	}()

	respondJSON(w, http.StatusAccepted, s.scanSnapshot(scan))
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid scan id")
		return
	}

	s.scanMu.Lock()
	scan, ok := s.scans[id]
	s.scanMu.Unlock()
	if !ok {
		respondError(w, http.StatusNotFound, "scan not found")
		return
	}
	respondJSON(w, http.StatusOK, s.scanSnapshot(scan))
}

// scanSnapshot copies the state under the lock so encoding never races with
// the cycle goroutine updating it. Report and FinishedAt are assigned once
// under the same lock, so the shallow copy is safe to read afterwards.
func (s *Server) scanSnapshot(scan *scanState) scanState {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	return *scan
}

// advanceRequest is the body for stage transitions.
type advanceRequest struct {
	Stage      string  `json:"stage"`
	Reason     string  `json:"reason,omitempty"`
	BidAmount  float64 `json:"bid_amount,omitempty"`
	WinningBid float64 `json:"winning_bid,omitempty"`
	Note       string  `json:"note,omitempty"`
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	next := types.Stage(req.Stage)
	if !next.Valid() {
		err := &ErrValidation{Field: "stage", Message: fmt.Sprintf("unknown stage: %s", req.Stage)}
		respondError(w, HTTPStatus(err), err.Error())
		return
	}

	record, err := s.db.AdvanceStage(r.Context(), id, next, db.AdvanceOptions{
		Reason:     req.Reason,
		BidAmount:  req.BidAmount,
		WinningBid: req.WinningBid,
		Note:       req.Note,
	})
	if err != nil {
		respondError(w, HTTPStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// correctRequest is the body for the backward correction path.
type correctRequest struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req correctRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Reason == "" {
		err := &ErrValidation{Field: "reason", Message: "a correction requires a reason"}
		respondError(w, HTTPStatus(err), err.Error())
		return
	}
	to := types.Stage(req.Stage)
	if !to.Valid() {
		err := &ErrValidation{Field: "stage", Message: fmt.Sprintf("unknown stage: %s", req.Stage)}
		respondError(w, HTTPStatus(err), err.Error())
		return
	}

	record, err := s.db.CorrectStage(r.Context(), id, to, req.Reason)
	if err != nil {
		respondError(w, HTTPStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// pricingRequest is the body for recording an estimated-vs-actual price pair,
// typically from a supplier quote resolving.
type pricingRequest struct {
	Description string  `json:"description"`
	Estimated   float64 `json:"estimated"`
	Actual      float64 `json:"actual"`
	Source      string  `json:"source,omitempty"`
}

func (s *Server) handleAddPricing(w http.ResponseWriter, r *http.Request) {
	var req pricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Estimated <= 0 || req.Actual <= 0 {
		err := &ErrValidation{Field: "estimated", Message: "estimated and actual must be positive"}
		respondError(w, HTTPStatus(err), err.Error())
		return
	}

	obs := types.PricingObservation{
		Description: req.Description,
		Estimated:   req.Estimated,
		Actual:      req.Actual,
		Source:      req.Source,
	}
	if err := s.db.AddPricingObservation(r.Context(), obs); err != nil {
		respondError(w, HTTPStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}
