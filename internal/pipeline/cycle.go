// Package pipeline provides the high-level orchestration for discovery cycles.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/amizuno/winscope/internal/collect"
	"github.com/amizuno/winscope/internal/db"
	"github.com/amizuno/winscope/internal/dedup"
	"github.com/amizuno/winscope/internal/registry"
	"github.com/amizuno/winscope/internal/scheduler"
	"github.com/amizuno/winscope/internal/scoring"
	"github.com/amizuno/winscope/internal/sources"
	"github.com/amizuno/winscope/internal/types"
)

// DefaultCycleTimeout bounds one full discovery cycle.
const DefaultCycleTimeout = 10 * time.Minute

// Store is the slice of persistence the cycle needs. A nil Store runs the
// cycle as a dry run: discovery and scoring happen, nothing is saved.
type Store interface {
	UpsertScored(ctx context.Context, scored types.ScoredOpportunity) (*types.PipelineRecord, bool, error)
	AdvanceStage(ctx context.Context, id string, next types.Stage, opts db.AdvanceOptions) (*types.PipelineRecord, error)
}

// AutomationRecorder is implemented by stores that keep per-stage automation
// metrics. Recording is best effort and never blocks the cycle.
type AutomationRecorder interface {
	AddAutomationEvent(ctx context.Context, ev types.AutomationEvent) error
}

// Options holds configuration for running discovery cycles.
type Options struct {
	Registry  *registry.Registry
	Scheduler *scheduler.Scheduler
	Engine    *scoring.Engine
	Store     Store

	QualificationThreshold float64
	MaxInFlight            int
	SourceTimeout          time.Duration
	CycleTimeout           time.Duration
	ForceAll               bool // Fetch every source regardless of schedule
	UseBrowser             bool
	Verbose                bool

	// Retry carries identities whose store writes failed into the next
	// cycle. Callers that run repeated cycles share one queue across them.
	Retry *RetryQueue

	// adapterFor overrides adapter construction in tests.
	adapterFor func(*registry.SourceDescriptor, sources.Options) sources.Adapter
}

// SourceSummary reports one source's fetch outcome within a cycle.
type SourceSummary struct {
	Name       string        `json:"name"`
	Candidates int           `json:"candidates"`
	Duration   time.Duration `json:"duration"`
	Failed     bool          `json:"failed"`
	Error      string        `json:"error,omitempty"`
}

// Report summarizes one completed cycle. A cycle always completes and always
// produces a report; partial source failures never abort it.
type Report struct {
	StartedAt      time.Time         `json:"started_at"`
	Duration       time.Duration     `json:"duration"`
	Sources        []SourceSummary   `json:"sources"`
	Candidates     int               `json:"candidates"`
	Opportunities  int               `json:"opportunities"`
	NewlyQualified int               `json:"newly_qualified"`
	Qualified      []types.ScoredOpportunity `json:"qualified,omitempty"`
	Scored         []types.ScoredOpportunity `json:"scored,omitempty"`
	JudgmentErrors int               `json:"judgment_errors"`
	StoreErrors    int               `json:"store_errors"`
	Retried        int               `json:"retried"`
}

// RunCycle executes one discovery cycle: pick due sources, fetch them
// concurrently, merge the candidates, score the merged set, persist, and
// qualify. Scoring starts only after every fetch has resolved or timed out,
// so opportunities are never scored against a partially merged set.
func RunCycle(ctx context.Context, opts Options) (*Report, error) {
	if opts.Registry == nil || opts.Scheduler == nil || opts.Engine == nil {
		return nil, fmt.Errorf("registry, scheduler, and engine are required")
	}

	cycleTimeout := opts.CycleTimeout
	if cycleTimeout <= 0 {
		cycleTimeout = DefaultCycleTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	report := &Report{StartedAt: time.Now().UTC()}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	// Step 1: select due sources.
	due := opts.Scheduler.Due(opts.Registry)
	if opts.ForceAll {
		due = opts.Registry.All()
	}
	if len(due) == 0 {
		fmt.Printf("Step 1/5: No sources due this cycle\n")
		if opts.Store != nil && opts.Retry != nil && opts.Retry.Len() > 0 {
			persist(ctx, opts, nil, report)
		}
		return report, nil
	}
	fmt.Printf("Step 1/5: %d source(s) due\n", len(due))

	// Step 2: concurrent fan-out fetch.
	fmt.Printf("Step 2/5: Fetching %d source(s)...\n", len(due))
	results, fetchErrs := fetchDue(ctx, opts, due)
	report.Sources = summarize(due, results, fetchErrs)
	var candidates []types.RawCandidate
	for _, r := range results {
		candidates = append(candidates, r.Batch.Candidates...)
	}
	report.Candidates = len(candidates)
	for _, e := range fetchErrs {
		fmt.Printf("Warning: source %s failed: %v\n", e.Source, e.Err)
	}

	// Step 3: dedup across sources.
	opportunities := dedup.Merge(candidates)
	report.Opportunities = len(opportunities)
	fmt.Printf("Step 3/5: Merged %d candidate(s) into %d opportunit(ies)\n",
		len(candidates), len(opportunities))

	// Step 4: score the fully merged set.
	fmt.Printf("Step 4/5: Scoring %d opportunit(ies)...\n", len(opportunities))
	scored, judgeErrs := opts.Engine.ScoreAll(ctx, opportunities)
	report.Scored = scored
	report.JudgmentErrors = len(judgeErrs)
	if opts.Verbose {
		for _, err := range judgeErrs {
			fmt.Printf("Warning: %v\n", err)
		}
	}

	// Step 5: persist and qualify.
	if opts.Store == nil {
		fmt.Printf("Step 5/5: No store configured, skipping persistence\n")
		markQualified(report, scored, opts.QualificationThreshold)
		return report, nil
	}
	fmt.Printf("Step 5/5: Persisting %d record(s)...\n", len(scored))
	persist(ctx, opts, scored, report)

	return report, nil
}

// fetchDue runs the bounded fan-out and feeds each outcome back into the
// scheduler so future intervals adapt to observed yield.
func fetchDue(ctx context.Context, opts Options, due []*registry.SourceDescriptor) ([]collect.Result, []*collect.SourceError) {
	coordinator := collect.New()
	if opts.MaxInFlight > 0 {
		coordinator.MaxInFlight = opts.MaxInFlight
	}
	if opts.SourceTimeout > 0 {
		coordinator.SourceTimeout = opts.SourceTimeout
	}

	adapterFor := opts.adapterFor
	if adapterFor == nil {
		adapterFor = sources.ForDescriptor
	}
	adapterOpts := sources.Options{UseBrowser: opts.UseBrowser, Verbose: opts.Verbose}
	tasks := make([]collect.Task, 0, len(due))
	for _, d := range due {
		tasks = append(tasks, collect.Task{Descriptor: d, Adapter: adapterFor(d, adapterOpts)})
	}

	results, fetchErrs := coordinator.Collect(ctx, tasks)

	failed := make(map[string]bool, len(fetchErrs))
	for _, e := range fetchErrs {
		failed[e.Source] = true
	}
	yields := make(map[string]int, len(results))
	for _, r := range results {
		yields[r.Batch.Source] = len(r.Batch.Candidates)
	}
	now := time.Now()
	for _, d := range due {
		opts.Scheduler.Record(d, scheduler.Outcome{
			Yield:  yields[d.Name],
			Failed: failed[d.Name],
			At:     now,
		})
	}

	return results, fetchErrs
}

func summarize(due []*registry.SourceDescriptor, results []collect.Result, fetchErrs []*collect.SourceError) []SourceSummary {
	byName := make(map[string]*SourceSummary, len(due))
	summaries := make([]SourceSummary, 0, len(due))
	for _, d := range due {
		summaries = append(summaries, SourceSummary{Name: d.Name})
	}
	for i := range summaries {
		byName[summaries[i].Name] = &summaries[i]
	}
	for _, r := range results {
		if s, ok := byName[r.Batch.Source]; ok {
			s.Candidates = len(r.Batch.Candidates)
			s.Duration = r.Duration
		}
	}
	for _, e := range fetchErrs {
		if s, ok := byName[e.Source]; ok {
			s.Failed = true
			s.Error = e.Err.Error()
		}
	}
	return summaries
}

// persist upserts every scored opportunity and advances fresh qualifiers.
// Store failures are counted and the affected identities queued so the next
// cycle re-attempts the write instead of waiting for the source to resurface
// them.
func persist(ctx context.Context, opts Options, scored []types.ScoredOpportunity, report *Report) {
	threshold := opts.QualificationThreshold
	if threshold <= 0 {
		threshold = scoring.DefaultQualificationThreshold
	}
	recorder, _ := opts.Store.(AutomationRecorder)

	if opts.Retry != nil {
		merged := withRetries(opts.Retry.Drain(), scored)
		report.Retried = len(merged) - len(scored)
		scored = merged
	}

	for _, s := range scored {
		record, _, err := opts.Store.UpsertScored(ctx, s)
		if err != nil {
			fmt.Printf("Warning: failed to persist %s: %v\n", s.Opportunity.ID, err)
			report.StoreErrors++
			if opts.Retry != nil {
				opts.Retry.Add(s)
			}
			continue
		}

		if record.Stage == types.StageScored && scoring.Qualifies(s.Score, threshold) {
			started := time.Now()
			_, err := opts.Store.AdvanceStage(ctx, record.ID, types.StageQualified, db.AdvanceOptions{})
			recordAutomation(ctx, recorder, record.ID, types.StageQualified, time.Since(started), err)
			if err != nil {
				fmt.Printf("Warning: failed to qualify %s: %v\n", record.ID, err)
				report.StoreErrors++
				if opts.Retry != nil {
					opts.Retry.Add(s)
				}
				continue
			}
			report.NewlyQualified++
			report.Qualified = append(report.Qualified, s)
		}
	}
}

func recordAutomation(ctx context.Context, recorder AutomationRecorder, id string, stage types.Stage, elapsed time.Duration, stepErr error) {
	if recorder == nil {
		return
	}
	ev := types.AutomationEvent{
		OpportunityID: id,
		Stage:         stage,
		Success:       stepErr == nil,
		Duration:      elapsed,
	}
	if stepErr != nil {
		ev.ErrorMessage = stepErr.Error()
	}
	if err := recorder.AddAutomationEvent(ctx, ev); err != nil {
		fmt.Printf("Warning: failed to record automation event for %s: %v\n", id, err)
	}
}

// markQualified fills the qualification fields for dry runs without a store.
func markQualified(report *Report, scored []types.ScoredOpportunity, threshold float64) {
	if threshold <= 0 {
		threshold = scoring.DefaultQualificationThreshold
	}
	for _, s := range scored {
		if scoring.Qualifies(s.Score, threshold) {
			report.NewlyQualified++
			report.Qualified = append(report.Qualified, s)
		}
	}
}
