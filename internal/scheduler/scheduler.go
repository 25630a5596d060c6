// Package scheduler decides, per source, whether it is due for a fetch.
// Productive sources are polled more often, quiet ones less; sources that
// just failed never get their interval shortened.
package scheduler

import (
	"time"

	"github.com/amizuno/winscope/internal/registry"
)

// Yield thresholds dividing productive from quiet sources, in
// opportunities per fetch.
const (
	highYieldThreshold = 5.0
	lowYieldThreshold  = 1.0
)

// smoothing is the exponential moving average weight given to the most
// recent fetch. Higher values react faster to recent yield changes.
const smoothing = 0.4

// Outcome summarizes one fetch attempt for scheduling purposes.
type Outcome struct {
	Yield  int // Candidates returned; ignored when Failed
	Failed bool
	At     time.Time
}

// Scheduler computes per-source due times from base intervals and observed
// productivity. It holds no state of its own; all scheduling state lives on
// the descriptors, so IsDue is side-effect free and safe to call repeatedly.
type Scheduler struct {
	now func() time.Time
}

// New returns a Scheduler using wall-clock time.
func New() *Scheduler {
	return &Scheduler{now: time.Now}
}

// NewWithClock returns a Scheduler with an injectable clock for tests.
func NewWithClock(now func() time.Time) *Scheduler {
	return &Scheduler{now: now}
}

// IsDue reports whether the source should be fetched this cycle. A source is
// due if it has never been fetched, or if the time since its last fetch has
// reached its effective interval.
func (s *Scheduler) IsDue(d *registry.SourceDescriptor) bool {
	if d.LastFetch.IsZero() {
		return true
	}
	return s.now().Sub(d.LastFetch) >= s.EffectiveInterval(d)
}

// EffectiveInterval scales the base interval by observed productivity:
// halved for high-yield sources, doubled for low-yield ones. A source with
// recent consecutive failures is never scheduled faster than its base
// interval, regardless of how productive it used to be.
func (s *Scheduler) EffectiveInterval(d *registry.SourceDescriptor) time.Duration {
	interval := d.BaseInterval
	switch {
	case d.AvgYield > highYieldThreshold:
		interval = d.BaseInterval / 2
	case d.AvgYield < lowYieldThreshold:
		interval = d.BaseInterval * 2
	}

	if d.ConsecutiveFailures > 0 && interval < d.BaseInterval {
		interval = d.BaseInterval
	}
	return interval
}

// Record updates the source's scheduling state after a fetch attempt.
// A failed fetch counts as zero yield, dragging the average down so the
// source backs off over time.
func (s *Scheduler) Record(d *registry.SourceDescriptor, outcome Outcome) {
	at := outcome.At
	if at.IsZero() {
		at = s.now()
	}
	d.LastFetch = at
	d.FetchCount++

	yield := float64(outcome.Yield)
	success := 1.0
	if outcome.Failed {
		yield = 0
		success = 0
		d.ConsecutiveFailures++
	} else {
		d.ConsecutiveFailures = 0
	}

	if d.FetchCount == 1 {
		d.AvgYield = yield
		d.SuccessRate = success
		return
	}
	d.AvgYield = smoothing*yield + (1-smoothing)*d.AvgYield
	d.SuccessRate = smoothing*success + (1-smoothing)*d.SuccessRate
}

// Due filters the registry down to the sources that should be fetched now.
func (s *Scheduler) Due(reg *registry.Registry) []*registry.SourceDescriptor {
	var due []*registry.SourceDescriptor
	for _, d := range reg.All() {
		if s.IsDue(d) {
			due = append(due, d)
		}
	}
	return due
}
