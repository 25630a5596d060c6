// Package collect runs all due source fetches concurrently and aggregates
// their results. One source failing, timing out, or returning garbage never
// prevents sibling sources from completing.
package collect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amizuno/winscope/internal/registry"
	"github.com/amizuno/winscope/internal/sources"
	"github.com/amizuno/winscope/internal/types"
)

// DefaultMaxInFlight caps simultaneous fetches to respect downstream rate limits.
const DefaultMaxInFlight = 5

// DefaultSourceTimeout bounds one source's fetch, browser rendering included.
const DefaultSourceTimeout = 60 * time.Second

// SourceError reports one source's fetch failure.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Result is one source's successful batch plus timing for observability.
type Result struct {
	Batch    types.Batch
	Duration time.Duration
}

// Task pairs a descriptor with the adapter that fetches it.
type Task struct {
	Descriptor *registry.SourceDescriptor
	Adapter    sources.Adapter
}

// Coordinator fans fetches out over a bounded worker pool.
type Coordinator struct {
	MaxInFlight   int
	SourceTimeout time.Duration
}

// New returns a Coordinator with default bounds.
func New() *Coordinator {
	return &Coordinator{
		MaxInFlight:   DefaultMaxInFlight,
		SourceTimeout: DefaultSourceTimeout,
	}
}

// Collect invokes every task concurrently, bounded by MaxInFlight, each call
// bounded by SourceTimeout. It returns successful batches tagged by source
// plus one SourceError per failed source. The returned error slice is the
// only failure signal; Collect itself never fails.
func (c *Coordinator) Collect(ctx context.Context, tasks []Task) ([]Result, []*SourceError) {
	maxInFlight := c.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	timeout := c.SourceTimeout
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)

	var mu sync.Mutex
	var results []Result
	var errs []*SourceError

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gCtx, timeout)
			defer cancel()

			start := time.Now()
			candidates, err := task.Adapter.Fetch(fetchCtx, task.Descriptor)
			elapsed := time.Since(start)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, &SourceError{Source: task.Descriptor.Name, Err: err})
				return nil
			}
			results = append(results, Result{
				Batch: types.Batch{
					Source:     task.Descriptor.Name,
					Candidates: candidates,
				},
				Duration: elapsed,
			})
			return nil
		})
	}

	// Goroutines report failures through errs, never through their return
	// value, so Wait cannot fail.
	_ = g.Wait()

	return results, errs
}
