package collect

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amizuno/winscope/internal/registry"
	"github.com/amizuno/winscope/internal/types"
)

// fakeAdapter implements sources.Adapter for tests.
type fakeAdapter struct {
	name       string
	candidates []types.RawCandidate
	err        error
	delay      time.Duration
	inFlight   *int32
	maxSeen    *int32
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(ctx context.Context, d *registry.SourceDescriptor) ([]types.RawCandidate, error) {
	if f.inFlight != nil {
		current := atomic.AddInt32(f.inFlight, 1)
		for {
			seen := atomic.LoadInt32(f.maxSeen)
			if current <= seen || atomic.CompareAndSwapInt32(f.maxSeen, seen, current) {
				break
			}
		}
		defer atomic.AddInt32(f.inFlight, -1)
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func task(name string, adapter *fakeAdapter) Task {
	return Task{
		Descriptor: &registry.SourceDescriptor{Name: name, BaseInterval: time.Hour},
		Adapter:    adapter,
	}
}

func candidate(source, ref string) types.RawCandidate {
	return types.RawCandidate{Source: source, Reference: ref}
}

func TestCollect_AllSucceed(t *testing.T) {
	c := New()
	results, errs := c.Collect(context.Background(), []Task{
		task("a", &fakeAdapter{candidates: []types.RawCandidate{candidate("a", "A-1")}}),
		task("b", &fakeAdapter{candidates: []types.RawCandidate{candidate("b", "B-1"), candidate("b", "B-2")}}),
	})

	assert.Empty(t, errs)
	require.Len(t, results, 2)

	total := 0
	for _, r := range results {
		total += len(r.Batch.Candidates)
	}
	assert.Equal(t, 3, total)
}

func TestCollect_PartialFailureIsolation(t *testing.T) {
	// N of M sources fail; the rest must still deliver their batches.
	c := New()
	results, errs := c.Collect(context.Background(), []Task{
		task("good-1", &fakeAdapter{candidates: []types.RawCandidate{candidate("good-1", "G-1")}}),
		task("bad", &fakeAdapter{err: fmt.Errorf("connection refused")}),
		task("good-2", &fakeAdapter{candidates: []types.RawCandidate{candidate("good-2", "G-2")}}),
		task("worse", &fakeAdapter{err: fmt.Errorf("http 500")}),
	})

	require.Len(t, results, 2)
	require.Len(t, errs, 2)

	failed := map[string]bool{}
	for _, e := range errs {
		failed[e.Source] = true
	}
	assert.True(t, failed["bad"])
	assert.True(t, failed["worse"])

	for _, r := range results {
		assert.NotEmpty(t, r.Batch.Candidates, "successful batches are untouched by sibling failures")
	}
}

func TestCollect_SlowSourceTimesOutWithoutBlockingOthers(t *testing.T) {
	c := New()
	c.SourceTimeout = 50 * time.Millisecond

	start := time.Now()
	results, errs := c.Collect(context.Background(), []Task{
		task("slow", &fakeAdapter{delay: 5 * time.Second}),
		task("fast", &fakeAdapter{candidates: []types.RawCandidate{candidate("fast", "F-1")}}),
	})
	elapsed := time.Since(start)

	require.Len(t, results, 1)
	assert.Equal(t, "fast", results[0].Batch.Source)
	require.Len(t, errs, 1)
	assert.Equal(t, "slow", errs[0].Source)
	assert.ErrorIs(t, errs[0], context.DeadlineExceeded)
	assert.Less(t, elapsed, 2*time.Second, "the timed-out source must not block the cycle")
}

func TestCollect_BoundedConcurrency(t *testing.T) {
	var inFlight, maxSeen int32
	c := New()
	c.MaxInFlight = 2

	var tasks []Task
	for i := 0; i < 8; i++ {
		tasks = append(tasks, task(fmt.Sprintf("s%d", i), &fakeAdapter{
			delay:    20 * time.Millisecond,
			inFlight: &inFlight,
			maxSeen:  &maxSeen,
		}))
	}

	results, errs := c.Collect(context.Background(), tasks)
	assert.Empty(t, errs)
	assert.Len(t, results, 8)
	assert.LessOrEqual(t, maxSeen, int32(2), "in-flight fetches must respect the cap")
}

func TestCollect_EmptyTaskList(t *testing.T) {
	c := New()
	results, errs := c.Collect(context.Background(), nil)
	assert.Empty(t, results)
	assert.Empty(t, errs)
}

func TestCollect_ConcurrentAppendsAreSafe(t *testing.T) {
	c := New()
	c.MaxInFlight = 16

	var tasks []Task
	for i := 0; i < 32; i++ {
		tasks = append(tasks, task(fmt.Sprintf("s%d", i), &fakeAdapter{
			candidates: []types.RawCandidate{candidate(fmt.Sprintf("s%d", i), "R")},
		}))
	}

	results, errs := c.Collect(context.Background(), tasks)
	assert.Empty(t, errs)
	assert.Len(t, results, 32)
}
