package pipeline

import (
	"context"
	"fmt"
	"time"
)

// DefaultPollInterval is how often the watch loop re-checks source due-ness.
// Individual sources fetch far less often; the poll just drives the clock.
const DefaultPollInterval = 15 * time.Minute

// Watch drives discovery cycles until the context is cancelled. Each tick
// runs one cycle; sources that are not due contribute nothing to it. A
// failed cycle is logged and the loop keeps going.
func Watch(ctx context.Context, opts Options, poll time.Duration, onReport func(*Report)) error {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if opts.Retry == nil {
		opts.Retry = NewRetryQueue()
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	// Run one cycle immediately rather than waiting a full interval.
	runOnce(ctx, opts, onReport)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runOnce(ctx, opts, onReport)
		}
	}
}

func runOnce(ctx context.Context, opts Options, onReport func(*Report)) {
	report, err := RunCycle(ctx, opts)
	if err != nil {
		fmt.Printf("Warning: cycle failed: %v\n", err)
		return
	}
	if onReport != nil {
		onReport(report)
	}
}
