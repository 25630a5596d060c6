// Package sources implements the per-portal fetch adapters. Every portal
// exposes the same narrow Adapter contract; the differences in navigation and
// parsing live inside each implementation, selected by strategy.
package sources

import (
	"context"

	"github.com/amizuno/winscope/internal/registry"
	"github.com/amizuno/winscope/internal/types"
)

// Adapter performs the actual fetch for one source. Implementations must
// respect the caller-supplied deadline and must not treat empty results as
// an error; an error means the fetch itself failed.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, d *registry.SourceDescriptor) ([]types.RawCandidate, error)
}

// Options tunes adapter behavior shared across strategies.
type Options struct {
	UseBrowser bool // Allow headless-browser fallback for SPA portals
	Verbose    bool
}

// ForDescriptor returns the adapter matching the descriptor's strategy.
// Unknown strategies fall back to the generic HTML portal adapter.
func ForDescriptor(d *registry.SourceDescriptor, opts Options) Adapter {
	switch d.Strategy {
	case registry.StrategyRestAPI:
		return NewSAMGovAdapter(d.Name, opts)
	case registry.StrategyGrants:
		return NewGrantsAdapter(d.Name, opts)
	default:
		return NewPortalAdapter(d.Name, opts)
	}
}
