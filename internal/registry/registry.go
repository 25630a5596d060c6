// Package registry provides the catalog of procurement sources the pipeline
// monitors, including each source's scraping parameters and the mutable
// scheduling state the adaptive scheduler maintains for it.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/amizuno/winscope/internal/schemas"
)

// Strategy selects how a source is fetched.
type Strategy string

// Fetch strategies supported by the adapter registry.
const (
	StrategyRestAPI Strategy = "rest_api"
	StrategyHTML    Strategy = "html"
	StrategyGrants  Strategy = "grants"
)

// SourceDescriptor holds one source's identity, fetch parameters, and the
// scheduling state mutated after each fetch attempt. The registry owns these
// exclusively; only the scheduler should touch the scheduling fields.
type SourceDescriptor struct {
	Name         string            `json:"name"`
	Endpoint     string            `json:"endpoint"`
	Strategy     Strategy          `json:"strategy"`
	BaseInterval time.Duration     `json:"-"`
	Codes        []string          `json:"codes,omitempty"`
	Keywords     []string          `json:"keywords,omitempty"`
	Selectors    map[string]string `json:"selectors,omitempty"`
	APIKeyEnv    string            `json:"api_key_env,omitempty"`
	UseBrowser   bool              `json:"use_browser,omitempty"`

	// Scheduling state. Zero LastFetch means never fetched.
	LastFetch           time.Time `json:"-"`
	AvgYield            float64   `json:"-"`
	SuccessRate         float64   `json:"-"`
	FetchCount          int       `json:"-"`
	ConsecutiveFailures int       `json:"-"`
}

// APIKey resolves the source's API key from its configured environment
// variable. Empty when no auth is configured.
func (d *SourceDescriptor) APIKey() string {
	if d.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(d.APIKeyEnv)
}

// sourceFile mirrors the JSON catalog layout on disk.
type sourceFile struct {
	Name              string            `json:"name"`
	Endpoint          string            `json:"endpoint"`
	Strategy          string            `json:"strategy"`
	BaseIntervalHours float64           `json:"base_interval_hours"`
	Codes             []string          `json:"codes,omitempty"`
	Keywords          []string          `json:"keywords,omitempty"`
	Selectors         map[string]string `json:"selectors,omitempty"`
	APIKeyEnv         string            `json:"api_key_env,omitempty"`
	UseBrowser        bool              `json:"use_browser,omitempty"`
}

type catalogFile struct {
	Sources []sourceFile `json:"sources"`
}

// Registry is the catalog of configured sources, keyed by name.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*SourceDescriptor
}

// Load reads and validates the source catalog from a JSON file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source catalog %s: %w", path, err)
	}

	if err := schemas.ValidateSourceCatalog(data); err != nil {
		return nil, fmt.Errorf("source catalog %s failed validation: %w", path, err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse source catalog %s: %w", path, err)
	}

	return FromDescriptors(descriptorsFromFile(file))
}

func descriptorsFromFile(file catalogFile) []*SourceDescriptor {
	descriptors := make([]*SourceDescriptor, 0, len(file.Sources))
	for _, s := range file.Sources {
		descriptors = append(descriptors, &SourceDescriptor{
			Name:         s.Name,
			Endpoint:     s.Endpoint,
			Strategy:     Strategy(s.Strategy),
			BaseInterval: time.Duration(s.BaseIntervalHours * float64(time.Hour)),
			Codes:        s.Codes,
			Keywords:     s.Keywords,
			Selectors:    s.Selectors,
			APIKeyEnv:    s.APIKeyEnv,
			UseBrowser:   s.UseBrowser,
		})
	}
	return descriptors
}

// FromDescriptors builds a registry from already-constructed descriptors.
func FromDescriptors(descriptors []*SourceDescriptor) (*Registry, error) {
	sources := make(map[string]*SourceDescriptor, len(descriptors))
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("source descriptor missing name")
		}
		if _, exists := sources[d.Name]; exists {
			return nil, fmt.Errorf("duplicate source name: %s", d.Name)
		}
		if d.BaseInterval <= 0 {
			return nil, fmt.Errorf("source %s: base interval must be positive", d.Name)
		}
		sources[d.Name] = d
	}
	return &Registry{sources: sources}, nil
}

// Get returns the descriptor for a source name.
func (r *Registry) Get(name string) (*SourceDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.sources[name]
	return d, ok
}

// All returns every descriptor in stable name order.
func (r *Registry) All() []*SourceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*SourceDescriptor, 0, len(r.sources))
	for _, d := range r.sources {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of configured sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}
