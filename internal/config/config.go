// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amizuno/winscope/internal/types"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	Sources string `json:"sources,omitempty"` // Path to the source catalog JSON

	// Operator profile used for scoring. May also live in its own file
	// referenced by ProfilePath.
	Profile     *types.OperatorProfile `json:"profile,omitempty"`
	ProfilePath string                 `json:"profile_path,omitempty"`

	// Scoring
	QualificationThreshold float64 `json:"qualification_threshold,omitempty"` // Minimum score to enter the pipeline
	JudgeRequestsPerMinute int     `json:"judge_requests_per_minute,omitempty"`

	// Cycle tuning
	MaxInFlight         int `json:"max_in_flight,omitempty"`         // Concurrent source fetch cap
	SourceTimeoutSecs   int `json:"source_timeout_secs,omitempty"`   // Per-source fetch timeout
	CycleTimeoutSecs    int `json:"cycle_timeout_secs,omitempty"`    // Whole-cycle timeout
	PollIntervalMinutes int `json:"poll_interval_minutes,omitempty"` // Watch mode tick

	// Behavior
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	UseBrowser  bool   `json:"use_browser,omitempty"`  // Use headless browser for SPA portals
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	ServerAddr  string `json:"server_addr,omitempty"`  // Listen address for serve mode
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.Profile != nil && c.ProfilePath != "" {
		return fmt.Errorf("config error: 'profile' and 'profile_path' are mutually exclusive")
	}

	if c.QualificationThreshold < 0 || c.QualificationThreshold > 100 {
		return fmt.Errorf("config error: 'qualification_threshold' must be between 0 and 100")
	}
	if c.MaxInFlight < 0 {
		return fmt.Errorf("config error: 'max_in_flight' must be non-negative")
	}
	if c.SourceTimeoutSecs < 0 {
		return fmt.Errorf("config error: 'source_timeout_secs' must be non-negative")
	}
	if c.CycleTimeoutSecs < 0 {
		return fmt.Errorf("config error: 'cycle_timeout_secs' must be non-negative")
	}
	if c.PollIntervalMinutes < 0 {
		return fmt.Errorf("config error: 'poll_interval_minutes' must be non-negative")
	}

	// Validate file paths exist (if specified)
	if c.Sources != "" {
		if _, err := os.Stat(c.Sources); os.IsNotExist(err) {
			return fmt.Errorf("config error: source catalog not found: %s", c.Sources)
		}
	}
	if c.ProfilePath != "" {
		if _, err := os.Stat(c.ProfilePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: profile file not found: %s", c.ProfilePath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Sources == "" {
		result.Sources = defaults.Sources
	}
	if result.ProfilePath == "" {
		result.ProfilePath = defaults.ProfilePath
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ServerAddr == "" {
		result.ServerAddr = defaults.ServerAddr
	}
	if result.Profile == nil {
		result.Profile = defaults.Profile
	}

	// Numeric fields: use default if zero
	if result.QualificationThreshold == 0 {
		result.QualificationThreshold = defaults.QualificationThreshold
	}
	if result.JudgeRequestsPerMinute == 0 {
		result.JudgeRequestsPerMinute = defaults.JudgeRequestsPerMinute
	}
	if result.MaxInFlight == 0 {
		result.MaxInFlight = defaults.MaxInFlight
	}
	if result.SourceTimeoutSecs == 0 {
		result.SourceTimeoutSecs = defaults.SourceTimeoutSecs
	}
	if result.CycleTimeoutSecs == 0 {
		result.CycleTimeoutSecs = defaults.CycleTimeoutSecs
	}
	if result.PollIntervalMinutes == 0 {
		result.PollIntervalMinutes = defaults.PollIntervalMinutes
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// LoadProfile resolves the operator profile from the config, reading
// ProfilePath when the profile is not inline. The profile is validated
// before being returned.
func (c *Config) LoadProfile() (*types.OperatorProfile, error) {
	profile := c.Profile

	if profile == nil {
		if c.ProfilePath == "" {
			return nil, fmt.Errorf("no operator profile configured")
		}
		data, err := os.ReadFile(c.ProfilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read profile %s: %w", c.ProfilePath, err)
		}
		profile = &types.OperatorProfile{}
		if err := json.Unmarshal(data, profile); err != nil {
			return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
		}
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}
