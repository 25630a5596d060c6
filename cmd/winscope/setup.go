package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/amizuno/winscope/internal/config"
	"github.com/amizuno/winscope/internal/db"
	"github.com/amizuno/winscope/internal/llm"
	"github.com/amizuno/winscope/internal/pipeline"
	"github.com/amizuno/winscope/internal/registry"
	"github.com/amizuno/winscope/internal/scheduler"
	"github.com/amizuno/winscope/internal/scoring"
)

// configDefaults are applied after the config file and CLI flags.
var configDefaults = config.Config{
	Sources:                "sources.json",
	QualificationThreshold: scoring.DefaultQualificationThreshold,
	JudgeRequestsPerMinute: 30,
	MaxInFlight:            5,
	SourceTimeoutSecs:      60,
	CycleTimeoutSecs:       600,
	PollIntervalMinutes:    15,
	ServerAddr:             ":8080",
}

// loadMergedConfig loads the optional config file and fills in defaults.
// Environment variables cover the secrets the file should not hold.
func loadMergedConfig(path string, verbose bool) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loaded
		if verbose {
			fmt.Printf("Loaded config from: %s\n", path)
		}
	}

	cfg = cfg.MergeWithDefaults(configDefaults)
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// buildCycleOptions assembles everything one discovery cycle needs. The
// returned database handle is nil when no DATABASE_URL is configured; the
// cycle then runs without persistence.
func buildCycleOptions(ctx context.Context, cfg config.Config) (pipeline.Options, *db.DB, error) {
	var opts pipeline.Options

	reg, err := registry.Load(cfg.Sources)
	if err != nil {
		return opts, nil, fmt.Errorf("failed to load source catalog: %w", err)
	}

	profile, err := cfg.LoadProfile()
	if err != nil {
		return opts, nil, err
	}

	judge, err := buildJudge(ctx, cfg)
	if err != nil {
		return opts, nil, err
	}

	var database *db.DB
	if cfg.DatabaseURL != "" {
		database, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Printf("Warning: failed to connect to database: %v\n", err)
			fmt.Printf("Continuing without persistence...\n")
		} else if err := database.Migrate(ctx); err != nil {
			database.Close()
			return opts, nil, err
		}
	}

	opts = pipeline.Options{
		Registry:               reg,
		Scheduler:              scheduler.New(),
		Engine:                 scoring.NewEngine(profile, judge, cfg.Verbose),
		Retry:                  pipeline.NewRetryQueue(),
		QualificationThreshold: cfg.QualificationThreshold,
		MaxInFlight:            cfg.MaxInFlight,
		SourceTimeout:          time.Duration(cfg.SourceTimeoutSecs) * time.Second,
		CycleTimeout:           time.Duration(cfg.CycleTimeoutSecs) * time.Second,
		UseBrowser:             cfg.UseBrowser,
		Verbose:                cfg.Verbose,
	}
	if database != nil {
		opts.Store = database
	}
	return opts, database, nil
}

// buildJudge wires the semantic judge. Without an API key the judge is a
// fixed neutral score so the other four factors still rank opportunities.
func buildJudge(ctx context.Context, cfg config.Config) (scoring.Judge, error) {
	if cfg.APIKey == "" {
		fmt.Printf("Warning: no API key configured, semantic fit will use a neutral score\n")
		return &scoring.StaticJudge{Score: scoring.NeutralScore}, nil
	}

	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	return scoring.NewLLMJudge(client, cfg.JudgeRequestsPerMinute, cfg.Verbose), nil
}
