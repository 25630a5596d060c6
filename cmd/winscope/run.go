package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amizuno/winscope/internal/observability"
	"github.com/amizuno/winscope/internal/pipeline"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run one discovery cycle end-to-end",
	Long: `Fetches every due source concurrently, merges and scores the results,
persists qualified opportunities, and prints a cycle report.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runCycleCmd,
}

var (
	runConfigPath string
	runSources    string
	runThreshold  float64
	runForceAll   bool
	runUseBrowser bool
	runVerbose    bool
	runAPIKey     string
	runDBURL      string
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runSources, "sources", "s", "", "Path to the source catalog JSON")
	runCommand.Flags().Float64Var(&runThreshold, "threshold", 0, "Qualification score threshold (0-100)")
	runCommand.Flags().BoolVar(&runForceAll, "force", false, "Fetch every source regardless of schedule")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", false, "Use headless browser for SPA portals (requires Chrome)")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for pipeline persistence
	runCommand.Flags().StringVar(&runDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runCycleCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadMergedConfig(runConfigPath, runVerbose)
	if err != nil {
		return err
	}

	// CLI overrides: only apply flags that were explicitly set
	if cmd.Flags().Changed("sources") {
		cfg.Sources = runSources
	}
	if cmd.Flags().Changed("threshold") {
		cfg.QualificationThreshold = runThreshold
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = runUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDBURL
	}

	opts, database, err := buildCycleOptions(ctx, cfg)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}
	opts.ForceAll = runForceAll

	report, err := pipeline.RunCycle(ctx, opts)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintCycleReport(report)
	if cfg.Verbose {
		printer.PrintScored(report.Scored)
	}
	if report.NewlyQualified > 0 {
		fmt.Printf("\n%d opportunit(ies) newly qualified\n", report.NewlyQualified)
	}
	return nil
}
