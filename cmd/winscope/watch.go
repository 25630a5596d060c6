package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amizuno/winscope/internal/observability"
	"github.com/amizuno/winscope/internal/pipeline"
)

var watchCommand = &cobra.Command{
	Use:   "watch",
	Short: "Run discovery cycles continuously",
	Long: `Drives discovery cycles on a fixed poll interval until interrupted.
Sources keep their own adaptive schedules; the poll only decides how often
due-ness is re-checked.`,
	RunE: runWatchCmd,
}

var (
	watchConfigPath string
	watchPollMins   int
	watchUseBrowser bool
	watchVerbose    bool
)

func init() {
	watchCommand.Flags().StringVar(&watchConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	watchCommand.Flags().IntVar(&watchPollMins, "poll", 0, "Minutes between due-ness checks")
	watchCommand.Flags().BoolVar(&watchUseBrowser, "use-browser", false, "Use headless browser for SPA portals (requires Chrome)")
	watchCommand.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Print detailed debug information")
	rootCmd.AddCommand(watchCommand)
}

func runWatchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadMergedConfig(watchConfigPath, watchVerbose)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("poll") {
		cfg.PollIntervalMinutes = watchPollMins
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = watchUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = watchVerbose
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts, database, err := buildCycleOptions(ctx, cfg)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}

	printer := observability.NewPrinter(os.Stdout)
	poll := time.Duration(cfg.PollIntervalMinutes) * time.Minute

	fmt.Printf("Watching %d source(s), polling every %s\n", opts.Registry.Len(), poll)
	err = pipeline.Watch(ctx, opts, poll, func(report *pipeline.Report) {
		printer.PrintCycleReport(report)
	})
	if err == context.Canceled {
		fmt.Printf("Stopped\n")
		return nil
	}
	return err
}
