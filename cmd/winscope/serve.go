package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amizuno/winscope/internal/server"
)

var (
	serveConfigPath string
	serveAddr       string
	serveVerbose    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the pipeline's query surface, on-demand scans, and guarded stage transitions.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (host:port)")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Print detailed debug information")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadMergedConfig(serveConfigPath, serveVerbose)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.ServerAddr = serveAddr
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = serveVerbose
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	// The server owns its database connection; the cycle options built here
	// provide the registry, scheduler, and scoring engine for on-demand scans.
	cycleOpts, database, err := buildCycleOptions(context.Background(), cfg)
	if err != nil {
		return err
	}
	if database != nil {
		database.Close()
	}
	cycleOpts.Store = nil

	srv, err := server.New(server.Config{
		Addr:        cfg.ServerAddr,
		DatabaseURL: cfg.DatabaseURL,
		Cycle:       cycleOpts,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
