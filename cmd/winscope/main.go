// Package main provides the entry point for the WinScope CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "winscope",
	Short: "Government procurement opportunity discovery pipeline",
	Long:  "WinScope discovers procurement opportunities across configured sources, deduplicates and scores them against an operator profile, and tracks qualified opportunities through the bid lifecycle.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
