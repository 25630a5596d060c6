package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amizuno/winscope/internal/db"
	"github.com/amizuno/winscope/internal/observability"
	"github.com/amizuno/winscope/internal/types"
)

var advanceCmd = &cobra.Command{
	Use:   "advance <opportunity-id> <stage>",
	Short: "Advance a pipeline record to its next stage",
	Long: `Moves a tracked opportunity forward one lifecycle stage. Reaching won or
lost records the outcome in the learning ledger. Use --correct to move a
record backward; corrections require a reason and are logged as manual
interventions.`,
	Args: cobra.ExactArgs(2),
	RunE: runAdvance,
}

var (
	advanceReason     string
	advanceBid        float64
	advanceWinningBid float64
	advanceNote       string
	advanceCorrect    bool
	advanceDBURL      string
)

func init() {
	advanceCmd.Flags().StringVar(&advanceReason, "reason", "", "Decision reason (required for no_bid and corrections)")
	advanceCmd.Flags().Float64Var(&advanceBid, "bid", 0, "Bid amount in dollars")
	advanceCmd.Flags().Float64Var(&advanceWinningBid, "winning-bid", 0, "Winning bid amount, when known")
	advanceCmd.Flags().StringVar(&advanceNote, "note", "", "Free-form note to attach")
	advanceCmd.Flags().BoolVar(&advanceCorrect, "correct", false, "Treat this as a backward correction")
	advanceCmd.Flags().StringVar(&advanceDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	rootCmd.AddCommand(advanceCmd)
}

func runAdvance(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	id, stage := args[0], types.Stage(args[1])
	if !stage.Valid() {
		return fmt.Errorf("unknown stage: %s", args[1])
	}

	dbURL := advanceDBURL
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	database, err := db.Connect(ctx, dbURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if stage == types.StageNoBid && advanceReason == "" {
		return fmt.Errorf("--reason is required when declining to bid")
	}

	var record *types.PipelineRecord
	if advanceCorrect {
		record, err = database.CorrectStage(ctx, id, stage, advanceReason)
	} else {
		record, err = database.AdvanceStage(ctx, id, stage, db.AdvanceOptions{
			Reason:     advanceReason,
			BidAmount:  advanceBid,
			WinningBid: advanceWinningBid,
			Note:       advanceNote,
		})
	}
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintRecord(record)
	return nil
}
