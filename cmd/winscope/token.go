package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amizuno/winscope/internal/config"
	"github.com/amizuno/winscope/internal/server"
)

var tokenOperator string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API token for the guarded endpoints",
	Long:  `Generates a signed bearer token from JWT_SECRET for use against the scan and stage-transition endpoints.`,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOperator, "operator", "operator", "Operator name embedded in the token")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(_ *cobra.Command, _ []string) error {
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(tokenOperator)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
