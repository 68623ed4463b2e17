package cli

import (
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			if err := client.Get("/api/v1/health", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newMultipliersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "multipliers",
		Short: "Show the grid size and payout table",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result MultipliersResult

			if err := client.Get("/api/v1/multipliers", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
