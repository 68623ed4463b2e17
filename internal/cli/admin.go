package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator commands (require --admin-key)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if cfg.AdminKey == "" {
				return fmt.Errorf("--admin-key is required")
			}
			return nil
		},
	}

	cmd.AddCommand(newAdminTokenCmd())
	cmd.AddCommand(newAdminFailuresCmd())
	cmd.AddCommand(newAdminResolveCmd())

	return cmd
}

func newAdminTokenCmd() *cobra.Command {
	var operator, user string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a player token and save it for play",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"operator_id": operator, "user_id": user}
			var result TokenResult

			if err := client.Post("/api/v1/admin/tokens", req, &result); err != nil {
				return err
			}

			// Save token
			if err := cfg.SaveToken(result.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&operator, "operator", "", "Operator ID (required)")
	cmd.Flags().StringVar(&user, "user", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("operator")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newAdminFailuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "failures",
		Short: "List payouts the ledger has not accepted",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result CreditFailuresResult

			if err := client.Get("/api/v1/admin/credit-failures", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newAdminResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <round_id>",
		Short: "Mark a credit failure as reconciled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/admin/credit-failures/" + url.PathEscape(args[0]) + "/resolve"
			if err := client.Post(path, nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Resolved credit failure for round " + args[0])
			return nil
		},
	}
}

func newHashKeyCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-key <admin_key>",
		Short: "Print the bcrypt hash to set as MINES_ADMIN_API_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), cost)
			if err != nil {
				return fmt.Errorf("failed to hash key: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(string(hash))
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	return cmd
}
