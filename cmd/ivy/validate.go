package main

import (
	"fmt"

	"github.com/aretw0/ivy/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenario.yaml>...",
	Short: "Check scenarios for consistency",
	Long:  `Parses each scenario and reports unknown references, operations and invalid expressions.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			if _, err := cli.LoadScenario(path); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
