package main

import (
	"context"
	"os"

	"github.com/aretw0/ivy/internal/cli"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Replay a scenario and print the bound tree after every step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{
			EngineOptions: engineOptions(cmd),
			Path:          args[0],
		}
		opts.Trace, _ = cmd.Flags().GetBool("trace")
		opts.Quiet, _ = cmd.Flags().GetBool("quiet")
		opts.Pretty = isTerminal(os.Stdout)
		if cmd.Flags().Changed("pretty") {
			opts.Pretty, _ = cmd.Flags().GetBool("pretty")
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()
		return cli.Execute(ctx, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("pretty", false, "Render frames with glamour (default: when stdout is a terminal)")
	runCmd.Flags().Bool("trace", false, "Trace render host calls on stderr")
	runCmd.Flags().BoolP("quiet", "q", false, "Print the final frame only")
}
