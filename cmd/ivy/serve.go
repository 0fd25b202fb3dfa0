package main

import (
	"context"
	"os"

	"github.com/aretw0/ivy/internal/cli"
	"github.com/aretw0/ivy/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [scenario.yaml]",
	Short: "Start the HTTP and websocket server",
	Long: `Starts an engine exposing records and sequences as JSON over HTTP, with websocket
watch streams and Prometheus metrics on /metrics. A scenario, when given, is loaded first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		opts := cli.ServeOptions{
			EngineOptions: engineOptions(cmd),
			Addr:          ":" + port,
		}
		if len(args) > 0 {
			opts.Scenario = args[0]
		}

		if isTerminal(os.Stdout) {
			tui.PrintBanner(cmd.OutOrStdout())
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()
		return cli.Serve(ctx, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
