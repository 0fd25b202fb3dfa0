package main

import (
	"fmt"

	"github.com/aretw0/ivy/internal/cli"
	"github.com/aretw0/ivy/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <scenario.yaml>",
	Short: "Export the scenario data flow",
	Long:  `Outputs a Mermaid diagram (graph LR) of the scenario's records, sequences, derivations and tree.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := cli.LoadScenario(args[0])
		if err != nil {
			return err
		}
		var overlay *graph.GraphOverlay
		if written, _ := cmd.Flags().GetBool("written"); written {
			overlay = &graph.GraphOverlay{Written: graph.WrittenBy(sc)}
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(sc, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("written", false, "Highlight observables written by the steps")
}
