package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/ivy"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ivy",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ivy version %s\n", strings.TrimSpace(ivy.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
