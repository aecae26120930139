package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/taskgraph"
	"github.com/aretw0/taskgraph/internal/cli"
	"github.com/aretw0/taskgraph/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of taskgraph",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if cli.IsTerminal(out) {
			tui.PrintBanner(out, cli.Profile(out))
		}
		fmt.Fprintf(out, "taskgraph version %s\n", strings.TrimSpace(taskgraph.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
