package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/taskgraph"
	"github.com/aretw0/taskgraph/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process fragment batches read from stdin or a file",
	Long: `Reads one or more JSON batches of the form {"request": {...}, "fragments": [...]}
and prints one result per fragment. Terminals get a readable summary, pipes
get one JSON event per line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := loggerFromFlags(cmd)
		if err != nil {
			return err
		}
		engine, err := engineFromFlags(cmd, logger)
		if err != nil {
			return err
		}

		input, _ := cmd.Flags().GetString("input")
		forceJSON, _ := cmd.Flags().GetBool("json")

		var in io.Reader = os.Stdin
		if input != "" && input != "-" {
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()
			in = f
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := taskgraph.NewRunner()
		runner.Input = in
		runner.Output = os.Stdout
		runner.Renderer = cli.Renderer(os.Stdout, forceJSON)
		return runner.Run(ctx, engine)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("input", "i", "", "File with JSON batches (default stdin)")
	runCmd.Flags().Bool("json", false, "Always print JSON lines")
}
