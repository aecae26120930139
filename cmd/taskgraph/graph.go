package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/taskgraph/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [task]",
	Short: "Export a task graph",
	Long:  `Compiles a task and prints it as a Mermaid diagram (graph TD) or as JSON.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := loggerFromFlags(cmd)
		if err != nil {
			return err
		}
		engine, err := engineFromFlags(cmd, logger)
		if err != nil {
			return err
		}

		name, _ := cmd.Flags().GetString("task")
		if name == "" && len(args) > 0 {
			name = args[0]
		}
		if name == "" {
			tasks := engine.Tasks()
			if len(tasks) != 1 {
				return fmt.Errorf("choose a task with --task: %v", tasks)
			}
			name = tasks[0]
		}

		export, err := engine.Inspect(name)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "mermaid":
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(export, nil))
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(export)
		default:
			return fmt.Errorf("unknown format %q; supported: mermaid, json", format)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("task", "t", "", "Task to export")
	graphCmd.Flags().StringP("format", "f", "mermaid", "Output format: mermaid or json")
}
