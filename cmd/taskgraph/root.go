package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/taskgraph"
	"github.com/aretw0/taskgraph/internal/cli"
	"github.com/aretw0/taskgraph/pkg/consumer"
	"github.com/aretw0/taskgraph/pkg/ports"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskgraph",
	Short: "Taskgraph runs fragments through declarative task graphs",
	Long: `Taskgraph processes fragments of a request through task graphs declared in a
configuration file. Each node runs an action and picks the next node from the
transition the action returns.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "taskgraph.yaml", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().String("tools", "", "Tools file; when set, process actions may only run listed tools")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	rootCmd.PersistentFlags().Bool("debug", false, "Log every node the engine enters and leaves")
	rootCmd.PersistentFlags().StringSlice("redact", []string{"(?i)(password|secret|token|authorization)"},
		"Key patterns masked in events kept or streamed by the servers")
}

// loggerFromFlags builds the logger selected by the persistent flags.
func loggerFromFlags(cmd *cobra.Command) (*slog.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	asJSON, _ := cmd.Flags().GetBool("log-json")
	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		level = "debug"
	}
	return cli.NewLogger(level, asJSON)
}

// redactFromFlags wraps consumers that expose events outside the process.
func redactFromFlags(cmd *cobra.Command, consumers ...ports.EventsConsumer) ([]ports.EventsConsumer, error) {
	patterns, _ := cmd.Flags().GetStringSlice("redact")
	out := make([]ports.EventsConsumer, 0, len(consumers))
	for _, c := range consumers {
		r, err := consumer.Redact(c, patterns...)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// engineFromFlags loads the configuration named by the persistent flags.
func engineFromFlags(cmd *cobra.Command, logger *slog.Logger, consumers ...ports.EventsConsumer) (*taskgraph.Engine, error) {
	configPath, _ := cmd.Flags().GetString("config")
	toolsPath, _ := cmd.Flags().GetString("tools")
	debug, _ := cmd.Flags().GetBool("debug")

	engine, _, err := cli.NewEngine(cli.EngineOptions{
		ConfigPath: configPath,
		ToolsPath:  toolsPath,
		Debug:      debug,
		Consumers:  consumers,
	}, logger)
	return engine, err
}
