package main

import (
	"fmt"

	"github.com/aretw0/taskgraph/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that every task compiles and every action builds",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := loggerFromFlags(cmd)
		if err != nil {
			return err
		}
		engine, err := engineFromFlags(cmd, logger)
		if err != nil {
			return err
		}

		report := validator.Validate(engine)
		fmt.Fprint(cmd.OutOrStdout(), report.String())
		if !report.Valid() {
			return fmt.Errorf("configuration is invalid: %w", report.Err())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
