package cmd

import (
	"fmt"
	"log/slog"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

func TestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run unit tests (driver packages run against the register simulator)",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := test.Test()
			if err != nil {
				return fmt.Errorf("unit tests failed: %w", err)
			}
			return nil
		},
	}
	return cmd
}

func LintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Run linting",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := test.Lint()
			if err != nil {
				return fmt.Errorf("linting failed: %w", err)
			}
			return nil
		},
	}
	return cmd
}

func IntegrationTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integration-test",
		Short: "Run integration tests against a connected debug probe",
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("integration tests expect a CMSIS-DAP probe on USB and will erase the target's inactive bank")
			err := test.Integ()
			if err != nil {
				return fmt.Errorf("integration tests failed: %w", err)
			}
			return nil
		},
	}
	return cmd
}
