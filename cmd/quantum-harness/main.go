// Package main is the entry point for the quantum-harness CLI tool.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Minapak/SwiftQuantum/internal/config"
	"github.com/Minapak/SwiftQuantum/internal/telemetry"
)

// Version information set at build time.
var (
	version    = "1.0.0"
	apiVersion = "2025-05-01"
)

// Global flags.
var (
	configFile string
	verbose    bool
	reportPath string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quantum-harness",
		Short: "Integration test harness for IBM Quantum cloud services",
		Long: `quantum-harness drives a live end-to-end check of the IBM Quantum
cloud stack: IAM authentication, service instance discovery, backend
selection, Bell circuit submission, and result verification. Every run
writes a machine-readable JSON report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML config file")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose output")
	root.PersistentFlags().StringVar(&reportPath, "report", "", "Report output path (overrides config)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newBackendsCmd())
	root.AddCommand(newCompileCmd())

	return root
}

// loadConfig builds the effective configuration: defaults, then the optional
// config file, then global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if reportPath != "" {
		cfg.Report.Path = reportPath
	}
	return cfg, nil
}

// newLogger returns the process logger: JSON to stderr, or human-readable
// text at debug level when --verbose is set.
func newLogger() *slog.Logger {
	if verbose {
		return telemetry.NewTextLogger(os.Stderr, slog.LevelDebug)
	}
	return telemetry.NewLogger(os.Stderr, slog.LevelInfo)
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
