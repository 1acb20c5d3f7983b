package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "europa",
	Short: "Europa - policy decision service for the EPL rule language",
	Long: `Europa is a policy decision service built around the EPL rule language.

It compiles declarative policies into an immutable decision tree and answers
queries over JSON input documents, providing:
  - A backtracking evaluation engine with negation and defaults
  - Atomic hot reload from file or git policy sources
  - An HTTP evaluation API with health and metrics endpoints
  - A persistent decision log with retention sweeps`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
