package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/europa/pkg/cli"
	"mercator-hq/europa/pkg/policy/session"
	"mercator-hq/europa/pkg/policy/source"
)

var evalFlags struct {
	policy string
	data   string
	input  string
	query  string
	format string
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a query against a policy once",
	Long: `Evaluate a query path against a policy and print the decision.

The input document is given inline as JSON, read from a file with @path,
or read from stdin with "-". An omitted input evaluates against null.

Examples:
  # Inline input
  europa eval --policy ./policies --query data.authz.allow \
      --input '{"user": {"role": "admin"}}'

  # Input from a file
  europa eval --policy policy.epl --query data.authz --input @input.json

  # Input from stdin
  cat input.json | europa eval --policy ./policies --input -`,
	RunE: evalPolicy,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalFlags.policy, "policy", "p", "", "policy file or directory (required)")
	evalCmd.Flags().StringVar(&evalFlags.data, "data", "", "external data JSON file (overrides data.json from the policy directory)")
	evalCmd.Flags().StringVarP(&evalFlags.input, "input", "i", "", "input document: inline JSON, @file, or - for stdin")
	evalCmd.Flags().StringVarP(&evalFlags.query, "query", "q", session.DefaultQueryPath, "query path to evaluate")
	evalCmd.Flags().StringVar(&evalFlags.format, "format", "json", "output format: json, raw")
	_ = evalCmd.MarkFlagRequired("policy")
}

func evalPolicy(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	bundle, err := source.NewFileSource(evalFlags.policy, logger).Load(context.Background())
	if err != nil {
		return cli.NewCommandError("eval", err)
	}

	dataJSON := bundle.DataJSON
	if evalFlags.data != "" {
		raw, err := os.ReadFile(evalFlags.data)
		if err != nil {
			return cli.NewCommandError("eval", fmt.Errorf("failed to read data file: %w", err))
		}
		dataJSON = string(raw)
	}

	sess := session.New(session.WithLogger(logger))
	if err := sess.LoadFiles(bundle.Files, dataJSON, evalFlags.query); err != nil {
		return cli.NewCommandError("eval", err)
	}

	inputJSON, err := readInput(evalFlags.input)
	if err != nil {
		return cli.NewCommandError("eval", err)
	}

	out, err := sess.EvaluateToText(context.Background(), inputJSON)
	if err != nil {
		return cli.NewCommandError("eval", err)
	}

	if evalFlags.format == "raw" {
		fmt.Println(out)
		return nil
	}

	// Re-indent for readability.
	var pretty json.RawMessage = []byte(out)
	return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, pretty)
}

// readInput resolves the --input flag into an input JSON document.
func readInput(flag string) (string, error) {
	switch {
	case flag == "":
		return "null", nil
	case flag == "-":
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(raw), nil
	case strings.HasPrefix(flag, "@"):
		raw, err := os.ReadFile(flag[1:])
		if err != nil {
			return "", fmt.Errorf("failed to read input file: %w", err)
		}
		return string(raw), nil
	default:
		return flag, nil
	}
}
