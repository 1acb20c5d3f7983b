package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mercator-hq/europa/pkg/cli"
	"mercator-hq/europa/pkg/config"
	"mercator-hq/europa/pkg/decisionlog"
	"mercator-hq/europa/pkg/policy/session"
)

var decisionsFlags struct {
	db     string
	limit  int
	format string
}

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Query the decision log",
	Long: `Query recorded evaluation decisions for audit and debugging.

Decisions are listed newest first with their policy version, query path,
input, result, and outcome.

Examples:
  # Last 20 decisions
  europa decisions --db europa-decisions.db

  # Export to JSON
  europa decisions --db europa-decisions.db --limit 100 --format json`,
	RunE: listDecisions,
}

func init() {
	rootCmd.AddCommand(decisionsCmd)

	decisionsCmd.Flags().StringVar(&decisionsFlags.db, "db", config.DefaultDecisionLogPath, "decision log database file")
	decisionsCmd.Flags().IntVar(&decisionsFlags.limit, "limit", 20, "maximum number of decisions")
	decisionsCmd.Flags().StringVar(&decisionsFlags.format, "format", "text", "output format: text, json")
}

func listDecisions(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(decisionsFlags.db); err != nil {
		return cli.NewCommandError("decisions", fmt.Errorf("decision log not found: %w", err))
	}

	store, err := decisionlog.Open(decisionsFlags.db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return cli.NewCommandError("decisions", err)
	}
	defer store.Close()

	ctx := context.Background()
	records, err := store.Recent(ctx, decisionsFlags.limit)
	if err != nil {
		return cli.NewCommandError("decisions", err)
	}
	total, err := store.Count(ctx)
	if err != nil {
		return cli.NewCommandError("decisions", err)
	}

	if decisionsFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, records)
	}

	for _, rec := range records {
		stamp := rec.CreatedAt.Format("2006-01-02 15:04:05")
		switch rec.Outcome {
		case session.OutcomeSuccess:
			color.Green("%s  v%d  %s  %s", stamp, rec.PolicyVersion, rec.QueryPath, rec.Result)
		case session.OutcomeUndefined:
			color.Yellow("%s  v%d  %s  (undefined path)", stamp, rec.PolicyVersion, rec.QueryPath)
		default:
			color.Red("%s  v%d  %s  error: %s", stamp, rec.PolicyVersion, rec.QueryPath, rec.Error)
		}
	}
	fmt.Printf("\n%d of %d decision(s)\n", len(records), total)
	return nil
}
