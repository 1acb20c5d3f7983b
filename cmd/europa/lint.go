package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mercator-hq/europa/pkg/cli"
	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/epl/ast"
	eplerrors "mercator-hq/europa/pkg/epl/errors"
	"mercator-hq/europa/pkg/epl/parser"
	"mercator-hq/europa/pkg/policy/compiler"
	"mercator-hq/europa/pkg/policy/source"
)

var lintFlags struct {
	file   string
	dir    string
	data   string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate policy files",
	Long: `Validate EPL policy files for syntax and compile errors.

The lint command parses every policy file and compiles the set together,
reporting:
  - Syntax errors with source context
  - Conflicting or duplicate rule definitions
  - Unsafe variables and unresolved references
  - Rule dependency cycles
  - Unknown built-in functions and arity mismatches

Examples:
  # Lint a single file
  europa lint --file policy.epl

  # Lint a policy directory
  europa lint --dir policies/

  # JSON output for CI
  europa lint --dir policies/ --format json`,
	RunE: lintPolicies,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "policy file to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of policy files")
	lintCmd.Flags().StringVar(&lintFlags.data, "data", "", "external data JSON file")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// LintIssue is one reported problem, serialized for --format json.
type LintIssue struct {
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// LintResult is the overall lint outcome.
type LintResult struct {
	Valid  bool        `json:"valid"`
	Files  int         `json:"files"`
	Rules  int         `json:"rules"`
	Issues []LintIssue `json:"issues,omitempty"`
}

func lintPolicies(cmd *cobra.Command, args []string) error {
	path := lintFlags.file
	if path == "" {
		path = lintFlags.dir
	}
	if path == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	bundle, err := source.NewFileSource(path, slog.New(slog.NewTextHandler(io.Discard, nil))).Load(context.Background())
	if err != nil {
		return cli.NewCommandError("lint", err)
	}

	result := LintResult{Valid: true, Files: len(bundle.Files)}

	var modules []*ast.Module
	for _, f := range bundle.Files {
		module, err := parser.Parse(f.Name, f.Source)
		if err != nil {
			result.Issues = append(result.Issues, issuesFromError(f.Name, err)...)
			continue
		}
		modules = append(modules, module)
	}

	// Compile only when every file parsed; compile errors carry their own
	// file locations.
	if len(result.Issues) == 0 {
		data, err := loadData()
		if err != nil {
			return cli.NewCommandError("lint", err)
		}
		policy, err := compiler.Compile(modules, data)
		if err != nil {
			result.Issues = append(result.Issues, issuesFromError("", err)...)
		} else {
			result.Rules = len(policy.Paths)
		}
	}

	result.Valid = len(result.Issues) == 0

	if lintFlags.format == "json" {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, result); err != nil {
			return err
		}
	} else {
		printLintText(result)
	}

	if !result.Valid {
		return fmt.Errorf("%d issue(s) found", len(result.Issues))
	}
	return nil
}

func loadData() (*document.Value, error) {
	if lintFlags.data == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(lintFlags.data)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	v, err := document.FromJSONString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid data document: %w", err)
	}
	return &v, nil
}

func issuesFromError(file string, err error) []LintIssue {
	var list *eplerrors.ErrorList
	if errors.As(err, &list) {
		issues := make([]LintIssue, 0, list.Count())
		for _, e := range list.Errors {
			issues = append(issues, issueFrom(file, e))
		}
		return issues
	}

	var single *eplerrors.Error
	if errors.As(err, &single) {
		return []LintIssue{issueFrom(file, single)}
	}

	return []LintIssue{{File: file, Type: "error", Message: err.Error()}}
}

func issueFrom(file string, e *eplerrors.Error) LintIssue {
	issue := LintIssue{
		File:    file,
		Type:    string(e.Type),
		Message: e.Message,
		Detail:  e.Context,
	}
	if e.Location.IsValid() {
		if issue.File == "" {
			issue.File = e.Location.File
		}
		issue.Line = e.Location.Line
		issue.Column = e.Location.Column
	}
	return issue
}

func printLintText(result LintResult) {
	if result.Valid {
		color.Green("✓ %d file(s) valid, %d rule(s) compiled", result.Files, result.Rules)
		return
	}

	for _, issue := range result.Issues {
		loc := issue.File
		if issue.Line > 0 {
			loc = fmt.Sprintf("%s:%d:%d", issue.File, issue.Line, issue.Column)
		}
		color.Red("✗ [%s] %s", issue.Type, loc)
		fmt.Printf("  %s\n", issue.Message)
		if issue.Detail != "" {
			fmt.Print(issue.Detail)
		}
	}
	color.Red("\n%d issue(s) found in %d file(s)", len(result.Issues), result.Files)
}
