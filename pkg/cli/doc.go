// Package cli provides shared helpers for europa's command-line interface:
// typed command errors, output formatting, and signal handling.
package cli
