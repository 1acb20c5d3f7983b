package errors

import (
	"fmt"
	"strings"

	"mercator-hq/europa/pkg/epl/ast"
)

// ExtractContext extracts the lines surrounding the given location from the
// policy source for error display. It returns a formatted string with line
// numbers and a column indicator under the error line.
func ExtractContext(source string, location ast.Location, contextLines int) string {
	if !location.IsValid() {
		return ""
	}

	lines := strings.Split(source, "\n")

	errorLine := location.Line - 1 // 0-based
	if errorLine < 0 || errorLine >= len(lines) {
		return ""
	}

	startLine := errorLine - contextLines
	endLine := errorLine + contextLines
	if startLine < 0 {
		startLine = 0
	}
	if endLine >= len(lines) {
		endLine = len(lines) - 1
	}

	var sb strings.Builder
	maxLineNumWidth := len(fmt.Sprintf("%d", endLine+1))

	for i := startLine; i <= endLine; i++ {
		lineNumStr := fmt.Sprintf("%*d", maxLineNumWidth, i+1)
		prefix := "  "
		if i == errorLine {
			prefix = "->"
		}

		sb.WriteString(fmt.Sprintf("%s %s | %s\n", prefix, lineNumStr, lines[i]))

		if i == errorLine && location.Column > 0 {
			padding := strings.Repeat(" ", location.Column-1)
			sb.WriteString(fmt.Sprintf("   %s | %s^\n", strings.Repeat(" ", maxLineNumWidth), padding))
		}
	}

	return sb.String()
}

// WithContext fills in the error's Context field from the policy source.
func WithContext(err *Error, source string, contextLines int) *Error {
	if err.Location.IsValid() {
		err.Context = ExtractContext(source, err.Location, contextLines)
	}
	return err
}

// AddContextToList fills in Context for every error in the list.
func AddContextToList(el *ErrorList, source string, contextLines int) {
	for _, err := range el.Errors {
		WithContext(err, source, contextLines)
	}
}
