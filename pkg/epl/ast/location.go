package ast

import "fmt"

// Location represents the source location of an AST node in the policy text.
type Location struct {
	File   string // Name given to the policy source (may be empty)
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based)
}

// String returns a human-readable representation of the location.
// Format: "file:line:column".
func (l Location) String() string {
	file := l.File
	if file == "" {
		file = "<policy>"
	}
	return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
}

// IsValid returns true if the location carries line information.
func (l Location) IsValid() bool {
	return l.Line > 0
}
