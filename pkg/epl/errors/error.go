package errors

import (
	"fmt"
	"strings"

	"mercator-hq/europa/pkg/epl/ast"
)

// ErrorType categorizes an error encountered during parsing or compilation.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // malformed EPL source
	ErrorTypeConflict   ErrorType = "conflict"   // conflicting complete-rule definitions
	ErrorTypeUnresolved ErrorType = "unresolved" // undefined reference or unsafe variable
	ErrorTypeRecursion  ErrorType = "recursion"  // complete-rule dependency cycle
	ErrorTypeType       ErrorType = "type"       // compile-time type error
)

// Error represents a rich error with location, context, and suggestion.
type Error struct {
	Type       ErrorType    // Category of error
	Message    string       // Error message
	RulePath   string       // Dotted rule path, when the error is rule-scoped
	Location   ast.Location // Source location
	Context    string       // Surrounding lines of source
	Suggestion string       // Suggested fix (optional)
}

// Error implements the error interface. It returns a formatted message with
// location, context, and suggestion.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s\n", e.Type, e.Message))

	if e.RulePath != "" {
		sb.WriteString(fmt.Sprintf("  rule: %s\n", e.RulePath))
	}

	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("  --> %s\n", e.Location.String()))
	}

	if e.Context != "" {
		sb.WriteString("  |\n")
		sb.WriteString(e.Context)
		sb.WriteString("  |\n")
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  = suggestion: %s\n", e.Suggestion))
	}

	return sb.String()
}

// ErrorList accumulates multiple errors found in one compile pass.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{Errors: make([]*Error, 0)}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new error with the given parameters.
func (el *ErrorList) AddError(errType ErrorType, message string, location ast.Location) {
	el.Add(&Error{Type: errType, Message: message, Location: location})
}

// HasErrors returns true if the list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of accumulated errors.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// HasErrorType returns true if at least one error of the given type exists.
func (el *ErrorList) HasErrorType(errType ErrorType) bool {
	for _, err := range el.Errors {
		if err.Type == errType {
			return true
		}
	}
	return false
}

// Error implements the error interface, formatting all accumulated errors.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("found %d error(s):\n\n", el.Count()))

	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("error %d:\n", i+1))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// ToError returns nil if the list is empty, otherwise the list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}
