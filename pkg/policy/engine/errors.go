package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies evaluation failures for callers that branch on them.
type ErrorKind string

const (
	// ErrUndefinedPath means the query path addresses neither a rule nor
	// external data.
	ErrUndefinedPath ErrorKind = "undefined_path"
	// ErrNotLoaded means evaluation was attempted before a policy load.
	ErrNotLoaded ErrorKind = "policy_not_loaded"
	// ErrInputDecode means the input document could not be parsed.
	ErrInputDecode ErrorKind = "input_decode"
	// ErrInternal covers invariant violations, such as a non-converging
	// partial rule.
	ErrInternal ErrorKind = "internal"
)

// Error is the engine's evaluation error.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// KindOf extracts the ErrorKind from err, or "" when err is not an engine
// error.
func KindOf(err error) ErrorKind {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}
