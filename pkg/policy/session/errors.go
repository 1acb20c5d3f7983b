package session

import "fmt"

// LoadStage identifies which phase of a load rejected the policy.
type LoadStage string

const (
	// StageParse covers rule-language syntax errors and malformed data
	// documents.
	StageParse LoadStage = "parse"
	// StageCompile covers resolution, conflict, safety, recursion, and
	// type errors.
	StageCompile LoadStage = "compile"
)

// LoadError reports a failed load. The session's previously loaded policy,
// if any, is unaffected.
type LoadError struct {
	Stage LoadStage
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("policy load failed at %s stage: %v", e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
