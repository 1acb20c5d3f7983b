// Package engine evaluates compiled policies against an input document.
//
// Evaluation is top-down with backtracking: rule bodies are satisfied
// literal by literal, unbound variables in reference index position
// enumerate collections, and a failed literal prunes the current binding
// instead of erroring. Rule results are memoized per evaluation call, so
// a rule body runs at most once no matter how many references reach it.
// Partial rules accumulate by fixpoint iteration, which makes monotonic
// recursion through partial rules well defined.
//
// The engine holds no mutable state between calls; one compiled policy may
// be evaluated concurrently from any number of goroutines.
package engine
