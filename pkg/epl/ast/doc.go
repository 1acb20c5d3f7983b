// Package ast defines the abstract syntax tree for EPL (Europa Policy
// Language) modules: package declaration, imports, rule definitions, and the
// expression terms making up rule bodies.
//
// The tree is produced by pkg/epl/parser and consumed by pkg/policy/compiler.
// Nodes carry source locations for error reporting.
package ast
