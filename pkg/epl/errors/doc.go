// Package errors provides rich error types for EPL parsing and compilation.
//
// Errors carry a source location, optional surrounding source context, and an
// optional suggested fix, so policy authors can find and correct problems
// without reading engine internals.
//
// # Error Types
//
// ErrorTypeSyntax: malformed EPL source (lexer/parser stage)
//
// ErrorTypeConflict: conflicting complete-rule definitions at one path
//
// ErrorTypeUnresolved: reference to an undefined rule path or unsafe variable
//
// ErrorTypeRecursion: dependency cycle among complete rules
//
// ErrorTypeType: type error detectable at compile time
//
// # Accumulation
//
// The compiler reports every problem it finds in one pass via ErrorList;
// the parser stops at the first syntax error and returns no partial AST.
package errors
