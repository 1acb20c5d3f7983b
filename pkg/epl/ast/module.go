package ast

import "strings"

// Module is the root of a parsed EPL source file: one package declaration,
// zero or more imports, and the rule clauses in source order.
type Module struct {
	Package  *Package
	Imports  []*Import
	Rules    []*Rule
	Filename string
}

// Package is the module's package declaration, e.g. "package authz.api"
// with Path ["authz", "api"].
type Package struct {
	Path     []string
	Location Location
}

// String returns the dotted package path.
func (p *Package) String() string {
	return strings.Join(p.Path, ".")
}

// Import brings a document path into scope, optionally under an alias:
// "import data.roles as roles".
type Import struct {
	Path     []string // full path including the "data" or "input" root
	Alias    string   // defaults to the last path segment
	Location Location
}

// Name returns the identifier the import binds in rule bodies.
func (i *Import) Name() string {
	if i.Alias != "" {
		return i.Alias
	}
	return i.Path[len(i.Path)-1]
}

// RuleKind distinguishes complete rules from the two partial rule shapes.
type RuleKind int

const (
	// CompleteRule yields a single value; the first satisfied clause wins.
	CompleteRule RuleKind = iota
	// PartialSetRule contributes elements to a set across all bindings.
	PartialSetRule
	// PartialObjectRule contributes key/value pairs across all bindings.
	PartialObjectRule
)

// String returns a human-readable rule kind name.
func (k RuleKind) String() string {
	switch k {
	case CompleteRule:
		return "complete"
	case PartialSetRule:
		return "partial set"
	case PartialObjectRule:
		return "partial object"
	default:
		return "unknown"
	}
}

// Rule is one rule clause as written in source. Multiple clauses may share a
// name; the compiler groups them under one document path.
//
// Shapes:
//
//	default name := <value>           Default=true, Value=<value>
//	name if <body>                    CompleteRule, Value=nil (implicitly true)
//	name := <value> if <body>         CompleteRule
//	name contains <elem> if <body>    PartialSetRule, Key=<elem>
//	name[<key>] := <value> if <body>  PartialObjectRule
//
// A clause with no body is unconditional. Else links an alternative clause
// tried when this clause's body has no satisfying binding.
type Rule struct {
	Name     string
	Kind     RuleKind
	Default  bool
	Key      *Term // partial set element / partial object key
	Value    *Term // head value; nil means boolean true
	Body     []*Literal
	Else     *Rule
	Location Location
}

// HasBody reports whether the clause is guarded by a body.
func (r *Rule) HasBody() bool {
	return len(r.Body) > 0
}

// LiteralKind distinguishes body literal forms.
type LiteralKind int

const (
	// ExprLiteral is a plain expression that must evaluate truthy.
	ExprLiteral LiteralKind = iota
	// AssignLiteral binds a variable: x := <expr>.
	AssignLiteral
	// SomeLiteral declares iteration: some x in <collection> or
	// some k, v in <collection>.
	SomeLiteral
)

// Literal is one element of a rule body or comprehension body.
type Literal struct {
	Kind     LiteralKind
	Negated  bool // "not" prefix; valid for ExprLiteral only
	Term     *Term
	Var      string // AssignLiteral target
	SomeVars []string
	SomeIn   *Term
	Location Location
}
