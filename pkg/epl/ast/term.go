package ast

import (
	"strings"

	"mercator-hq/europa/pkg/document"
)

// TermKind identifies the expression variant a Term holds.
type TermKind int

const (
	NullTerm TermKind = iota
	BoolTerm
	NumberTerm
	StringTerm
	VarTerm
	RefTerm
	ArrayTerm
	ObjectTerm
	SetTerm
	BinaryTerm
	UnaryTerm
	CallTerm
	ArrayComprehensionTerm
	SetComprehensionTerm
	ObjectComprehensionTerm
)

// Operator enumerates binary operators in precedence groups: membership and
// comparison bind loosest, then additive, then multiplicative.
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpIn           Operator = "in"
	OpAdd          Operator = "+"
	OpSub          Operator = "-"
	OpMul          Operator = "*"
	OpDiv          Operator = "/"
	OpRem          Operator = "%"
)

// ObjectEntry is one key/value pair of an object literal.
type ObjectEntry struct {
	Key   *Term
	Value *Term
}

// Term is an expression node. Exactly the fields relevant to Kind are set.
type Term struct {
	Kind     TermKind
	Location Location

	// Scalar literals
	Bool   bool
	Number document.Number
	Str    string

	// VarTerm
	Var string

	// RefTerm: Head is the root identifier ("input", "data", an import
	// alias, or a local variable); each arg is a StringTerm for dotted
	// access or an arbitrary term for bracketed access.
	RefHead string
	RefArgs []*Term

	// BinaryTerm
	Op  Operator
	LHS *Term
	RHS *Term

	// UnaryTerm (minus); reuses Operand.
	Operand *Term

	// CallTerm
	Func string
	Args []*Term

	// ArrayTerm / SetTerm elements
	Elems []*Term

	// ObjectTerm entries
	Entries []ObjectEntry

	// Comprehensions: Head (array/set) or Key+Value (object), plus Body.
	Head  *Term
	Key   *Term
	Value *Term
	Body  []*Literal
}

// IsGround reports whether the term contains no variables or references,
// i.e. it denotes a constant document value. Used to validate default values.
func (t *Term) IsGround() bool {
	switch t.Kind {
	case NullTerm, BoolTerm, NumberTerm, StringTerm:
		return true
	case ArrayTerm, SetTerm:
		for _, e := range t.Elems {
			if !e.IsGround() {
				return false
			}
		}
		return true
	case ObjectTerm:
		for _, e := range t.Entries {
			if !e.Key.IsGround() || !e.Value.IsGround() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a compact, approximate source form for error messages.
func (t *Term) String() string {
	switch t.Kind {
	case NullTerm:
		return "null"
	case BoolTerm:
		if t.Bool {
			return "true"
		}
		return "false"
	case NumberTerm:
		return t.Number.String()
	case StringTerm:
		return `"` + t.Str + `"`
	case VarTerm:
		return t.Var
	case RefTerm:
		var sb strings.Builder
		sb.WriteString(t.RefHead)
		for _, arg := range t.RefArgs {
			if arg.Kind == StringTerm {
				sb.WriteByte('.')
				sb.WriteString(arg.Str)
			} else {
				sb.WriteByte('[')
				sb.WriteString(arg.String())
				sb.WriteByte(']')
			}
		}
		return sb.String()
	case BinaryTerm:
		return t.LHS.String() + " " + string(t.Op) + " " + t.RHS.String()
	case UnaryTerm:
		return "-" + t.Operand.String()
	case CallTerm:
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = a.String()
		}
		return t.Func + "(" + strings.Join(args, ", ") + ")"
	case ArrayTerm:
		return "[" + joinTerms(t.Elems) + "]"
	case SetTerm:
		return "{" + joinTerms(t.Elems) + "}"
	case ObjectTerm:
		parts := make([]string, len(t.Entries))
		for i, e := range t.Entries {
			parts[i] = e.Key.String() + ": " + e.Value.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case ArrayComprehensionTerm:
		return "[" + t.Head.String() + " | ...]"
	case SetComprehensionTerm:
		return "{" + t.Head.String() + " | ...}"
	case ObjectComprehensionTerm:
		return "{" + t.Key.String() + ": " + t.Value.String() + " | ...}"
	default:
		return "<term>"
	}
}

func joinTerms(terms []*Term) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// WalkTerms calls fn for t and every term nested inside it, including terms
// inside comprehension bodies.
func WalkTerms(t *Term, fn func(*Term)) {
	if t == nil {
		return
	}
	fn(t)
	switch t.Kind {
	case RefTerm:
		for _, a := range t.RefArgs {
			WalkTerms(a, fn)
		}
	case BinaryTerm:
		WalkTerms(t.LHS, fn)
		WalkTerms(t.RHS, fn)
	case UnaryTerm:
		WalkTerms(t.Operand, fn)
	case CallTerm:
		for _, a := range t.Args {
			WalkTerms(a, fn)
		}
	case ArrayTerm, SetTerm:
		for _, e := range t.Elems {
			WalkTerms(e, fn)
		}
	case ObjectTerm:
		for _, e := range t.Entries {
			WalkTerms(e.Key, fn)
			WalkTerms(e.Value, fn)
		}
	case ArrayComprehensionTerm, SetComprehensionTerm:
		WalkTerms(t.Head, fn)
		walkBody(t.Body, fn)
	case ObjectComprehensionTerm:
		WalkTerms(t.Key, fn)
		WalkTerms(t.Value, fn)
		walkBody(t.Body, fn)
	}
}

func walkBody(body []*Literal, fn func(*Term)) {
	for _, lit := range body {
		WalkTerms(lit.Term, fn)
		WalkTerms(lit.SomeIn, fn)
	}
}
