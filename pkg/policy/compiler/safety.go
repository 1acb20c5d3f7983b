package compiler

import (
	"fmt"
	"sort"

	"mercator-hq/europa/pkg/epl/ast"
	eplerrors "mercator-hq/europa/pkg/epl/errors"
)

// checkClauseSafety verifies that every variable used in the clause head or
// under negation is bound somewhere in the clause body. Binding positions
// are: some-declaration variables, assignment targets, and variables in
// reference index position inside non-negated literals (bound by
// enumeration at evaluation time).
func checkClauseSafety(rs *RuleSet, clause *ast.Rule, el *eplerrors.ErrorList) {
	for c := clause; c != nil; c = c.Else {
		bound := bindingVars(c.Body, nil)

		report := func(unsafe map[string]ast.Location) {
			// Sorted for deterministic error order.
			names := make([]string, 0, len(unsafe))
			for name := range unsafe {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				el.Add(&eplerrors.Error{
					Type:       eplerrors.ErrorTypeUnresolved,
					Message:    fmt.Sprintf("variable %q is unsafe (used but never bound)", name),
					RulePath:   rs.Path,
					Location:   unsafe[name],
					Suggestion: fmt.Sprintf("bind %q with \"some %s in <collection>\" or \"%s := <expr>\"", name, name, name),
				})
			}
		}

		// Head terms may only use body-bound variables.
		unsafe := make(map[string]ast.Location)
		collectUnboundVars(c.Key, bound, unsafe)
		collectUnboundVars(c.Value, bound, unsafe)

		// Negated literals cannot bind; everything they mention must be
		// bound elsewhere in the body.
		for _, lit := range c.Body {
			if lit.Negated {
				collectUnboundVars(lit.Term, bound, unsafe)
			}
		}

		// Nested comprehension scopes check separately.
		checkComprehensionSafety(c.Body, bound, unsafe)

		report(unsafe)
	}
}

// bindingVars returns names the body can bind, seeded with the outer scope.
func bindingVars(body []*ast.Literal, outer map[string]bool) map[string]bool {
	bound := make(map[string]bool, len(outer))
	for name := range outer {
		bound[name] = true
	}
	for _, lit := range body {
		switch lit.Kind {
		case ast.AssignLiteral:
			bound[lit.Var] = true
		case ast.SomeLiteral:
			for _, v := range lit.SomeVars {
				bound[v] = true
			}
		}
		if lit.Negated {
			continue
		}
		for _, t := range []*ast.Term{lit.Term, lit.SomeIn} {
			ast.WalkTerms(t, func(term *ast.Term) {
				if term.Kind != ast.RefTerm {
					return
				}
				for _, arg := range term.RefArgs {
					if arg.Kind == ast.VarTerm && arg.Var != "_" {
						bound[arg.Var] = true
					}
				}
			})
		}
	}
	return bound
}

// collectUnboundVars records variables in t that are not in bound. It does
// not descend into comprehensions, which introduce their own scope and are
// handled by checkComprehensionSafety.
func collectUnboundVars(t *ast.Term, bound map[string]bool, unsafe map[string]ast.Location) {
	if t == nil {
		return
	}
	switch t.Kind {
	case ast.VarTerm:
		if t.Var != "_" && !bound[t.Var] {
			if _, ok := unsafe[t.Var]; !ok {
				unsafe[t.Var] = t.Location
			}
		}
	case ast.RefTerm:
		for _, arg := range t.RefArgs {
			collectUnboundVars(arg, bound, unsafe)
		}
	case ast.BinaryTerm:
		collectUnboundVars(t.LHS, bound, unsafe)
		collectUnboundVars(t.RHS, bound, unsafe)
	case ast.UnaryTerm:
		collectUnboundVars(t.Operand, bound, unsafe)
	case ast.CallTerm:
		for _, arg := range t.Args {
			collectUnboundVars(arg, bound, unsafe)
		}
	case ast.ArrayTerm, ast.SetTerm:
		for _, e := range t.Elems {
			collectUnboundVars(e, bound, unsafe)
		}
	case ast.ObjectTerm:
		for _, e := range t.Entries {
			collectUnboundVars(e.Key, bound, unsafe)
			collectUnboundVars(e.Value, bound, unsafe)
		}
	}
}

// checkComprehensionSafety validates comprehension heads against the union
// of the outer scope and the comprehension's own body bindings.
func checkComprehensionSafety(body []*ast.Literal, outer map[string]bool, unsafe map[string]ast.Location) {
	var walkTerm func(*ast.Term)
	walkTerm = func(t *ast.Term) {
		ast.WalkTerms(t, func(term *ast.Term) {
			switch term.Kind {
			case ast.ArrayComprehensionTerm, ast.SetComprehensionTerm:
				inner := bindingVars(term.Body, outer)
				collectUnboundVars(term.Head, inner, unsafe)
				checkComprehensionSafety(term.Body, inner, unsafe)
			case ast.ObjectComprehensionTerm:
				inner := bindingVars(term.Body, outer)
				collectUnboundVars(term.Key, inner, unsafe)
				collectUnboundVars(term.Value, inner, unsafe)
				checkComprehensionSafety(term.Body, inner, unsafe)
			}
		})
	}
	for _, lit := range body {
		if lit.Term != nil {
			walkTerm(lit.Term)
		}
		if lit.SomeIn != nil {
			walkTerm(lit.SomeIn)
		}
	}
}
