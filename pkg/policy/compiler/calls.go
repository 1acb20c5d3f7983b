package compiler

import (
	"fmt"

	"mercator-hq/europa/pkg/epl/ast"
	eplerrors "mercator-hq/europa/pkg/epl/errors"
	"mercator-hq/europa/pkg/policy/builtins"
)

// checkClauseCalls verifies that every function call names a registered
// builtin with the right number of arguments. EPL has no user-defined
// functions, so anything outside the registry is unresolvable.
func checkClauseCalls(rs *RuleSet, clause *ast.Rule, el *eplerrors.ErrorList) {
	check := func(term *ast.Term) {
		if term.Kind != ast.CallTerm {
			return
		}
		b, ok := builtins.Lookup(term.Func)
		if !ok {
			el.Add(&eplerrors.Error{
				Type:     eplerrors.ErrorTypeUnresolved,
				Message:  fmt.Sprintf("unknown function %q", term.Func),
				RulePath: rs.Path,
				Location: term.Location,
			})
			return
		}
		if len(term.Args) != b.Arity {
			el.Add(&eplerrors.Error{
				Type: eplerrors.ErrorTypeType,
				Message: fmt.Sprintf("function %q expects %d arguments, found %d",
					term.Func, b.Arity, len(term.Args)),
				RulePath: rs.Path,
				Location: term.Location,
			})
		}
	}

	for c := clause; c != nil; c = c.Else {
		ast.WalkTerms(c.Key, check)
		ast.WalkTerms(c.Value, check)
		for _, lit := range c.Body {
			ast.WalkTerms(lit.Term, check)
			ast.WalkTerms(lit.SomeIn, check)
		}
	}
}
