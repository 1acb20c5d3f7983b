package compiler

import (
	"fmt"

	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/epl/ast"
	eplerrors "mercator-hq/europa/pkg/epl/errors"
)

// checkClauseTypes constant-folds binary operations whose operands are both
// ground and flags kind mismatches at compile time. Non-ground operands are
// a runtime concern: an incompatible comparison there fails the literal
// rather than erroring, per the skip-body-on-failure rule.
func checkClauseTypes(rs *RuleSet, clause *ast.Rule, el *eplerrors.ErrorList) {
	check := func(term *ast.Term) {
		if term.Kind != ast.BinaryTerm {
			return
		}
		lhs, lok := GroundValue(term.LHS)
		rhs, rok := GroundValue(term.RHS)
		if !lok || !rok {
			return
		}

		switch term.Op {
		case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpRem:
			if lhs.Kind() != document.KindNumber || rhs.Kind() != document.KindNumber {
				el.Add(&eplerrors.Error{
					Type: eplerrors.ErrorTypeType,
					Message: fmt.Sprintf("operator %q requires numbers, found %s and %s",
						term.Op, lhs.Kind(), rhs.Kind()),
					RulePath: rs.Path,
					Location: term.Location,
				})
			}
		case ast.OpLess, ast.OpLessEqual, ast.OpGreater, ast.OpGreaterEqual:
			if lhs.Kind() != rhs.Kind() {
				el.Add(&eplerrors.Error{
					Type: eplerrors.ErrorTypeType,
					Message: fmt.Sprintf("cannot order %s against %s",
						lhs.Kind(), rhs.Kind()),
					RulePath: rs.Path,
					Location: term.Location,
				})
			}
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
