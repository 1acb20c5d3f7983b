package compiler

import (
	"fmt"

	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/epl/ast"
	eplerrors "mercator-hq/europa/pkg/epl/errors"
)

// resolveModule rewrites import aliases and same-package rule names into
// fully-qualified input/data references, so evaluation only deals with the
// two document roots and body-local variables.
func resolveModule(module *ast.Module, el *eplerrors.ErrorList) {
	aliases := make(map[string][]string)
	for _, imp := range module.Imports {
		name := imp.Name()
		if _, ok := aliases[name]; ok {
			el.Add(&eplerrors.Error{
				Type:       eplerrors.ErrorTypeConflict,
				Message:    fmt.Sprintf("duplicate import name %q", name),
				Location:   imp.Location,
				Suggestion: "use \"as\" to give one of the imports a distinct alias",
			})
			continue
		}
		aliases[name] = imp.Path
	}

	ruleNames := make(map[string]bool)
	for _, rule := range module.Rules {
		ruleNames[rule.Name] = true
	}
	pkgSegments := module.Package.Path

	r := &resolver{aliases: aliases, ruleNames: ruleNames, pkg: pkgSegments}
	for _, rule := range module.Rules {
		for clause := rule; clause != nil; clause = clause.Else {
			locals := collectLocals(clause.Body)
			r.rewriteTerm(clause.Key, locals)
			r.rewriteTerm(clause.Value, locals)
			r.rewriteBody(clause.Body, locals)
		}
	}
}

type resolver struct {
	aliases   map[string][]string
	ruleNames map[string]bool
	pkg       []string
}

// collectLocals gathers every variable name the body can bind, including
// names bound inside nested comprehension bodies. Locals shadow imports and
// rule names.
func collectLocals(body []*ast.Literal) map[string]bool {
	locals := make(map[string]bool)
	var walkLits func([]*ast.Literal)
	walkLits = func(lits []*ast.Literal) {
		for _, lit := range lits {
			switch lit.Kind {
			case ast.AssignLiteral:
				locals[lit.Var] = true
			case ast.SomeLiteral:
				for _, v := range lit.SomeVars {
					locals[v] = true
				}
			}
			for _, t := range []*ast.Term{lit.Term, lit.SomeIn} {
				ast.WalkTerms(t, func(term *ast.Term) {
					switch term.Kind {
					case ast.ArrayComprehensionTerm, ast.SetComprehensionTerm, ast.ObjectComprehensionTerm:
						walkLits(term.Body)
					case ast.RefTerm:
						// A variable in index position is bound by
						// enumeration during evaluation.
						for _, arg := range term.RefArgs {
							if arg.Kind == ast.VarTerm {
								locals[arg.Var] = true
							}
						}
					}
				})
			}
		}
	}
	walkLits(body)
	return locals
}

func (r *resolver) rewriteBody(body []*ast.Literal, locals map[string]bool) {
	for _, lit := range body {
		r.rewriteTerm(lit.Term, locals)
		r.rewriteTerm(lit.SomeIn, locals)
	}
}

// rewriteTerm qualifies var and ref heads in place.
func (r *resolver) rewriteTerm(t *ast.Term, locals map[string]bool) {
	if t == nil {
		return
	}
	ast.WalkTerms(t, func(term *ast.Term) {
		switch term.Kind {
		case ast.VarTerm:
			r.qualify(term, term.Var, nil, locals)
		case ast.RefTerm:
			r.qualify(term, term.RefHead, term.RefArgs, locals)
		case ast.ArrayComprehensionTerm, ast.SetComprehensionTerm, ast.ObjectComprehensionTerm:
			r.rewriteBody(term.Body, locals)
		}
	})
}

// qualify rewrites one var/ref head according to scope: body locals win,
// then the two document roots, then import aliases, then same-package rule
// names. Anything else is left for the safety pass to flag.
func (r *resolver) qualify(term *ast.Term, head string, args []*ast.Term, locals map[string]bool) {
	if locals[head] || head == "_" {
		return
	}

	switch head {
	case "input", "data":
		if term.Kind == ast.VarTerm {
			*term = ast.Term{Kind: ast.RefTerm, RefHead: head, Location: term.Location}
		}
		return
	}

	if path, ok := r.aliases[head]; ok {
		r.replaceRef(term, path, args)
		return
	}

	if r.ruleNames[head] {
		path := append(append([]string{"data"}, r.pkg...), head)
		r.replaceRef(term, path, args)
		return
	}
}

func (r *resolver) replaceRef(term *ast.Term, path []string, args []*ast.Term) {
	newArgs := make([]*ast.Term, 0, len(path)-1+len(args))
	for _, seg := range path[1:] {
		newArgs = append(newArgs, &ast.Term{
			Kind:     ast.StringTerm,
			Str:      seg,
			Location: term.Location,
		})
	}
	newArgs = append(newArgs, args...)
	*term = ast.Term{
		Kind:     ast.RefTerm,
		RefHead:  path[0],
		RefArgs:  newArgs,
		Location: term.Location,
	}
}

// checkClauseReferences verifies that every data reference in the clause can
// resolve: its static path prefix must land on a rule path, inside a rule
// path's subtree, or inside the external data document.
func checkClauseReferences(policy *Policy, rs *RuleSet, clause *ast.Rule, el *eplerrors.ErrorList) {
	check := func(term *ast.Term) {
		if term.Kind != ast.RefTerm || term.RefHead != "data" {
			return
		}
		if resolvesToRule(policy, term) || resolvesToData(policy, term) {
			return
		}
		el.Add(&eplerrors.Error{
			Type:       eplerrors.ErrorTypeUnresolved,
			Message:    fmt.Sprintf("undefined reference %s", term.String()),
			RulePath:   rs.Path,
			Location:   term.Location,
			Suggestion: "define a rule at this path or supply it in the external data document",
		})
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

// staticPrefix returns the leading string segments of a data ref, stopping
// at the first computed (non-string) argument.
func staticPrefix(term *ast.Term) []string {
	segs := []string{"data"}
	for _, arg := range term.RefArgs {
		if arg.Kind != ast.StringTerm {
			break
		}
		segs = append(segs, arg.Str)
	}
	return segs
}

// resolvesToRule reports whether the ref's static prefix reaches a rule path
// or a package prefix of rule paths.
func resolvesToRule(policy *Policy, term *ast.Term) bool {
	node := policy.Root
	segs := staticPrefix(term)
	for _, seg := range segs[1:] {
		if node.RuleSet != nil {
			// Prefix passes through a rule: the remainder indexes into
			// that rule's result, which is a runtime concern.
			return true
		}
		node = node.Child(seg)
		if node == nil {
			return false
		}
	}
	return true
}

// resolvesToData reports whether the ref's static prefix navigates into the
// external data document. Navigation stops (and succeeds) at the first
// non-object value: indexing beyond it is a runtime concern.
func resolvesToData(policy *Policy, term *ast.Term) bool {
	if !policy.DataDefined {
		return false
	}
	current := policy.Data
	segs := staticPrefix(term)
	for _, seg := range segs[1:] {
		if current.Kind() != document.KindObject {
			return true
		}
		next, ok := current.Field(seg)
		if !ok {
			return false
		}
		current = next
	}
	return true
}
