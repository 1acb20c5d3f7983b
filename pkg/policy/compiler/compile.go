package compiler

import (
	"fmt"
	"sort"
	"strings"

	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/epl/ast"
	eplerrors "mercator-hq/europa/pkg/epl/errors"
)

// Compile resolves, groups, and checks the given modules against the
// optional external data document (nil means no data was supplied).
// On failure it returns an *errors.ErrorList accumulating every problem
// found; the policy result is nil in that case.
func Compile(modules []*ast.Module, data *document.Value) (*Policy, error) {
	el := eplerrors.NewErrorList()

	policy := &Policy{Rules: make(map[string]*RuleSet)}
	if data != nil {
		policy.Data = *data
		policy.DataDefined = true
	}

	// Pass 1: resolve references module by module, then group clauses by
	// the path they define.
	for _, module := range modules {
		resolveModule(module, el)
		groupModule(policy, module, el)
	}
	if el.HasErrors() {
		return nil, el
	}

	policy.Paths = make([]string, 0, len(policy.Rules))
	for path := range policy.Rules {
		policy.Paths = append(policy.Paths, path)
	}
	sort.Strings(policy.Paths)

	policy.Root = buildTrie(policy.Rules)

	// Pass 2: structural conflicts that need the full rule map.
	checkPathPrefixes(policy, el)
	checkUnconditionalConflicts(policy, el)

	// Pass 3: per-clause safety and reference resolution against the
	// complete rule map and external data.
	for _, path := range policy.Paths {
		rs := policy.Rules[path]
		for _, clause := range rs.Clauses {
			checkClauseSafety(rs, clause, el)
			checkClauseReferences(policy, rs, clause, el)
			checkClauseTypes(rs, clause, el)
			checkClauseCalls(rs, clause, el)
		}
	}

	// Pass 4: dependency cycles.
	if !el.HasErrors() {
		checkRecursion(policy, el)
	}

	if el.HasErrors() {
		return nil, el
	}
	return policy, nil
}

// groupModule partitions one module's clauses into the policy's rule sets
// and links defaults, reporting grouping-level conflicts.
func groupModule(policy *Policy, module *ast.Module, el *eplerrors.ErrorList) {
	pkgPath := "data." + module.Package.String()

	for _, rule := range module.Rules {
		path := pkgPath + "." + rule.Name

		rs := policy.Rules[path]
		if rs == nil {
			rs = &RuleSet{Path: path, Name: rule.Name, Kind: rule.Kind}
			policy.Rules[path] = rs
		}

		if rule.Default {
			if rs.HasDefault {
				el.Add(&eplerrors.Error{
					Type:     eplerrors.ErrorTypeConflict,
					Message:  fmt.Sprintf("multiple default values for rule %q", rule.Name),
					RulePath: path,
					Location: rule.Location,
				})
				continue
			}
			val, ok := GroundValue(rule.Value)
			if !ok {
				el.Add(&eplerrors.Error{
					Type:       eplerrors.ErrorTypeType,
					Message:    fmt.Sprintf("default value for rule %q must be a constant", rule.Name),
					RulePath:   path,
					Location:   rule.Value.Location,
					Suggestion: "default values may not contain variables or references",
				})
				continue
			}
			rs.HasDefault = true
			rs.DefaultValue = val
			continue
		}

		if len(rs.Clauses) > 0 && rs.Kind != rule.Kind {
			el.Add(&eplerrors.Error{
				Type: eplerrors.ErrorTypeConflict,
				Message: fmt.Sprintf("rule %q defined as both %s and %s",
					rule.Name, rs.Kind, rule.Kind),
				RulePath: path,
				Location: rule.Location,
			})
			continue
		}
		if len(rs.Clauses) == 0 {
			rs.Kind = rule.Kind
		}
		rs.Clauses = append(rs.Clauses, rule)
	}

	// Default on a partial rule makes no sense: partial paths are always
	// defined (possibly empty collection).
	for _, rule := range module.Rules {
		if !rule.Default {
			continue
		}
		path := pkgPath + "." + rule.Name
		rs := policy.Rules[path]
		if rs != nil && len(rs.Clauses) > 0 && rs.Kind != ast.CompleteRule && rs.HasDefault {
			el.Add(&eplerrors.Error{
				Type:     eplerrors.ErrorTypeConflict,
				Message:  fmt.Sprintf("default declared for %s rule %q", rs.Kind, rule.Name),
				RulePath: path,
				Location: rule.Location,
			})
		}
	}

}

// checkUnconditionalConflicts rejects complete rules with more than one
// unconditional clause: with no guard to distinguish them, both would claim
// the path's single value. Runs over the whole policy so definitions split
// across modules of the same package are caught too.
func checkUnconditionalConflicts(policy *Policy, el *eplerrors.ErrorList) {
	for _, path := range policy.Paths {
		rs := policy.Rules[path]
		if rs.Kind != ast.CompleteRule {
			continue
		}
		var first *ast.Rule
		for _, clause := range rs.Clauses {
			if clause.HasBody() {
				continue
			}
			if first == nil {
				first = clause
				continue
			}
			el.Add(&eplerrors.Error{
				Type: eplerrors.ErrorTypeConflict,
				Message: fmt.Sprintf("complete rule %q has conflicting unconditional definitions (first at %s)",
					clause.Name, first.Location.String()),
				RulePath:   path,
				Location:   clause.Location,
				Suggestion: "guard all but one definition with \"if <condition>\"",
			})
		}
	}
}

// checkPathPrefixes rejects a rule path that is a strict prefix of another
// rule path: the shorter rule's value would shadow the longer rule's
// position in the document tree.
func checkPathPrefixes(policy *Policy, el *eplerrors.ErrorList) {
	for i, shorter := range policy.Paths {
		for _, longer := range policy.Paths[i+1:] {
			if !strings.HasPrefix(longer, shorter+".") {
				continue
			}
			rs := policy.Rules[longer]
			loc := ast.Location{}
			if len(rs.Clauses) > 0 {
				loc = rs.Clauses[0].Location
			}
			el.Add(&eplerrors.Error{
				Type:     eplerrors.ErrorTypeConflict,
				Message:  fmt.Sprintf("rule path %s is shadowed by rule %s", longer, shorter),
				RulePath: longer,
				Location: loc,
			})
		}
	}
}
