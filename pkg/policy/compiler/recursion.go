package compiler

import (
	"fmt"
	"sort"
	"strings"

	"mercator-hq/europa/pkg/epl/ast"
	eplerrors "mercator-hq/europa/pkg/epl/errors"
)

// depEdge is one rule-to-rule dependency. Negated marks dependencies that
// occur under "not": a cycle through such an edge is non-monotonic and is
// rejected even among partial rules.
type depEdge struct {
	to      string
	negated bool
}

// checkRecursion rejects dependency cycles involving any complete rule and
// non-monotonic cycles among partial rules. Monotonic partial-rule cycles
// are permitted: the evaluator resolves them by fixpoint iteration, bounded
// by input cardinality.
func checkRecursion(policy *Policy, el *eplerrors.ErrorList) {
	graph := make(map[string][]depEdge, len(policy.Rules))
	for _, path := range policy.Paths {
		graph[path] = collectDeps(policy, policy.Rules[path])
	}

	for _, scc := range stronglyConnected(policy.Paths, graph) {
		inCycle := len(scc) > 1
		if !inCycle {
			// Single node: cyclic only with a self-edge.
			for _, e := range graph[scc[0]] {
				if e.to == scc[0] {
					inCycle = true
					break
				}
			}
		}
		if !inCycle {
			continue
		}

		member := make(map[string]bool, len(scc))
		for _, p := range scc {
			member[p] = true
		}

		var completePath string
		negated := false
		for _, p := range scc {
			if policy.Rules[p].Kind == ast.CompleteRule {
				completePath = p
			}
			for _, e := range graph[p] {
				if member[e.to] && e.negated {
					negated = true
				}
			}
		}

		sorted := append([]string(nil), scc...)
		sort.Strings(sorted)
		cycle := strings.Join(sorted, " -> ")

		switch {
		case completePath != "":
			el.Add(&eplerrors.Error{
				Type:       eplerrors.ErrorTypeRecursion,
				Message:    fmt.Sprintf("complete rule depends on itself: %s", cycle),
				RulePath:   completePath,
				Location:   firstClauseLocation(policy.Rules[completePath]),
				Suggestion: "break the cycle or restructure as a partial rule",
			})
		case negated:
			el.Add(&eplerrors.Error{
				Type:     eplerrors.ErrorTypeRecursion,
				Message:  fmt.Sprintf("partial rules form a cycle through negation: %s", cycle),
				RulePath: sorted[0],
				Location: firstClauseLocation(policy.Rules[sorted[0]]),
			})
		}
	}
}

func firstClauseLocation(rs *RuleSet) ast.Location {
	if len(rs.Clauses) > 0 {
		return rs.Clauses[0].Location
	}
	return ast.Location{}
}

// collectDeps extracts the rule paths a rule set's clauses reference.
// A reference whose static prefix stops at a package node depends on every
// rule below that node.
func collectDeps(policy *Policy, rs *RuleSet) []depEdge {
	var edges []depEdge

	addRef := func(term *ast.Term, negated bool) {
		if term.Kind != ast.RefTerm || term.RefHead != "data" {
			return
		}
		node := policy.Root
		segs := staticPrefix(term)
		for _, seg := range segs[1:] {
			if node.RuleSet != nil {
				break
			}
			node = node.Child(seg)
			if node == nil {
				return
			}
		}
		addSubtree(node, negated, &edges)
	}

	var walkTerm func(t *ast.Term, negated bool)
	var walkBody func(body []*ast.Literal, negated bool)

	walkTerm = func(t *ast.Term, negated bool) {
		if t == nil {
			return
		}
		addRef(t, negated)
		switch t.Kind {
		case ast.RefTerm:
			for _, a := range t.RefArgs {
				walkTerm(a, negated)
			}
		case ast.BinaryTerm:
			walkTerm(t.LHS, negated)
			walkTerm(t.RHS, negated)
		case ast.UnaryTerm:
			walkTerm(t.Operand, negated)
		case ast.CallTerm:
			for _, a := range t.Args {
				walkTerm(a, negated)
			}
		case ast.ArrayTerm, ast.SetTerm:
			for _, e := range t.Elems {
				walkTerm(e, negated)
			}
		case ast.ObjectTerm:
			for _, e := range t.Entries {
				walkTerm(e.Key, negated)
				walkTerm(e.Value, negated)
			}
		case ast.ArrayComprehensionTerm, ast.SetComprehensionTerm:
			walkTerm(t.Head, negated)
			walkBody(t.Body, negated)
		case ast.ObjectComprehensionTerm:
			walkTerm(t.Key, negated)
			walkTerm(t.Value, negated)
			walkBody(t.Body, negated)
		}
	}

	walkBody = func(body []*ast.Literal, negated bool) {
		for _, lit := range body {
			walkTerm(lit.Term, negated || lit.Negated)
			walkTerm(lit.SomeIn, negated)
		}
	}

	for _, clause := range rs.Clauses {
		for c := clause; c != nil; c = c.Else {
			walkTerm(c.Key, false)
			walkTerm(c.Value, false)
			walkBody(c.Body, false)
		}
	}
	return edges
}

func addSubtree(node *Node, negated bool, edges *[]depEdge) {
	if node == nil {
		return
	}
	if node.RuleSet != nil {
		*edges = append(*edges, depEdge{to: node.RuleSet.Path, negated: negated})
		return
	}
	for _, name := range node.ChildNames() {
		addSubtree(node.Children[name], negated, edges)
	}
}

// stronglyConnected computes SCCs with Tarjan's algorithm. Node order is the
// sorted path list, keeping component output deterministic.
func stronglyConnected(paths []string, graph map[string][]depEdge) [][]string {
	index := make(map[string]int, len(paths))
	lowlink := make(map[string]int, len(paths))
	onStack := make(map[string]bool, len(paths))
	var stack []string
	var counter int
	var result [][]string

	var strongconnect func(v string)
	strongconnect = func(v string) {
		index[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range graph[v] {
			w := e.to
			if _, seen := index[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] && index[w] < lowlink[v] {
				lowlink[v] = index[w]
			}
		}

		if lowlink[v] == index[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			result = append(result, scc)
		}
	}

	for _, v := range paths {
		if _, seen := index[v]; !seen {
			strongconnect(v)
		}
	}
	return result
}
