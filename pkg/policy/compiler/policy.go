package compiler

import (
	"sort"
	"strings"

	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/epl/ast"
)

// Policy is the immutable compiled form of one or more EPL modules plus the
// external data document supplied at load time. It is safe for concurrent
// read access by any number of evaluation calls.
type Policy struct {
	// Rules maps dotted document paths (data.<pkg>.<rule>) to the grouped
	// clauses defining that path.
	Rules map[string]*RuleSet

	// Paths holds the rule paths in sorted order for deterministic
	// iteration.
	Paths []string

	// Root is the rule path trie rooted at "data".
	Root *Node

	// Data is the external data document. Undefined paths fall through to
	// it during evaluation. DataDefined is false when no data was supplied.
	Data        document.Value
	DataDefined bool
}

// RuleSet groups every clause that defines one document path.
type RuleSet struct {
	Path    string
	Name    string
	Kind    ast.RuleKind
	Clauses []*ast.Rule // guarded clauses in source order, defaults excluded

	// HasDefault / DefaultValue carry the linked default for complete
	// rules: the fallback when no clause body is satisfied.
	HasDefault   bool
	DefaultValue document.Value
}

// Node is one level of the rule path trie. A node may simultaneously be a
// package prefix (Children) and never a rule: compilation rejects rule paths
// that prefix other rule paths.
type Node struct {
	Children map[string]*Node
	RuleSet  *RuleSet
}

// Child returns the named child node, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil || n.Children == nil {
		return nil
	}
	return n.Children[name]
}

// ChildNames returns the node's child names in sorted order.
func (n *Node) ChildNames() []string {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildTrie indexes the rule sets under a root node keyed by path segment.
// Paths start with "data"; the root node represents that segment.
func buildTrie(rules map[string]*RuleSet) *Node {
	root := &Node{}
	for path, rs := range rules {
		segments := strings.Split(path, ".")
		node := root
		for _, seg := range segments[1:] { // skip leading "data"
			if node.Children == nil {
				node.Children = make(map[string]*Node)
			}
			child := node.Children[seg]
			if child == nil {
				child = &Node{}
				node.Children[seg] = child
			}
			node = child
		}
		node.RuleSet = rs
	}
	return root
}
