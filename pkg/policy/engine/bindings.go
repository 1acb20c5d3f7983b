package engine

import "mercator-hq/europa/pkg/document"

// bindings is an immutable variable environment. Binding prepends a node,
// so sibling branches of an enumeration share their common prefix and
// backtracking is a no-op: the caller simply keeps its own pointer.
type bindings struct {
	parent *bindings
	name   string
	val    document.Value
}

func (b *bindings) lookup(name string) (document.Value, bool) {
	for cur := b; cur != nil; cur = cur.parent {
		if cur.name == name {
			return cur.val, true
		}
	}
	return document.Value{}, false
}

func (b *bindings) bound(name string) bool {
	_, ok := b.lookup(name)
	return ok
}

func (b *bindings) bind(name string, v document.Value) *bindings {
	return &bindings{parent: b, name: name, val: v}
}

// bindVar binds name to v, treating "_" as a discard and an existing
// binding as an equality constraint. The second result is false when the
// constraint fails.
func (b *bindings) bindVar(name string, v document.Value) (*bindings, bool) {
	if name == "_" {
		return b, true
	}
	if cur, ok := b.lookup(name); ok {
		return b, document.Equal(cur, v)
	}
	return b.bind(name, v), true
}
