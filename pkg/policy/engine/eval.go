package engine

import (
	"errors"
	"sort"

	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/epl/ast"
	"mercator-hq/europa/pkg/policy/compiler"
)

// errStop signals early termination of an enumeration from inside a yield
// callback. It never escapes the function that started the enumeration.
var errStop = errors.New("stop enumeration")

// maxFixpointIterations bounds partial-rule accumulation. Compilation
// guarantees cycles through partial rules are monotonic, but a clause that
// derives fresh values from the accumulator itself could still diverge.
const maxFixpointIterations = 10000

// evaluator carries the state of one evaluation call. It is not safe for
// concurrent use; Evaluate creates a fresh one per call.
type evaluator struct {
	policy *compiler.Policy
	input  document.Value
	memo   map[string]*memoEntry
}

// memoEntry tracks the state of one rule within a call. An entry with
// done=false marks a rule currently being evaluated; references reaching it
// re-entrantly read the partial accumulator instead of recursing.
type memoEntry struct {
	done    bool
	val     document.Value
	defined bool

	set *document.Set             // in-progress partial set accumulator
	obj map[string]document.Value // in-progress partial object accumulator
}

// evalRule produces the rule's document value. The boolean result is false
// when no clause was satisfied and the rule has no default.
func (e *evaluator) evalRule(rs *compiler.RuleSet) (document.Value, bool, error) {
	if m, ok := e.memo[rs.Path]; ok {
		if m.done {
			return m.val, m.defined, nil
		}
		// Re-entrant reference. Partial rules expose their current
		// accumulator; the fixpoint loop re-runs until it stabilizes.
		switch rs.Kind {
		case ast.PartialSetRule:
			return m.set.Value(), true, nil
		case ast.PartialObjectRule:
			return sortedObject(m.obj), true, nil
		default:
			return document.Value{}, false, &Error{
				Kind:   ErrInternal,
				Detail: "recursive reference to complete rule " + rs.Path,
			}
		}
	}

	switch rs.Kind {
	case ast.PartialSetRule:
		return e.evalPartialSet(rs)
	case ast.PartialObjectRule:
		return e.evalPartialObject(rs)
	default:
		return e.evalComplete(rs)
	}
}

func (e *evaluator) evalComplete(rs *compiler.RuleSet) (document.Value, bool, error) {
	m := &memoEntry{}
	e.memo[rs.Path] = m

	for _, clause := range rs.Clauses {
		v, defined, err := e.evalClause(clause)
		if err != nil {
			return document.Value{}, false, err
		}
		if defined {
			m.val, m.defined = v, true
			break
		}
	}
	if !m.defined && rs.HasDefault {
		m.val, m.defined = rs.DefaultValue, true
	}
	m.done = true
	return m.val, m.defined, nil
}

// evalClause evaluates one complete-rule clause and its else chain. The
// first clause whose body has a satisfying binding wins.
func (e *evaluator) evalClause(clause *ast.Rule) (document.Value, bool, error) {
	for c := clause; c != nil; c = c.Else {
		if !c.HasBody() {
			return e.headValue(c, nil)
		}
		var out document.Value
		found := false
		err := e.evalBody(c.Body, nil, func(env *bindings) error {
			v, defined, herr := e.headValue(c, env)
			if herr != nil {
				return herr
			}
			if !defined {
				return nil
			}
			out, found = v, true
			return errStop
		})
		if err != nil && err != errStop {
			return document.Value{}, false, err
		}
		if found {
			return out, true, nil
		}
	}
	return document.Value{}, false, nil
}

// headValue computes the clause's value under env; a nil value term means
// the implicit true of "name if body".
func (e *evaluator) headValue(c *ast.Rule, env *bindings) (document.Value, bool, error) {
	if c.Value == nil {
		return document.Bool(true), true, nil
	}
	return e.evalTermFirst(c.Value, env)
}

func (e *evaluator) evalPartialSet(rs *compiler.RuleSet) (document.Value, bool, error) {
	m := &memoEntry{set: document.NewSet()}
	e.memo[rs.Path] = m

	for iter := 0; ; iter++ {
		if iter == maxFixpointIterations {
			return document.Value{}, false, &Error{
				Kind:   ErrInternal,
				Detail: "partial rule " + rs.Path + " did not converge",
			}
		}
		before := m.set.Len()
		for _, clause := range rs.Clauses {
			err := e.evalBody(clause.Body, nil, func(env *bindings) error {
				v, defined, terr := e.evalTermFirst(clause.Key, env)
				if terr != nil {
					return terr
				}
				if defined {
					m.set.Add(v)
				}
				return nil
			})
			if err != nil {
				return document.Value{}, false, err
			}
		}
		if m.set.Len() == before {
			break
		}
	}

	m.done = true
	m.val, m.defined = m.set.Value(), true
	return m.val, true, nil
}

func (e *evaluator) evalPartialObject(rs *compiler.RuleSet) (document.Value, bool, error) {
	m := &memoEntry{obj: make(map[string]document.Value)}
	e.memo[rs.Path] = m

	for iter := 0; ; iter++ {
		if iter == maxFixpointIterations {
			return document.Value{}, false, &Error{
				Kind:   ErrInternal,
				Detail: "partial rule " + rs.Path + " did not converge",
			}
		}
		before := len(m.obj)
		for _, clause := range rs.Clauses {
			err := e.evalBody(clause.Body, nil, func(env *bindings) error {
				kv, kdef, kerr := e.evalTermFirst(clause.Key, env)
				if kerr != nil {
					return kerr
				}
				vv, vdef, verr := e.evalTermFirst(clause.Value, env)
				if verr != nil {
					return verr
				}
				// Non-string keys make the contribution undefined.
				// Conflicting pairs keep the first value produced.
				if !kdef || !vdef || kv.Kind() != document.KindString {
					return nil
				}
				if _, exists := m.obj[kv.AsString()]; !exists {
					m.obj[kv.AsString()] = vv
				}
				return nil
			})
			if err != nil {
				return document.Value{}, false, err
			}
		}
		if len(m.obj) == before {
			break
		}
	}

	m.done = true
	m.val, m.defined = sortedObject(m.obj), true
	return m.val, true, nil
}

// evalBody satisfies the body literals in order, calling k once per
// complete satisfying binding. k may return errStop to halt the search.
func (e *evaluator) evalBody(body []*ast.Literal, env *bindings, k func(*bindings) error) error {
	if len(body) == 0 {
		return k(env)
	}
	lit := body[0]
	cont := func(env2 *bindings) error {
		return e.evalBody(body[1:], env2, k)
	}

	switch lit.Kind {
	case ast.AssignLiteral:
		return e.evalTerm(lit.Term, env, func(v document.Value, env2 *bindings) error {
			env3, ok := env2.bindVar(lit.Var, v)
			if !ok {
				return nil
			}
			return cont(env3)
		})

	case ast.SomeLiteral:
		return e.evalTerm(lit.SomeIn, env, func(coll document.Value, env2 *bindings) error {
			return e.enumerate(coll, env2, lit.SomeVars, cont)
		})

	default: // ExprLiteral
		if lit.Negated {
			satisfied := false
			err := e.evalTerm(lit.Term, env, func(v document.Value, _ *bindings) error {
				if v.Truthy() {
					satisfied = true
					return errStop
				}
				return nil
			})
			if err != nil && err != errStop {
				return err
			}
			if satisfied {
				return nil
			}
			// Negation cannot bind: the inner enumeration's bindings
			// are discarded.
			return cont(env)
		}
		return e.evalTerm(lit.Term, env, func(v document.Value, env2 *bindings) error {
			if !v.Truthy() {
				return nil
			}
			return cont(env2)
		})
	}
}

// enumerate walks a collection for a some-in literal: arrays yield
// (index, element), objects yield (key, value). One variable takes the
// element or value; two take both. Other kinds have no members.
func (e *evaluator) enumerate(coll document.Value, env *bindings, vars []string, k func(*bindings) error) error {
	bindPair := func(a, b document.Value) (*bindings, bool) {
		if len(vars) == 2 {
			env2, ok := env.bindVar(vars[0], a)
			if !ok {
				return nil, false
			}
			return env2.bindVar(vars[1], b)
		}
		return env.bindVar(vars[0], b)
	}

	switch coll.Kind() {
	case document.KindArray:
		for i, elem := range coll.Elems() {
			env2, ok := bindPair(document.Int(int64(i)), elem)
			if !ok {
				continue
			}
			if err := k(env2); err != nil {
				return err
			}
		}
	case document.KindObject:
		obj := coll.AsObject()
		for i := 0; i < obj.Len(); i++ {
			key, val := obj.At(i)
			env2, ok := bindPair(document.String(key), val)
			if !ok {
				continue
			}
			if err := k(env2); err != nil {
				return err
			}
		}
	}
	return nil
}

// sortedObject builds a document object with lexicographically ordered keys.
func sortedObject(m map[string]document.Value) document.Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	obj := document.NewObject()
	for _, k := range keys {
		obj.Set(k, m[k])
	}
	return document.Obj(obj)
}
