package engine

import (
	"sort"

	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/epl/ast"
	"mercator-hq/europa/pkg/policy/builtins"
	"mercator-hq/europa/pkg/policy/compiler"
)

// evalTerm enumerates the values a term can take under env, calling yield
// once per value with the environment extended by any enumeration bindings.
// A term with no value (undefined reference, unbound variable, kind
// mismatch) yields nothing.
func (e *evaluator) evalTerm(t *ast.Term, env *bindings, yield func(document.Value, *bindings) error) error {
	switch t.Kind {
	case ast.NullTerm:
		return yield(document.Null(), env)
	case ast.BoolTerm:
		return yield(document.Bool(t.Bool), env)
	case ast.NumberTerm:
		return yield(document.Num(t.Number), env)
	case ast.StringTerm:
		return yield(document.String(t.Str), env)

	case ast.VarTerm:
		if t.Var == "_" {
			return nil
		}
		if v, ok := env.lookup(t.Var); ok {
			return yield(v, env)
		}
		return nil

	case ast.RefTerm:
		switch t.RefHead {
		case "input":
			return e.walkValue(e.input, t.RefArgs, env, yield)
		case "data":
			return e.walkNode(e.policy.Root, e.policy.Data, e.policy.DataDefined, t.RefArgs, env, yield)
		default:
			v, ok := env.lookup(t.RefHead)
			if !ok {
				return nil
			}
			return e.walkValue(v, t.RefArgs, env, yield)
		}

	case ast.BinaryTerm:
		return e.evalTerm(t.LHS, env, func(lv document.Value, env2 *bindings) error {
			return e.evalTerm(t.RHS, env2, func(rv document.Value, env3 *bindings) error {
				v, ok := applyBinary(t.Op, lv, rv)
				if !ok {
					return nil
				}
				return yield(v, env3)
			})
		})

	case ast.UnaryTerm:
		return e.evalTerm(t.Operand, env, func(v document.Value, env2 *bindings) error {
			if v.Kind() != document.KindNumber {
				return nil
			}
			return yield(document.Num(v.AsNumber().Neg()), env2)
		})

	case ast.CallTerm:
		b, ok := builtins.Lookup(t.Func)
		if !ok {
			return &Error{Kind: ErrInternal, Detail: "unknown function " + t.Func}
		}
		return e.evalTerms(t.Args, env, func(args []document.Value, env2 *bindings) error {
			v, defined := b.Fn(args)
			if !defined {
				return nil
			}
			return yield(v, env2)
		})

	case ast.ArrayTerm:
		return e.evalTerms(t.Elems, env, func(elems []document.Value, env2 *bindings) error {
			return yield(document.Array(elems...), env2)
		})

	case ast.SetTerm:
		return e.evalTerms(t.Elems, env, func(elems []document.Value, env2 *bindings) error {
			set := document.NewSet()
			for _, v := range elems {
				set.Add(v)
			}
			return yield(set.Value(), env2)
		})

	case ast.ObjectTerm:
		terms := make([]*ast.Term, 0, 2*len(t.Entries))
		for _, entry := range t.Entries {
			terms = append(terms, entry.Key, entry.Value)
		}
		return e.evalTerms(terms, env, func(vals []document.Value, env2 *bindings) error {
			obj := document.NewObject()
			for i := 0; i < len(vals); i += 2 {
				if vals[i].Kind() != document.KindString {
					return nil
				}
				key := vals[i].AsString()
				if prev, exists := obj.Get(key); exists {
					// A duplicate key with a different value makes the
					// whole literal undefined.
					if !document.Equal(prev, vals[i+1]) {
						return nil
					}
					continue
				}
				obj.Set(key, vals[i+1])
			}
			return yield(document.Obj(obj), env2)
		})

	case ast.ArrayComprehensionTerm:
		var elems []document.Value
		err := e.evalBody(t.Body, env, func(env2 *bindings) error {
			v, defined, herr := e.evalTermFirst(t.Head, env2)
			if herr != nil {
				return herr
			}
			if defined {
				elems = append(elems, v)
			}
			return nil
		})
		if err != nil {
			return err
		}
		return yield(document.Array(elems...), env)

	case ast.SetComprehensionTerm:
		set := document.NewSet()
		err := e.evalBody(t.Body, env, func(env2 *bindings) error {
			v, defined, herr := e.evalTermFirst(t.Head, env2)
			if herr != nil {
				return herr
			}
			if defined {
				set.Add(v)
			}
			return nil
		})
		if err != nil {
			return err
		}
		return yield(set.Value(), env)

	case ast.ObjectComprehensionTerm:
		entries := make(map[string]document.Value)
		err := e.evalBody(t.Body, env, func(env2 *bindings) error {
			kv, kdef, kerr := e.evalTermFirst(t.Key, env2)
			if kerr != nil {
				return kerr
			}
			vv, vdef, verr := e.evalTermFirst(t.Value, env2)
			if verr != nil {
				return verr
			}
			if !kdef || !vdef || kv.Kind() != document.KindString {
				return nil
			}
			if _, exists := entries[kv.AsString()]; !exists {
				entries[kv.AsString()] = vv
			}
			return nil
		})
		if err != nil {
			return err
		}
		return yield(sortedObject(entries), env)
	}
	return nil
}

// evalTermFirst returns the first value the term enumerates, if any.
func (e *evaluator) evalTermFirst(t *ast.Term, env *bindings) (document.Value, bool, error) {
	var out document.Value
	found := false
	err := e.evalTerm(t, env, func(v document.Value, _ *bindings) error {
		out, found = v, true
		return errStop
	})
	if err != nil && err != errStop {
		return document.Value{}, false, err
	}
	return out, found, nil
}

// evalTerms enumerates the cartesian product of the terms' values, calling
// k once per combination with a fresh slice.
func (e *evaluator) evalTerms(terms []*ast.Term, env *bindings, k func([]document.Value, *bindings) error) error {
	vals := make([]document.Value, len(terms))
	var rec func(i int, env *bindings) error
	rec = func(i int, env *bindings) error {
		if i == len(terms) {
			out := make([]document.Value, len(vals))
			copy(out, vals)
			return k(out, env)
		}
		return e.evalTerm(terms[i], env, func(v document.Value, env2 *bindings) error {
			vals[i] = v
			return rec(i+1, env2)
		})
	}
	return rec(0, env)
}

// walkValue navigates reference arguments within a plain document value.
// An unbound variable argument enumerates the collection, binding indices
// for arrays and keys for objects.
func (e *evaluator) walkValue(v document.Value, args []*ast.Term, env *bindings, yield func(document.Value, *bindings) error) error {
	if len(args) == 0 {
		return yield(v, env)
	}
	arg, rest := args[0], args[1:]

	if arg.Kind == ast.VarTerm && (arg.Var == "_" || !env.bound(arg.Var)) {
		name := arg.Var
		switch v.Kind() {
		case document.KindArray:
			for i, elem := range v.Elems() {
				env2, ok := env.bindVar(name, document.Int(int64(i)))
				if !ok {
					continue
				}
				if err := e.walkValue(elem, rest, env2, yield); err != nil {
					return err
				}
			}
		case document.KindObject:
			obj := v.AsObject()
			for i := 0; i < obj.Len(); i++ {
				key, val := obj.At(i)
				env2, ok := env.bindVar(name, document.String(key))
				if !ok {
					continue
				}
				if err := e.walkValue(val, rest, env2, yield); err != nil {
					return err
				}
			}
		}
		return nil
	}

	return e.evalTerm(arg, env, func(key document.Value, env2 *bindings) error {
		child, ok := step(v, key)
		if !ok {
			return nil
		}
		return e.walkValue(child, rest, env2, yield)
	})
}

// step indexes one level into a value: objects by string key, arrays by
// in-range integer.
func step(v, key document.Value) (document.Value, bool) {
	switch v.Kind() {
	case document.KindObject:
		if key.Kind() != document.KindString {
			return document.Value{}, false
		}
		return v.Field(key.AsString())
	case document.KindArray:
		if key.Kind() != document.KindNumber || !key.AsNumber().IsInt() {
			return document.Value{}, false
		}
		i := key.AsNumber().Int64()
		if i < 0 || i >= int64(v.Len()) {
			return document.Value{}, false
		}
		return v.Elem(int(i)), true
	default:
		return document.Value{}, false
	}
}

// walkNode navigates the data document: the rule trie overlaid on the
// external data value. Rules shadow data at their exact path; once a rule
// set is reached, navigation continues inside its evaluated value.
func (e *evaluator) walkNode(node *compiler.Node, dv document.Value, dvOK bool, args []*ast.Term, env *bindings, yield func(document.Value, *bindings) error) error {
	if node == nil {
		if !dvOK {
			return nil
		}
		return e.walkValue(dv, args, env, yield)
	}
	if node.RuleSet != nil {
		v, defined, err := e.evalRule(node.RuleSet)
		if err != nil {
			return err
		}
		if !defined {
			return nil
		}
		return e.walkValue(v, args, env, yield)
	}
	if len(args) == 0 {
		v, err := e.packageValue(node, dv, dvOK)
		if err != nil {
			return err
		}
		return yield(v, env)
	}
	arg, rest := args[0], args[1:]

	if arg.Kind == ast.VarTerm && (arg.Var == "_" || !env.bound(arg.Var)) {
		for _, name := range childNames(node, dv, dvOK) {
			env2, ok := env.bindVar(arg.Var, document.String(name))
			if !ok {
				continue
			}
			cdv, cok := fieldOf(dv, dvOK, name)
			if err := e.walkNode(node.Child(name), cdv, cok, rest, env2, yield); err != nil {
				return err
			}
		}
		return nil
	}

	return e.evalTerm(arg, env, func(key document.Value, env2 *bindings) error {
		if key.Kind() != document.KindString {
			return nil
		}
		name := key.AsString()
		child := node.Child(name)
		cdv, cok := fieldOf(dv, dvOK, name)
		if child == nil && !cok {
			return nil
		}
		return e.walkNode(child, cdv, cok, rest, env2, yield)
	})
}

// packageValue assembles the object for a package-prefix path: external
// data fields first in their own order, minus any shadowed by rules, then
// rule and sub-package children in sorted order. Undefined complete rules
// are omitted.
func (e *evaluator) packageValue(node *compiler.Node, dv document.Value, dvOK bool) (document.Value, error) {
	obj := document.NewObject()
	if dvOK && dv.Kind() == document.KindObject {
		dataObj := dv.AsObject()
		for i := 0; i < dataObj.Len(); i++ {
			key, val := dataObj.At(i)
			if node.Child(key) == nil {
				obj.Set(key, val)
			}
		}
	}
	for _, name := range node.ChildNames() {
		child := node.Child(name)
		if child.RuleSet != nil {
			v, defined, err := e.evalRule(child.RuleSet)
			if err != nil {
				return document.Value{}, err
			}
			if defined {
				obj.Set(name, v)
			}
			continue
		}
		cdv, cok := fieldOf(dv, dvOK, name)
		v, err := e.packageValue(child, cdv, cok)
		if err != nil {
			return document.Value{}, err
		}
		obj.Set(name, v)
	}
	return document.Obj(obj), nil
}

// childNames merges rule trie children with data object keys, sorted.
func childNames(node *compiler.Node, dv document.Value, dvOK bool) []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range node.ChildNames() {
		seen[name] = true
		names = append(names, name)
	}
	if dvOK && dv.Kind() == document.KindObject {
		for _, name := range dv.AsObject().Keys() {
			if !seen[name] {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func fieldOf(dv document.Value, dvOK bool, name string) (document.Value, bool) {
	if !dvOK || dv.Kind() != document.KindObject {
		return document.Value{}, false
	}
	return dv.Field(name)
}

// applyBinary evaluates one binary operation. The boolean result is false
// when the operation is undefined for the operand kinds.
func applyBinary(op ast.Operator, l, r document.Value) (document.Value, bool) {
	switch op {
	case ast.OpEqual:
		return document.Bool(document.Equal(l, r)), true
	case ast.OpNotEqual:
		return document.Bool(!document.Equal(l, r)), true

	case ast.OpLess, ast.OpLessEqual, ast.OpGreater, ast.OpGreaterEqual:
		if l.Kind() != r.Kind() {
			return document.Value{}, false
		}
		c := document.Compare(l, r)
		switch op {
		case ast.OpLess:
			return document.Bool(c < 0), true
		case ast.OpLessEqual:
			return document.Bool(c <= 0), true
		case ast.OpGreater:
			return document.Bool(c > 0), true
		default:
			return document.Bool(c >= 0), true
		}

	case ast.OpIn:
		switch r.Kind() {
		case document.KindArray:
			for _, elem := range r.Elems() {
				if document.Equal(l, elem) {
					return document.Bool(true), true
				}
			}
			return document.Bool(false), true
		case document.KindObject:
			obj := r.AsObject()
			for i := 0; i < obj.Len(); i++ {
				if _, val := obj.At(i); document.Equal(l, val) {
					return document.Bool(true), true
				}
			}
			return document.Bool(false), true
		default:
			return document.Value{}, false
		}

	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpRem:
		if l.Kind() != document.KindNumber || r.Kind() != document.KindNumber {
			return document.Value{}, false
		}
		ln, rn := l.AsNumber(), r.AsNumber()
		switch op {
		case ast.OpAdd:
			return document.Num(ln.Add(rn)), true
		case ast.OpSub:
			return document.Num(ln.Sub(rn)), true
		case ast.OpMul:
			return document.Num(ln.Mul(rn)), true
		case ast.OpDiv:
			q, ok := ln.Div(rn)
			if !ok {
				return document.Value{}, false
			}
			return document.Num(q), true
		default:
			rem, ok := ln.Rem(rn)
			if !ok {
				return document.Value{}, false
			}
			return document.Num(rem), true
		}
	}
	return document.Value{}, false
}
