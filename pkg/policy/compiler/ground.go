package compiler

import (
	"mercator-hq/europa/pkg/document"
	"mercator-hq/europa/pkg/epl/ast"
)

// GroundValue converts a ground term (no variables or references) into its
// document value. The second result is false when the term is not ground.
// Set terms yield their sorted, deduplicated array form.
func GroundValue(t *ast.Term) (document.Value, bool) {
	switch t.Kind {
	case ast.NullTerm:
		return document.Null(), true

	case ast.BoolTerm:
		return document.Bool(t.Bool), true

	case ast.NumberTerm:
		return document.Num(t.Number), true

	case ast.StringTerm:
		return document.String(t.Str), true

	case ast.UnaryTerm:
		v, ok := GroundValue(t.Operand)
		if !ok || v.Kind() != document.KindNumber {
			return document.Value{}, false
		}
		return document.Num(v.AsNumber().Neg()), true

	case ast.ArrayTerm:
		elems := make([]document.Value, 0, len(t.Elems))
		for _, e := range t.Elems {
			v, ok := GroundValue(e)
			if !ok {
				return document.Value{}, false
			}
			elems = append(elems, v)
		}
		return document.Array(elems...), true

	case ast.SetTerm:
		set := document.NewSet()
		for _, e := range t.Elems {
			v, ok := GroundValue(e)
			if !ok {
				return document.Value{}, false
			}
			set.Add(v)
		}
		return set.Value(), true

	case ast.ObjectTerm:
		obj := document.NewObject()
		for _, entry := range t.Entries {
			k, ok := GroundValue(entry.Key)
			if !ok || k.Kind() != document.KindString {
				return document.Value{}, false
			}
			v, ok := GroundValue(entry.Value)
			if !ok {
				return document.Value{}, false
			}
			obj.Set(k.AsString(), v)
		}
		return document.Obj(obj), true

	default:
		return document.Value{}, false
	}
}
