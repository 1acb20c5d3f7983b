// Package builtins defines the function table available to EPL expressions.
// The compiler checks call names and arities against the registry; the
// evaluation engine dispatches through it.
//
// Builtins are total over their declared arity but partial over value kinds:
// a kind mismatch makes the call undefined (the enclosing literal fails),
// never an error, matching the engine's skip-on-failure semantics.
package builtins

import (
	"strings"

	"mercator-hq/europa/pkg/document"
)

// Func evaluates one builtin call. The boolean result is false when the call
// is undefined for the given arguments.
type Func func(args []document.Value) (document.Value, bool)

// Builtin pairs a function with its fixed arity.
type Builtin struct {
	Name  string
	Arity int
	Fn    Func
}

var registry = map[string]Builtin{}

func register(name string, arity int, fn Func) {
	registry[name] = Builtin{Name: name, Arity: arity, Fn: fn}
}

// Lookup returns the named builtin.
func Lookup(name string) (Builtin, bool) {
	b, ok := registry[name]
	return b, ok
}

func init() {
	register("count", 1, builtinCount)
	register("sum", 1, builtinSum)
	register("max", 1, builtinMax)
	register("min", 1, builtinMin)
	register("abs", 1, builtinAbs)
	register("contains", 2, builtinContains)
	register("startswith", 2, builtinStartswith)
	register("endswith", 2, builtinEndswith)
	register("lower", 1, builtinLower)
	register("upper", 1, builtinUpper)
	register("split", 2, builtinSplit)
	register("concat", 2, builtinConcat)
	register("to_number", 1, builtinToNumber)
}

func builtinCount(args []document.Value) (document.Value, bool) {
	switch args[0].Kind() {
	case document.KindArray, document.KindObject, document.KindString:
		return document.Int(int64(args[0].Len())), true
	default:
		return document.Value{}, false
	}
}

func builtinSum(args []document.Value) (document.Value, bool) {
	if args[0].Kind() != document.KindArray {
		return document.Value{}, false
	}
	total := document.IntNumber(0)
	for _, elem := range args[0].Elems() {
		if elem.Kind() != document.KindNumber {
			return document.Value{}, false
		}
		total = total.Add(elem.AsNumber())
	}
	return document.Num(total), true
}

func builtinMax(args []document.Value) (document.Value, bool) {
	return extreme(args[0], 1)
}

func builtinMin(args []document.Value) (document.Value, bool) {
	return extreme(args[0], -1)
}

// extreme returns the largest (sign=1) or smallest (sign=-1) element of a
// non-empty array.
func extreme(v document.Value, sign int) (document.Value, bool) {
	if v.Kind() != document.KindArray || v.Len() == 0 {
		return document.Value{}, false
	}
	best := v.Elem(0)
	for _, elem := range v.Elems()[1:] {
		if document.Compare(elem, best) == sign {
			best = elem
		}
	}
	return best, true
}

func builtinAbs(args []document.Value) (document.Value, bool) {
	if args[0].Kind() != document.KindNumber {
		return document.Value{}, false
	}
	return document.Num(args[0].AsNumber().Abs()), true
}

func builtinContains(args []document.Value) (document.Value, bool) {
	s, sub, ok := twoStrings(args)
	if !ok {
		return document.Value{}, false
	}
	return document.Bool(strings.Contains(s, sub)), true
}

func builtinStartswith(args []document.Value) (document.Value, bool) {
	s, prefix, ok := twoStrings(args)
	if !ok {
		return document.Value{}, false
	}
	return document.Bool(strings.HasPrefix(s, prefix)), true
}

func builtinEndswith(args []document.Value) (document.Value, bool) {
	s, suffix, ok := twoStrings(args)
	if !ok {
		return document.Value{}, false
	}
	return document.Bool(strings.HasSuffix(s, suffix)), true
}

func builtinLower(args []document.Value) (document.Value, bool) {
	if args[0].Kind() != document.KindString {
		return document.Value{}, false
	}
	return document.String(strings.ToLower(args[0].AsString())), true
}

func builtinUpper(args []document.Value) (document.Value, bool) {
	if args[0].Kind() != document.KindString {
		return document.Value{}, false
	}
	return document.String(strings.ToUpper(args[0].AsString())), true
}

func builtinSplit(args []document.Value) (document.Value, bool) {
	s, sep, ok := twoStrings(args)
	if !ok {
		return document.Value{}, false
	}
	parts := strings.Split(s, sep)
	elems := make([]document.Value, len(parts))
	for i, p := range parts {
		elems[i] = document.String(p)
	}
	return document.Array(elems...), true
}

// concat(sep, array) joins an array of strings.
func builtinConcat(args []document.Value) (document.Value, bool) {
	if args[0].Kind() != document.KindString || args[1].Kind() != document.KindArray {
		return document.Value{}, false
	}
	parts := make([]string, 0, args[1].Len())
	for _, elem := range args[1].Elems() {
		if elem.Kind() != document.KindString {
			return document.Value{}, false
		}
		parts = append(parts, elem.AsString())
	}
	return document.String(strings.Join(parts, args[0].AsString())), true
}

func builtinToNumber(args []document.Value) (document.Value, bool) {
	switch args[0].Kind() {
	case document.KindNumber:
		return args[0], true
	case document.KindString:
		n, err := document.ParseNumber(args[0].AsString())
		if err != nil {
			return document.Value{}, false
		}
		return document.Num(n), true
	case document.KindBool:
		if args[0].AsBool() {
			return document.Int(1), true
		}
		return document.Int(0), true
	default:
		return document.Value{}, false
	}
}

func twoStrings(args []document.Value) (string, string, bool) {
	if args[0].Kind() != document.KindString || args[1].Kind() != document.KindString {
		return "", "", false
	}
	return args[0].AsString(), args[1].AsString(), true
}
