package document

import (
	"fmt"
	"strings"
)

// Kind identifies which variant of the tagged union a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is the universal document value. The zero Value is null.
// Values are immutable after construction; the accessors never copy.
type Value struct {
	kind Kind
	b    bool
	num  Number
	str  string
	arr  []Value
	obj  *Object
}

// Null returns the null value.
func Null() Value {
	return Value{kind: KindNull}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Int returns an integer-precision number value.
func Int(i int64) Value {
	return Value{kind: KindNumber, num: Number{i: i, isInt: true}}
}

// Float returns a floating-point number value.
func Float(f float64) Value {
	return Value{kind: KindNumber, num: Number{f: f}}
}

// Num wraps a Number as a value.
func Num(n Number) Value {
	return Value{kind: KindNumber, num: n}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Array returns an array value holding the given elements. The caller must
// not retain the slice for mutation.
func Array(elems ...Value) Value {
	return Value{kind: KindArray, arr: elems}
}

// Obj wraps an Object as a value.
func Obj(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

// Kind reports which variant this value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload. Valid only for KindBool.
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the numeric payload. Valid only for KindNumber.
func (v Value) AsNumber() Number { return v.num }

// AsString returns the string payload. Valid only for KindString.
func (v Value) AsString() string { return v.str }

// Len returns the element count for arrays and the key count for objects,
// and the rune-independent byte length for strings. Zero for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return v.obj.Len()
	case KindString:
		return len(v.str)
	default:
		return 0
	}
}

// Elem returns the i-th array element. Valid only for KindArray with
// 0 <= i < Len().
func (v Value) Elem(i int) Value { return v.arr[i] }

// Elems returns the backing element slice. Callers must not mutate it.
func (v Value) Elems() []Value { return v.arr }

// AsObject returns the object payload. Valid only for KindObject.
func (v Value) AsObject() *Object { return v.obj }

// Field looks up an object key. The second result is false when the value is
// not an object or the key is absent.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	return v.obj.Get(key)
}

// Truthy reports whether a value counts as a satisfied expression result:
// everything except false and null is truthy (undefined is handled before
// this point by the evaluator).
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// String renders the value as compact JSON. Used for diagnostics and by
// the text-producing session helpers.
func (v Value) String() string {
	var sb strings.Builder
	appendJSON(&sb, v)
	return sb.String()
}

// Object is an insertion-ordered string-keyed map with unique keys.
type Object struct {
	keys   []string
	index  map[string]int
	values []Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{index: make(map[string]int)}
}

// Set inserts or replaces a key. Insertion order is preserved; replacing an
// existing key keeps its original position. Set must only be called while
// the object is being constructed.
func (o *Object) Set(key string, val Value) {
	if i, ok := o.index[key]; ok {
		o.values[i] = val
		return
	}
	o.index[key] = len(o.keys)
	o.keys = append(o.keys, key)
	o.values = append(o.values, val)
}

// Get returns the value stored at key.
func (o *Object) Get(key string) (Value, bool) {
	i, ok := o.index[key]
	if !ok {
		return Value{}, false
	}
	return o.values[i], true
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.index[key]
	return ok
}

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// Keys returns the keys in insertion order. Callers must not mutate the
// returned slice.
func (o *Object) Keys() []string { return o.keys }

// At returns the i-th key and value in insertion order.
func (o *Object) At(i int) (string, Value) {
	return o.keys[i], o.values[i]
}
