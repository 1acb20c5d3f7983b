package document

import "strings"

// kindRank orders kinds for cross-type comparison: null < bool < number <
// string < array < object.
func kindRank(k Kind) int {
	switch k {
	case KindNull:
		return 0
	case KindBool:
		return 1
	case KindNumber:
		return 2
	case KindString:
		return 3
	case KindArray:
		return 4
	case KindObject:
		return 5
	default:
		return 6
	}
}

// Equal reports structural equality of two values.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}

// Compare defines a deterministic total order over all values, returning
// -1, 0, or +1. Values of different kinds order by kind rank. Arrays compare
// lexicographically; objects compare by sorted key sequence, then by the
// values at each key.
func Compare(a, b Value) int {
	if ra, rb := kindRank(a.kind), kindRank(b.kind); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch a.kind {
	case KindNull:
		return 0

	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}

	case KindNumber:
		return a.num.Compare(b.num)

	case KindString:
		return strings.Compare(a.str, b.str)

	case KindArray:
		n := len(a.arr)
		if len(b.arr) < n {
			n = len(b.arr)
		}
		for i := 0; i < n; i++ {
			if c := Compare(a.arr[i], b.arr[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(a.arr) < len(b.arr):
			return -1
		case len(a.arr) > len(b.arr):
			return 1
		default:
			return 0
		}

	case KindObject:
		ka := sortedKeys(a.obj)
		kb := sortedKeys(b.obj)
		n := len(ka)
		if len(kb) < n {
			n = len(kb)
		}
		for i := 0; i < n; i++ {
			if c := strings.Compare(ka[i], kb[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(ka) < len(kb):
			return -1
		case len(ka) > len(kb):
			return 1
		}
		for _, k := range ka {
			va, _ := a.obj.Get(k)
			vb, _ := b.obj.Get(k)
			if c := Compare(va, vb); c != 0 {
				return c
			}
		}
		return 0

	default:
		return 0
	}
}

func sortedKeys(o *Object) []string {
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	// Insertion sort: objects are typically small and keys are mostly
	// already ordered when built from sorted sources.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
