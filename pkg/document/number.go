package document

import (
	"fmt"
	"math"
	"strconv"
)

// Number carries either int64 or float64 precision. Integers round-trip
// losslessly; mixing integer and float operands promotes to float.
type Number struct {
	i     int64
	f     float64
	isInt bool
}

// IntNumber returns an integer-precision number.
func IntNumber(i int64) Number { return Number{i: i, isInt: true} }

// FloatNumber returns a floating-point number.
func FloatNumber(f float64) Number { return Number{f: f} }

// ParseNumber parses decimal text, preferring integer precision.
func ParseNumber(s string) (Number, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Number{i: i, isInt: true}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{}, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Number{f: f}, nil
}

// IsInt reports whether the number carries integer precision.
func (n Number) IsInt() bool { return n.isInt }

// Int64 returns the integer payload, truncating when the number is a float.
func (n Number) Int64() int64 {
	if n.isInt {
		return n.i
	}
	return int64(n.f)
}

// Float64 returns the numeric value as a float64.
func (n Number) Float64() float64 {
	if n.isInt {
		return float64(n.i)
	}
	return n.f
}

// Equal reports numeric equality across precisions (1 == 1.0).
func (n Number) Equal(m Number) bool {
	if n.isInt && m.isInt {
		return n.i == m.i
	}
	return n.Float64() == m.Float64()
}

// Compare returns -1, 0, or +1 ordering n against m.
func (n Number) Compare(m Number) int {
	if n.isInt && m.isInt {
		switch {
		case n.i < m.i:
			return -1
		case n.i > m.i:
			return 1
		default:
			return 0
		}
	}
	a, b := n.Float64(), m.Float64()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Add returns n + m, keeping integer precision when both operands are ints.
func (n Number) Add(m Number) Number {
	if n.isInt && m.isInt {
		return Number{i: n.i + m.i, isInt: true}
	}
	return Number{f: n.Float64() + m.Float64()}
}

// Sub returns n - m.
func (n Number) Sub(m Number) Number {
	if n.isInt && m.isInt {
		return Number{i: n.i - m.i, isInt: true}
	}
	return Number{f: n.Float64() - m.Float64()}
}

// Mul returns n * m.
func (n Number) Mul(m Number) Number {
	if n.isInt && m.isInt {
		return Number{i: n.i * m.i, isInt: true}
	}
	return Number{f: n.Float64() * m.Float64()}
}

// Div returns n / m. The boolean result is false on division by zero.
// Integer division yielding a non-integral quotient promotes to float.
func (n Number) Div(m Number) (Number, bool) {
	if m.Float64() == 0 {
		return Number{}, false
	}
	if n.isInt && m.isInt && n.i%m.i == 0 {
		return Number{i: n.i / m.i, isInt: true}, true
	}
	return Number{f: n.Float64() / m.Float64()}, true
}

// Rem returns n % m for integer operands. False when either operand is a
// float or m is zero.
func (n Number) Rem(m Number) (Number, bool) {
	if !n.isInt || !m.isInt || m.i == 0 {
		return Number{}, false
	}
	return Number{i: n.i % m.i, isInt: true}, true
}

// Neg returns -n.
func (n Number) Neg() Number {
	if n.isInt {
		return Number{i: -n.i, isInt: true}
	}
	return Number{f: -n.f}
}

// Abs returns the absolute value.
func (n Number) Abs() Number {
	if n.isInt {
		if n.i < 0 {
			return Number{i: -n.i, isInt: true}
		}
		return n
	}
	return Number{f: math.Abs(n.f)}
}

// String renders the number as JSON-compatible decimal text.
func (n Number) String() string {
	if n.isInt {
		return strconv.FormatInt(n.i, 10)
	}
	return strconv.FormatFloat(n.f, 'g', -1, 64)
}
