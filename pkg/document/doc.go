// Package document provides the universal data representation used across
// the engine: a tagged-union Value covering null, booleans, numbers, strings,
// ordered arrays, and ordered key/value objects.
//
// Values are immutable once constructed. Policy input, external data, and
// evaluation results are all expressed as Values, which makes sharing across
// concurrent evaluations safe without synchronization.
//
// # Numbers
//
// Numbers preserve integer precision: a value decoded from JSON text
// round-trips losslessly for any int64 and for IEEE-754 doubles. Integer and
// floating-point values compare equal when they represent the same quantity
// (1 == 1.0).
//
// # Ordering
//
// Compare defines a total order over all Values (null < bool < number <
// string < array < object), used for deterministic set ordering and
// deduplication by structural equality.
package document
