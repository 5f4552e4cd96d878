// Package value implements the tagged runtime datum every accessor,
// operator, and interpolator in the matcher engine works with: null,
// bool, number, string, array, and map.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the Value variants.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the six variants the engine's data model
// defines (spec §3.1). The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	// isInt records whether n was constructed from an integral source,
	// so integer identity survives round-tripping through interpolation
	// (spec §4.5: "Number preserving integer shape").
	isInt bool
	s     string
	arr   []Value
	m     map[string]Value
	// keys preserves a stable key order for deterministic iteration
	// (iteration order itself is spec-irrelevant, but a stable order
	// keeps interpolation/serialization deterministic for callers).
	keys []string
}

// Null is the singular null value.
var Null = Value{kind: KindNull}

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int constructs a number value from an integer, preserving integer shape.
func Int(n int64) Value { return Value{kind: KindNumber, n: float64(n), isInt: true} }

// Float constructs a number value from a float64.
func Float(n float64) Value {
	return Value{kind: KindNumber, n: n, isInt: n == float64(int64(n))}
}

// Number constructs a number value, inferring integer shape from the
// supplied float (used when decoding JSON, where ints and floats share a
// wire representation).
func Number(n float64) Value { return Float(n) }

// String constructs a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array constructs an array value. The slice is copied.
func Array(vs []Value) Value {
	cp := make([]Value, len(vs))
	copy(cp, vs)
	return Value{kind: KindArray, arr: cp}
}

// Map constructs a map value from a copy of m; Keys reports its keys in
// sorted order.
func Map(m map[string]Value) Value {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp, keys: keys}
}

// Kind reports the value's variant.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsArray() bool  { return v.kind == KindArray }
func (v Value) IsMap() bool    { return v.kind == KindMap }

// BoolValue returns the boolean payload; zero value if not a Bool.
func (v Value) BoolValue() bool { return v.b }

// NumberValue returns the numeric payload; zero value if not a Number.
func (v Value) NumberValue() float64 { return v.n }

// IsInteger reports whether a Number's source was integral.
func (v Value) IsInteger() bool { return v.kind == KindNumber && v.isInt }

// StringValue returns the string payload; zero value if not a String.
func (v Value) StringValue() string { return v.s }

// ArrayValue returns the array payload (read-only; do not mutate).
func (v Value) ArrayValue() []Value { return v.arr }

// Len returns the array's length; 0 for non-arrays.
func (v Value) Len() int { return len(v.arr) }

// MapValue returns the underlying map (read-only; do not mutate).
func (v Value) MapValue() map[string]Value { return v.m }

// Keys returns the map's keys in stable sorted order.
func (v Value) Keys() []string { return v.keys }

// Get looks up a key in a Map value. ok is false if v is not a Map or the
// key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	val, ok := v.m[key]
	return val, ok
}

// Equal implements spec §4.1 structural equality: Null == Null; numeric
// equality ignores the integer/float tag; booleans only equal booleans;
// arrays/maps compare structurally, recursively.
func Equal(a, b Value) bool {
	if a.kind == KindNull && b.kind == KindNull {
		return true
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Order is the result of comparing two values for ordering purposes.
type Order int

const (
	// Unordered means the pair has no defined ordering (spec §4.1: cross
	// type, Null, or Map operands). Callers must treat this as "false"
	// for every ge/gt/le/lt query, never as an error.
	Unordered Order = iota
	Less
	Equal_
	Greater
)

// Compare implements spec §4.1's ordering table. Cross-type, Null, and
// Map comparisons return Unordered.
func Compare(a, b Value) Order {
	if a.kind != b.kind {
		return Unordered
	}
	switch a.kind {
	case KindNumber:
		switch {
		case a.n < b.n:
			return Less
		case a.n > b.n:
			return Greater
		default:
			return Equal_
		}
	case KindString:
		switch {
		case a.s < b.s:
			return Less
		case a.s > b.s:
			return Greater
		default:
			return Equal_
		}
	case KindBool:
		if a.b == b.b {
			return Equal_
		}
		if !a.b && b.b {
			return Less
		}
		return Greater
	case KindArray:
		return compareArrays(a.arr, b.arr)
	default:
		// Null and Map are not orderable, even against themselves.
		return Unordered
	}
}

func compareArrays(a, b []Value) Order {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		switch Compare(a[i], b[i]) {
		case Less:
			return Less
		case Greater:
			return Greater
		case Unordered:
			return Unordered
		}
	}
	switch {
	case len(a) < len(b):
		return Less
	case len(a) > len(b):
		return Greater
	default:
		return Equal_
	}
}

// Contain implements spec §4.3's Contain semantics, which depend on a's
// runtime type: String×String is substring, Array×Value is membership by
// structural equality, Map×String is key presence; anything else is
// false.
func Contain(a, b Value) bool {
	switch a.kind {
	case KindString:
		if b.kind != KindString {
			return false
		}
		return strings.Contains(a.s, b.s)
	case KindArray:
		for _, elem := range a.arr {
			if Equal(elem, b) {
				return true
			}
		}
		return false
	case KindMap:
		if b.kind != KindString {
			return false
		}
		_, ok := a.m[b.s]
		return ok
	default:
		return false
	}
}

// String renders a value for diagnostics (not used for interpolation,
// which has its own, spec-defined scalar-only conversion rules).
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.n, v.isInt)
	case KindString:
		return v.s
	case KindArray:
		return fmt.Sprintf("%v", v.arr)
	case KindMap:
		return fmt.Sprintf("%v", v.m)
	default:
		return ""
	}
}

// FormatNumber renders a Number the way the interpolator does: integral
// source values print without a decimal point.
func FormatNumber(v Value) string {
	return formatNumber(v.n, v.isInt)
}

func formatNumber(n float64, isInt bool) string {
	if isInt {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}
