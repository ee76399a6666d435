// Package value provides a recursive JSON value used for operation payloads and results.
//
// A Value is one of Null, Bool, Number, String, Array or Object. The zero Value is Null.
// Values are immutable once constructed: accessors return copies of container contents
// so a Value can be shared between goroutines.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
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
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a JSON value.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{} }

// BoolOf returns a Bool Value.
func BoolOf(b bool) Value { return Value{kind: KindBool, b: b} }

// NumberOf returns a Number Value.
func NumberOf(n float64) Value { return Value{kind: KindNumber, n: n} }

// StringOf returns a String Value.
func StringOf(s string) Value { return Value{kind: KindString, s: s} }

// ArrayOf returns an Array Value holding a copy of items.
func ArrayOf(items ...Value) Value {
	arr := make([]Value, len(items))
	copy(arr, items)

	return Value{kind: KindArray, arr: arr}
}

// ObjectOf returns an Object Value holding a copy of fields.
func ObjectOf(fields map[string]Value) Value {
	obj := make(map[string]Value, len(fields))
	for k, v := range fields {
		obj[k] = v
	}

	return Value{kind: KindObject, obj: obj}
}

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean held by v and whether v is a Bool.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Number returns the number held by v and whether v is a Number.
func (v Value) Number() (float64, bool) { return v.n, v.kind == KindNumber }

// Str returns the string held by v and whether v is a String.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Array returns a copy of the elements of v and whether v is an Array.
func (v Value) Array() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	arr := make([]Value, len(v.arr))
	copy(arr, v.arr)

	return arr, true
}

// Object returns a copy of the fields of v and whether v is an Object.
func (v Value) Object() (map[string]Value, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	obj := make(map[string]Value, len(v.obj))
	for k, f := range v.obj {
		obj[k] = f
	}

	return obj, true
}

// Len returns the number of elements of an Array or fields of an Object, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

// Keys returns the sorted field names of an Object.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Get returns the field key of an Object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[key]

	return f, ok
}

// Index returns element i of an Array.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Value{}, false
	}

	return v.arr[i], true
}

// Lookup walks path through v. Each segment selects an Object field or, when v is an
// Array and the segment is a non-negative integer, an element.
func (v Value) Lookup(path ...string) (Value, bool) {
	cur := v
	for _, seg := range path {
		switch cur.kind {
		case KindObject:
			next, ok := cur.obj[seg]
			if !ok {
				return Value{}, false
			}
			cur = next
		case KindArray:
			i, err := strconv.Atoi(seg)
			if err != nil {
				return Value{}, false
			}
			next, ok := cur.Index(i)
			if !ok {
				return Value{}, false
			}
			cur = next
		default:
			return Value{}, false
		}
	}

	return cur, true
}

// Equal reports whether v and o are deeply equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}

		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, f := range v.obj {
			of, ok := o.obj[k]
			if !ok || !f.Equal(of) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

// String renders v for substitution into a larger string. Strings are returned verbatim,
// numbers in their shortest form, containers as compact JSON.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.n)
	case KindString:
		return v.s
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("<%s>", v.kind)
		}

		return string(b)
	}
}

// Transform returns a copy of v with fn applied to every String leaf. Arrays keep their
// order and Objects keep their key set. Other leaves are returned unchanged.
func Transform(v Value, fn func(string) string) Value {
	switch v.kind {
	case KindString:
		return StringOf(fn(v.s))
	case KindArray:
		arr := make([]Value, len(v.arr))
		for i, el := range v.arr {
			arr[i] = Transform(el, fn)
		}

		return Value{kind: KindArray, arr: arr}
	case KindObject:
		obj := make(map[string]Value, len(v.obj))
		for k, f := range v.obj {
			obj[k] = Transform(f, fn)
		}

		return Value{kind: KindObject, obj: obj}
	default:
		return v
	}
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}

	return strconv.FormatFloat(n, 'g', -1, 64)
}
