package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrUnsupported is returned by FromAny for inputs that have no JSON representation.
var ErrUnsupported = errors.New("unsupported value type")

// FromAny converts a decoded JSON, YAML or TOML tree into a Value. Structs and other
// JSON-marshalable types are converted through their JSON encoding.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case *Value:
		if x == nil {
			return Null(), nil
		}

		return *x, nil
	case bool:
		return BoolOf(x), nil
	case string:
		return StringOf(x), nil
	case float64:
		return numberOf(x)
	case float32:
		return numberOf(float64(x))
	case int:
		return NumberOf(float64(x)), nil
	case int8:
		return NumberOf(float64(x)), nil
	case int16:
		return NumberOf(float64(x)), nil
	case int32:
		return NumberOf(float64(x)), nil
	case int64:
		return NumberOf(float64(x)), nil
	case uint:
		return NumberOf(float64(x)), nil
	case uint8:
		return NumberOf(float64(x)), nil
	case uint16:
		return NumberOf(float64(x)), nil
	case uint32:
		return NumberOf(float64(x)), nil
	case uint64:
		return NumberOf(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("number %q: %w", x.String(), err)
		}

		return NumberOf(f), nil
	case time.Time:
		return StringOf(x.Format(time.RFC3339Nano)), nil
	case []any:
		arr := make([]Value, len(x))
		for i, el := range x {
			conv, err := FromAny(el)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = conv
		}

		return Value{kind: KindArray, arr: arr}, nil
	case []map[string]any:
		arr := make([]Value, len(x))
		for i, el := range x {
			conv, err := FromAny(el)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = conv
		}

		return Value{kind: KindArray, arr: arr}, nil
	case map[string]any:
		obj := make(map[string]Value, len(x))
		for k, el := range x {
			conv, err := FromAny(el)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			obj[k] = conv
		}

		return Value{kind: KindObject, obj: obj}, nil
	case map[any]any:
		obj := make(map[string]Value, len(x))
		for k, el := range x {
			key := fmt.Sprint(k)
			conv, err := FromAny(el)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", key, err)
			}
			obj[key] = conv
		}

		return Value{kind: KindObject, obj: obj}, nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return Value{}, fmt.Errorf("%T: %w", v, ErrUnsupported)
		}
		var out Value
		if err := json.Unmarshal(b, &out); err != nil {
			return Value{}, err
		}

		return out, nil
	}
}

// MustFromAny is like FromAny but panics on error. Intended for tests and literals.
func MustFromAny(v any) Value {
	out, err := FromAny(v)
	if err != nil {
		panic(err)
	}

	return out
}

// Any converts v into plain Go values: nil, bool, float64, string, []any and
// map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		arr := make([]any, len(v.arr))
		for i, el := range v.arr {
			arr[i] = el.Any()
		}

		return arr
	case KindObject:
		obj := make(map[string]any, len(v.obj))
		for k, f := range v.obj {
			obj[k] = f.Any()
		}

		return obj
	default:
		return nil
	}
}

// Decode unmarshals v into out through its JSON encoding.
func (v Value) Decode(out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, out)
}

// MarshalJSON implements json.Marshaler. Object keys are written in sorted order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool, KindNumber, KindString:
		b, err := json.Marshal(v.Any())
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, el := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := el.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := v.obj[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%s: %w", v.kind, ErrUnsupported)
	}

	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = out

	return nil
}

func numberOf(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("number %v: %w", f, ErrUnsupported)
	}

	return NumberOf(f), nil
}
