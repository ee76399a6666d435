package value

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFromAny(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		give     any
		wantKind Kind
		wantAny  any
		wantErr  error
	}{
		{name: "nil", give: nil, wantKind: KindNull, wantAny: nil},
		{name: "bool", give: true, wantKind: KindBool, wantAny: true},
		{name: "int", give: 42, wantKind: KindNumber, wantAny: float64(42)},
		{name: "uint64", give: uint64(7), wantKind: KindNumber, wantAny: float64(7)},
		{name: "json number", give: json.Number("1.5"), wantKind: KindNumber, wantAny: 1.5},
		{name: "string", give: "x", wantKind: KindString, wantAny: "x"},
		{
			name:     "time",
			give:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			wantKind: KindString,
			wantAny:  "2024-01-02T03:04:05Z",
		},
		{
			name:     "nested",
			give:     map[string]any{"a": []any{1, "b", map[any]any{"c": nil}}},
			wantKind: KindObject,
			wantAny:  map[string]any{"a": []any{float64(1), "b", map[string]any{"c": nil}}},
		},
		{
			name: "struct through json",
			give: struct {
				Name string `json:"name"`
			}{Name: "n"},
			wantKind: KindObject,
			wantAny:  map[string]any{"name": "n"},
		},
		{name: "channel", give: make(chan int), wantErr: ErrUnsupported},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := FromAny(tt.give)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, got.Kind())
			if diff := cmp.Diff(tt.wantAny, got.Any()); diff != "" {
				t.Errorf("Any() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValue_Lookup(t *testing.T) {
	t.Parallel()

	v := MustFromAny(map[string]any{
		"id": "parent-123",
		"data": map[string]any{
			"items": []any{map[string]any{"name": "first"}},
		},
	})

	tests := []struct {
		name   string
		path   []string
		want   Value
		wantOK bool
	}{
		{name: "top level", path: []string{"id"}, want: StringOf("parent-123"), wantOK: true},
		{name: "array index", path: []string{"data", "items", "0", "name"}, want: StringOf("first"), wantOK: true},
		{name: "empty path returns self", path: nil, want: v, wantOK: true},
		{name: "missing key", path: []string{"nope"}},
		{name: "index out of range", path: []string{"data", "items", "3"}},
		{name: "non numeric index", path: []string{"data", "items", "x"}},
		{name: "through leaf", path: []string{"id", "x"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := v.Lookup(tt.path...)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.True(t, tt.want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestValue_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give Value
		want string
	}{
		{name: "null", give: Null(), want: "null"},
		{name: "bool", give: BoolOf(false), want: "false"},
		{name: "integer", give: NumberOf(123), want: "123"},
		{name: "fraction", give: NumberOf(1.25), want: "1.25"},
		{name: "string", give: StringOf("abc"), want: "abc"},
		{name: "array", give: ArrayOf(NumberOf(1), StringOf("x")), want: `[1,"x"]`},
		{name: "object sorted keys", give: ObjectOf(map[string]Value{"b": NumberOf(2), "a": Null()}), want: `{"a":null,"b":2}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.give.String())
		})
	}
}

func TestValue_JSON(t *testing.T) {
	t.Parallel()

	const in = `{"name":"Parent","tags":["a","b"],"count":3,"enabled":true,"parent":null}`

	var v Value
	require.NoError(t, json.Unmarshal([]byte(in), &v))
	assert.Equal(t, KindObject, v.Kind())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestValue_YAML(t *testing.T) {
	t.Parallel()

	var v Value
	require.NoError(t, yaml.Unmarshal([]byte("name: Parent\ncount: 2\ntags: [x]\n"), &v))

	want := MustFromAny(map[string]any{"name": "Parent", "count": 2, "tags": []any{"x"}})
	assert.True(t, want.Equal(v), "got %s", v)

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(out), "name: Parent"))
}

func TestTransform(t *testing.T) {
	t.Parallel()

	v := MustFromAny(map[string]any{
		"a": "x",
		"b": []any{"y", 1, true},
		"c": map[string]any{"d": "z"},
	})

	got := Transform(v, strings.ToUpper)

	want := MustFromAny(map[string]any{
		"a": "X",
		"b": []any{"Y", 1, true},
		"c": map[string]any{"d": "Z"},
	})
	assert.True(t, want.Equal(got), "got %s", got)
	// the input is left untouched
	s, _ := v.Get("a")
	assert.Equal(t, "x", s.String())
}

func TestValue_Equal(t *testing.T) {
	t.Parallel()

	a := MustFromAny(map[string]any{"x": []any{1, 2}})
	b := MustFromAny(map[string]any{"x": []any{1, 2}})
	c := MustFromAny(map[string]any{"x": []any{2, 1}})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, Null().Equal(BoolOf(false)))
}

func TestValue_Decode(t *testing.T) {
	t.Parallel()

	type resource struct {
		ID   string `json:"id"`
		Size int    `json:"size"`
	}

	var got resource
	require.NoError(t, MustFromAny(map[string]any{"id": "r1", "size": 4}).Decode(&got))
	assert.Equal(t, resource{ID: "r1", Size: 4}, got)
}
