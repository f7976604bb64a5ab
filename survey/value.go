package survey

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "null"
	}
}

// Field is one named entry of a map Value.
type Field struct {
	Name  string
	Value Value
}

// Value is an immutable tagged tree mirroring one raw API record. Resource
// data is deeply nested and dynamically shaped, so the survey stores it as
// a variant tree rather than per-resource-type structs.
type Value struct {
	kind   Kind
	str    string
	num    float64
	b      bool
	list   []Value
	fields []Field
}

// FromAny builds a Value tree from decoded JSON-shaped data. Map keys are
// ordered lexicographically so traversal and serialization are stable.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{}
	case string:
		return Value{kind: KindString, str: t}
	case bool:
		return Value{kind: KindBool, b: t}
	case float64:
		return Value{kind: KindNumber, num: t}
	case float32:
		return Value{kind: KindNumber, num: float64(t)}
	case int:
		return Value{kind: KindNumber, num: float64(t)}
	case int32:
		return Value{kind: KindNumber, num: float64(t)}
	case int64:
		return Value{kind: KindNumber, num: float64(t)}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{kind: KindString, str: t.String()}
		}
		return Value{kind: KindNumber, num: f}
	case []any:
		list := make([]Value, len(t))
		for i, e := range t {
			list[i] = FromAny(e)
		}
		return Value{kind: KindList, list: list}
	case []string:
		list := make([]Value, len(t))
		for i, e := range t {
			list[i] = Value{kind: KindString, str: e}
		}
		return Value{kind: KindList, list: list}
	case map[string]any:
		names := make([]string, 0, len(t))
		for name := range t {
			names = append(names, name)
		}
		sort.Strings(names)
		fields := make([]Field, len(names))
		for i, name := range names {
			fields[i] = Field{Name: name, Value: FromAny(t[name])}
		}
		return Value{kind: KindMap, fields: fields}
	default:
		return Value{kind: KindString, str: fmt.Sprint(t)}
	}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is the null variant.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload, or "" for other kinds.
func (v Value) Str() string { return v.str }

// Num returns the numeric payload, or 0 for other kinds.
func (v Value) Num() float64 { return v.num }

// Bool returns the bool payload, or false for other kinds.
func (v Value) Bool() bool { return v.b }

// Len returns the element count for lists and field count for maps.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.fields)
	default:
		return 0
	}
}

// Index returns the i-th element of a list value.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Value{}, false
	}
	return v.list[i], true
}

// Elements returns the elements of a list value.
func (v Value) Elements() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Field returns the named field of a map value.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Fields returns the ordered fields of a map value.
func (v Value) Fields() []Field {
	if v.kind != KindMap {
		return nil
	}
	return v.fields
}

// Interface converts the tree back to plain JSON-shaped data.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			out[f.Name] = f.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// Resolve walks a dotted attribute path and returns every value found.
// A path segment is a map field name, a numeric index into a list, or "*"
// meaning every element of a list, flattening the results. Unresolvable
// segments return an error wrapping ErrQuery.
func (v Value) Resolve(path string) ([]Value, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrQuery)
	}
	return v.resolve(strings.Split(path, "."), path)
}

func (v Value) resolve(segments []string, full string) ([]Value, error) {
	if len(segments) == 0 {
		return []Value{v}, nil
	}
	seg, rest := segments[0], segments[1:]

	switch {
	case seg == "*":
		if v.kind != KindList {
			return nil, fmt.Errorf("%w: %q is not a collection in path %q", ErrQuery, seg, full)
		}
		var out []Value
		for _, e := range v.list {
			found, err := e.resolve(rest, full)
			if err != nil {
				return nil, err
			}
			out = append(out, found...)
		}
		return out, nil

	case isDigits(seg):
		i, _ := strconv.Atoi(seg)
		e, ok := v.Index(i)
		if !ok {
			return nil, fmt.Errorf("%w: index %s out of range in path %q", ErrQuery, seg, full)
		}
		return e.resolve(rest, full)

	default:
		f, ok := v.Field(seg)
		if !ok {
			return nil, fmt.Errorf("%w: no attribute %q in path %q", ErrQuery, seg, full)
		}
		return f.resolve(rest, full)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
