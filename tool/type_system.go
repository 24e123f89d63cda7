package tool

import (
	"fmt"
	"slices"
)

// TypeTag identifies one of the primitive kinds a tool parameter may declare.
type TypeTag string

// Canonical type tags. The set is closed.
const (
	TypeInteger32 TypeTag = "int32"
	TypeFloat32   TypeTag = "float32"
	TypeBoolean   TypeTag = "bool"
	TypeText      TypeTag = "string"
)

var typeTagAliases = map[string]TypeTag{
	"int32":     TypeInteger32,
	"i32":       TypeInteger32,
	"integer":   TypeInteger32,
	"integer32": TypeInteger32,
	"float32":   TypeFloat32,
	"f32":       TypeFloat32,
	"float":     TypeFloat32,
	"number":    TypeFloat32,
	"bool":      TypeBoolean,
	"boolean":   TypeBoolean,
	"string":    TypeText,
	"String":    TypeText,
	"&str":      TypeText,
	"str":       TypeText,
	"text":      TypeText,
}

// AllTypeTags returns every supported tag in canonical order.
func AllTypeTags() []TypeTag {
	return []TypeTag{TypeInteger32, TypeFloat32, TypeBoolean, TypeText}
}

// Valid reports whether t is a member of the closed tag set.
func (t TypeTag) Valid() bool {
	return slices.Contains(AllTypeTags(), t)
}

func (t TypeTag) String() string {
	return string(t)
}

// ParseTypeTag resolves a canonical token or one of its aliases.
func ParseTypeTag(token string) (TypeTag, error) {
	if tag, ok := typeTagAliases[token]; ok {
		return tag, nil
	}
	return "", newToolError(CodeUnknownTypeTag, fmt.Sprintf("unsupported type %q; allowed: int32, float32, bool, string", token), nil)
}

// Primitive is the set of Go types a typed tool function may accept.
type Primitive interface {
	int32 | float32 | bool | string
}

// tagOf maps a Primitive type parameter to its tag.
func tagOf[T Primitive]() TypeTag {
	var zero T
	switch any(zero).(type) {
	case int32:
		return TypeInteger32
	case float32:
		return TypeFloat32
	case bool:
		return TypeBoolean
	default:
		return TypeText
	}
}

// valueAs extracts the primitive held by v as T, reporting false when the
// value's tag does not match T.
func valueAs[T Primitive](v Value) (T, bool) {
	var out T
	var ok bool
	switch p := any(&out).(type) {
	case *int32:
		*p, ok = v.Int32()
	case *float32:
		*p, ok = v.Float32()
	case *bool:
		*p, ok = v.Bool()
	case *string:
		*p, ok = v.Text()
	}
	return out, ok
}
