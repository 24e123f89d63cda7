package tool

import (
	"fmt"
	"strconv"
)

// Value holds exactly one parsed primitive of one TypeTag. The zero Value has
// no tag and matches no accessor.
type Value struct {
	tag TypeTag
	i   int32
	f   float32
	b   bool
	s   string
}

// Int32Value wraps an int32.
func Int32Value(v int32) Value { return Value{tag: TypeInteger32, i: v} }

// Float32Value wraps a float32.
func Float32Value(v float32) Value { return Value{tag: TypeFloat32, f: v} }

// BoolValue wraps a bool.
func BoolValue(v bool) Value { return Value{tag: TypeBoolean, b: v} }

// TextValue wraps a string.
func TextValue(v string) Value { return Value{tag: TypeText, s: v} }

// Tag returns the kind of primitive held.
func (v Value) Tag() TypeTag { return v.tag }

func (v Value) Int32() (int32, bool) {
	return v.i, v.tag == TypeInteger32
}

func (v Value) Float32() (float32, bool) {
	return v.f, v.tag == TypeFloat32
}

func (v Value) Bool() (bool, bool) {
	return v.b, v.tag == TypeBoolean
}

func (v Value) Text() (string, bool) {
	return v.s, v.tag == TypeText
}

// Any returns the held primitive as an interface value, or nil for the zero Value.
func (v Value) Any() any {
	switch v.tag {
	case TypeInteger32:
		return v.i
	case TypeFloat32:
		return v.f
	case TypeBoolean:
		return v.b
	case TypeText:
		return v.s
	default:
		return nil
	}
}

// String formats the primitive the same way fmt's %v verb does.
func (v Value) String() string {
	switch v.tag {
	case TypeInteger32:
		return strconv.FormatInt(int64(v.i), 10)
	case TypeFloat32:
		return strconv.FormatFloat(float64(v.f), 'g', -1, 32)
	case TypeBoolean:
		return strconv.FormatBool(v.b)
	case TypeText:
		return v.s
	default:
		return fmt.Sprintf("<invalid %q>", string(v.tag))
	}
}
