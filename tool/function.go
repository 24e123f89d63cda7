package tool

import "fmt"

// Function is a Go function prepared for registration. The typed constructors
// (Func0 through Func6) record the function's parameter tags and know how to
// extract each positional Value as the matching Go type.
type Function struct {
	tags []TypeTag
	bind func(args []Value) (func() (string, error), error)
}

// Invoker is the uniform call shape every tool exposes.
type Invoker func(args []Value) (string, error)

// Typed reports whether the function carries its own parameter tags.
func (f Function) Typed() bool {
	return f.tags != nil
}

// Arity returns the number of parameters of a typed function, or -1.
func (f Function) Arity() int {
	if f.tags == nil {
		return -1
	}
	return len(f.tags)
}

// Dynamic wraps a function that consumes Values directly. The descriptor's
// parameter types are authoritative for such functions. A nil fn yields a
// zero Function, which New rejects.
func Dynamic(fn func(args []Value) (string, error)) Function {
	if fn == nil {
		return Function{}
	}
	return Function{
		bind: func(args []Value) (func() (string, error), error) {
			return func() (string, error) { return fn(args) }, nil
		},
	}
}

func Func0(fn func() (string, error)) Function {
	if fn == nil {
		return Function{}
	}
	return Function{
		tags: []TypeTag{},
		bind: func([]Value) (func() (string, error), error) {
			return fn, nil
		},
	}
}

func Func1[A Primitive](fn func(A) (string, error)) Function {
	if fn == nil {
		return Function{}
	}
	return Function{
		tags: []TypeTag{tagOf[A]()},
		bind: func(args []Value) (func() (string, error), error) {
			a, err := argAt[A](args, 0)
			if err != nil {
				return nil, err
			}
			return func() (string, error) { return fn(a) }, nil
		},
	}
}

func Func2[A, B Primitive](fn func(A, B) (string, error)) Function {
	if fn == nil {
		return Function{}
	}
	return Function{
		tags: []TypeTag{tagOf[A](), tagOf[B]()},
		bind: func(args []Value) (func() (string, error), error) {
			a, err := argAt[A](args, 0)
			if err != nil {
				return nil, err
			}
			b, err := argAt[B](args, 1)
			if err != nil {
				return nil, err
			}
			return func() (string, error) { return fn(a, b) }, nil
		},
	}
}

func Func3[A, B, C Primitive](fn func(A, B, C) (string, error)) Function {
	if fn == nil {
		return Function{}
	}
	return Function{
		tags: []TypeTag{tagOf[A](), tagOf[B](), tagOf[C]()},
		bind: func(args []Value) (func() (string, error), error) {
			a, err := argAt[A](args, 0)
			if err != nil {
				return nil, err
			}
			b, err := argAt[B](args, 1)
			if err != nil {
				return nil, err
			}
			c, err := argAt[C](args, 2)
			if err != nil {
				return nil, err
			}
			return func() (string, error) { return fn(a, b, c) }, nil
		},
	}
}

func Func4[A, B, C, D Primitive](fn func(A, B, C, D) (string, error)) Function {
	if fn == nil {
		return Function{}
	}
	return Function{
		tags: []TypeTag{tagOf[A](), tagOf[B](), tagOf[C](), tagOf[D]()},
		bind: func(args []Value) (func() (string, error), error) {
			a, err := argAt[A](args, 0)
			if err != nil {
				return nil, err
			}
			b, err := argAt[B](args, 1)
			if err != nil {
				return nil, err
			}
			c, err := argAt[C](args, 2)
			if err != nil {
				return nil, err
			}
			d, err := argAt[D](args, 3)
			if err != nil {
				return nil, err
			}
			return func() (string, error) { return fn(a, b, c, d) }, nil
		},
	}
}

func Func5[A, B, C, D, E Primitive](fn func(A, B, C, D, E) (string, error)) Function {
	if fn == nil {
		return Function{}
	}
	return Function{
		tags: []TypeTag{tagOf[A](), tagOf[B](), tagOf[C](), tagOf[D](), tagOf[E]()},
		bind: func(args []Value) (func() (string, error), error) {
			a, err := argAt[A](args, 0)
			if err != nil {
				return nil, err
			}
			b, err := argAt[B](args, 1)
			if err != nil {
				return nil, err
			}
			c, err := argAt[C](args, 2)
			if err != nil {
				return nil, err
			}
			d, err := argAt[D](args, 3)
			if err != nil {
				return nil, err
			}
			e, err := argAt[E](args, 4)
			if err != nil {
				return nil, err
			}
			return func() (string, error) { return fn(a, b, c, d, e) }, nil
		},
	}
}

func Func6[A, B, C, D, E, F Primitive](fn func(A, B, C, D, E, F) (string, error)) Function {
	if fn == nil {
		return Function{}
	}
	return Function{
		tags: []TypeTag{tagOf[A](), tagOf[B](), tagOf[C](), tagOf[D](), tagOf[E](), tagOf[F]()},
		bind: func(args []Value) (func() (string, error), error) {
			a, err := argAt[A](args, 0)
			if err != nil {
				return nil, err
			}
			b, err := argAt[B](args, 1)
			if err != nil {
				return nil, err
			}
			c, err := argAt[C](args, 2)
			if err != nil {
				return nil, err
			}
			d, err := argAt[D](args, 3)
			if err != nil {
				return nil, err
			}
			e, err := argAt[E](args, 4)
			if err != nil {
				return nil, err
			}
			f, err := argAt[F](args, 5)
			if err != nil {
				return nil, err
			}
			return func() (string, error) { return fn(a, b, c, d, e, f) }, nil
		},
	}
}

func argAt[T Primitive](args []Value, i int) (T, error) {
	var zero T
	if i >= len(args) {
		return zero, newToolError(CodeArityMismatch, fmt.Sprintf("argument %d not supplied", i), nil)
	}
	v, ok := valueAs[T](args[i])
	if !ok {
		return zero, newToolError(CodeTypeMismatch, fmt.Sprintf("argument %d: expected %s, got %s", i, tagOf[T](), args[i].Tag()), nil)
	}
	return v, nil
}
