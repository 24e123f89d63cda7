package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
)

// Parser converts one raw external value into a typed Value.
type Parser func(raw any) (Value, error)

// ParseError reports a raw value that could not be converted to a tag.
type ParseError struct {
	Tag   TypeTag
	Raw   any
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot parse %s as %s: %v", describeRaw(e.Raw), e.Tag, e.Cause)
	}
	return fmt.Sprintf("cannot parse %s as %s", describeRaw(e.Raw), e.Tag)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

var (
	errOutOfRange       = errors.New("value out of range")
	errNotIntegral      = errors.New("value is not an integer")
	errBooleanToken     = errors.New(`expected "true" or "false"`)
	errUnsupportedInput = errors.New("unsupported input kind")
)

// TypeOptions tunes the default parsers.
type TypeOptions struct {
	// CaseInsensitiveBooleans accepts "TRUE", "False" and so on in addition
	// to the lower-case literals.
	CaseInsensitiveBooleans bool
}

// TypeRegistry maps type tags to parsers. Registering a tag twice is rejected.
type TypeRegistry struct {
	mu      sync.RWMutex
	parsers map[TypeTag]Parser
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{parsers: make(map[TypeTag]Parser)}
}

// DefaultTypeRegistry returns a registry with parsers for every supported tag.
func DefaultTypeRegistry(opts TypeOptions) *TypeRegistry {
	r := NewTypeRegistry()
	r.parsers[TypeInteger32] = parseInteger32
	r.parsers[TypeFloat32] = parseFloat32
	r.parsers[TypeBoolean] = booleanParser(opts.CaseInsensitiveBooleans)
	r.parsers[TypeText] = parseText
	return r
}

// Register installs parser for tag.
func (r *TypeRegistry) Register(tag TypeTag, parser Parser) error {
	if !tag.Valid() {
		return newToolError(CodeUnknownTypeTag, fmt.Sprintf("unsupported type %q", string(tag)), nil)
	}
	if parser == nil {
		return newToolError(CodeInvalidDescriptor, fmt.Sprintf("parser for %s is nil", tag), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.parsers[tag]; exists {
		return newToolError(CodeDuplicateParser, fmt.Sprintf("parser for %s already registered", tag), nil)
	}
	r.parsers[tag] = parser
	return nil
}

// Lookup returns the parser registered for tag.
func (r *TypeRegistry) Lookup(tag TypeTag) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[tag]
	return p, ok
}

// LookupToken resolves a tag token (or alias) and returns its parser.
func (r *TypeRegistry) LookupToken(token string) (Parser, TypeTag, error) {
	tag, err := ParseTypeTag(token)
	if err != nil {
		return nil, "", err
	}
	p, ok := r.Lookup(tag)
	if !ok {
		return nil, tag, newToolError(CodeUnknownTypeTag, fmt.Sprintf("no parser registered for %s", tag), nil)
	}
	return p, tag, nil
}

// Tags returns registered tags in canonical order.
func (r *TypeRegistry) Tags() []TypeTag {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]TypeTag, 0, len(r.parsers))
	for _, tag := range AllTypeTags() {
		if _, ok := r.parsers[tag]; ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

func parseInteger32(raw any) (Value, error) {
	fail := func(cause error) (Value, error) {
		return Value{}, &ParseError{Tag: TypeInteger32, Raw: raw, Cause: cause}
	}

	switch v := raw.(type) {
	case string:
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fail(unwrapNumError(err))
		}
		return Int32Value(int32(n)), nil
	case json.Number:
		if n, err := strconv.ParseInt(string(v), 10, 32); err == nil {
			return Int32Value(int32(n)), nil
		}
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return fail(unwrapNumError(err))
		}
		return integerFromFloat(raw, f)
	case float64:
		return integerFromFloat(raw, v)
	case float32:
		return integerFromFloat(raw, float64(v))
	case int:
		return integerFromInt64(raw, int64(v))
	case int8:
		return Int32Value(int32(v)), nil
	case int16:
		return Int32Value(int32(v)), nil
	case int32:
		return Int32Value(v), nil
	case int64:
		return integerFromInt64(raw, v)
	case uint8:
		return Int32Value(int32(v)), nil
	case uint16:
		return Int32Value(int32(v)), nil
	case uint32:
		if v > math.MaxInt32 {
			return fail(errOutOfRange)
		}
		return Int32Value(int32(v)), nil
	case uint64:
		if v > math.MaxInt32 {
			return fail(errOutOfRange)
		}
		return Int32Value(int32(v)), nil
	default:
		return fail(errUnsupportedInput)
	}
}

func integerFromFloat(raw any, f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return Value{}, &ParseError{Tag: TypeInteger32, Raw: raw, Cause: errNotIntegral}
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return Value{}, &ParseError{Tag: TypeInteger32, Raw: raw, Cause: errOutOfRange}
	}
	return Int32Value(int32(f)), nil
}

func integerFromInt64(raw any, n int64) (Value, error) {
	if n < math.MinInt32 || n > math.MaxInt32 {
		return Value{}, &ParseError{Tag: TypeInteger32, Raw: raw, Cause: errOutOfRange}
	}
	return Int32Value(int32(n)), nil
}

func parseFloat32(raw any) (Value, error) {
	fail := func(cause error) (Value, error) {
		return Value{}, &ParseError{Tag: TypeFloat32, Raw: raw, Cause: cause}
	}

	switch v := raw.(type) {
	case string:
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fail(unwrapNumError(err))
		}
		return Float32Value(float32(f)), nil
	case json.Number:
		f, err := strconv.ParseFloat(string(v), 32)
		if err != nil {
			return fail(unwrapNumError(err))
		}
		return Float32Value(float32(f)), nil
	case float32:
		return Float32Value(v), nil
	case float64:
		if !math.IsInf(v, 0) && !math.IsNaN(v) && math.Abs(v) > math.MaxFloat32 {
			return fail(errOutOfRange)
		}
		return Float32Value(float32(v)), nil
	case int:
		return Float32Value(float32(v)), nil
	case int8:
		return Float32Value(float32(v)), nil
	case int16:
		return Float32Value(float32(v)), nil
	case int32:
		return Float32Value(float32(v)), nil
	case int64:
		return Float32Value(float32(v)), nil
	case uint8:
		return Float32Value(float32(v)), nil
	case uint16:
		return Float32Value(float32(v)), nil
	case uint32:
		return Float32Value(float32(v)), nil
	case uint64:
		return Float32Value(float32(v)), nil
	default:
		return fail(errUnsupportedInput)
	}
}

func booleanParser(caseInsensitive bool) Parser {
	return func(raw any) (Value, error) {
		switch v := raw.(type) {
		case bool:
			return BoolValue(v), nil
		case string:
			token := v
			if caseInsensitive {
				token = strings.ToLower(token)
			}
			switch token {
			case "true":
				return BoolValue(true), nil
			case "false":
				return BoolValue(false), nil
			}
			return Value{}, &ParseError{Tag: TypeBoolean, Raw: raw, Cause: errBooleanToken}
		default:
			return Value{}, &ParseError{Tag: TypeBoolean, Raw: raw, Cause: errUnsupportedInput}
		}
	}
}

func parseText(raw any) (Value, error) {
	switch v := raw.(type) {
	case string:
		return TextValue(v), nil
	case json.Number:
		return TextValue(string(v)), nil
	case bool:
		return TextValue(strconv.FormatBool(v)), nil
	case float64:
		return TextValue(strconv.FormatFloat(v, 'f', -1, 64)), nil
	case float32:
		return TextValue(strconv.FormatFloat(float64(v), 'f', -1, 32)), nil
	case int:
		return TextValue(strconv.Itoa(v)), nil
	case int32:
		return TextValue(strconv.FormatInt(int64(v), 10)), nil
	case int64:
		return TextValue(strconv.FormatInt(v, 10)), nil
	default:
		return Value{}, &ParseError{Tag: TypeText, Raw: raw, Cause: errUnsupportedInput}
	}
}

func unwrapNumError(err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		if errors.Is(numErr.Err, strconv.ErrRange) {
			return errOutOfRange
		}
		return numErr.Err
	}
	return err
}

func describeRaw(raw any) string {
	switch v := raw.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case json.Number:
		return string(v)
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%v", v)
	}
}
