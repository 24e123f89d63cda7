package tool

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnsupportedUnit is returned by get_current_weather for units other
	// than celsius and fahrenheit.
	ErrUnsupportedUnit = errors.New("unsupported unit")
	// ErrEmptyLocation is returned by get_current_weather for a blank location.
	ErrEmptyLocation = errors.New("location is required")
)

const processValuesSchema = `{
  "type": "function",
  "function": {
    "name": "process_values",
    "description": "Format five typed values into one line.",
    "parameters": {
      "type": "object",
      "properties": {
        "a": {"type": "integer"},
        "b": {"type": "number"},
        "c": {"type": "boolean"},
        "d": {"type": "string"},
        "e": {"type": "integer"}
      },
      "required": ["a", "b", "c", "d", "e"]
    }
  }
}`

const currentWeatherSchema = `{
  "name": "get_current_weather",
  "description": "Get the current weather in a given location",
  "parameters": {
    "type": "object",
    "properties": {
      "location": {
        "type": "string",
        "description": "The city and state, e.g. San Francisco, CA"
      },
      "unit": {
        "type": "string",
        "enum": ["celsius", "fahrenheit"],
        "description": "The unit of measurement"
      }
    },
    "required": ["location", "unit"]
  }
}`

type builtin struct {
	desc Descriptor
	fn   Function
}

var builtins = map[string]builtin{
	"process_values": {
		desc: Descriptor{
			Name:       "process_values",
			Schema:     processValuesSchema,
			Parameters: Params("a", "b", "c", "d", "e"),
		},
		fn: Func5(processValues),
	},
	"get_current_weather": {
		desc: Descriptor{
			Name:       "get_current_weather",
			Schema:     currentWeatherSchema,
			Parameters: Params("location", "unit"),
		},
		fn: Func2(currentWeather),
	},
}

// BuiltinNames returns the names of the built-in tools in lexical order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NewBuiltin constructs the named built-in tool against types.
func NewBuiltin(types *TypeRegistry, name string) (*Tool, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, newToolError(CodeNotFound, "no built-in tool with this name", nil).withTool(name)
	}
	return New(types, b.desc, b.fn)
}

// RegisterBuiltins adds every built-in tool to registry.
func RegisterBuiltins(registry *Registry, types *TypeRegistry) error {
	for _, name := range BuiltinNames() {
		t, err := NewBuiltin(types, name)
		if err != nil {
			return err
		}
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func processValues(a int32, b float32, c bool, d string, e int32) (string, error) {
	return fmt.Sprintf("Processed: a = %v, b = %v, c = %v, d = %s, e = %v", a, b, c, d, e), nil
}

func currentWeather(location, unit string) (string, error) {
	if strings.TrimSpace(location) == "" {
		return "", ErrEmptyLocation
	}
	switch unit {
	case "celsius", "fahrenheit":
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
	return fmt.Sprintf("Weather for %s in %s", location, unit), nil
}
