package tool

import (
	"context"
	"errors"
	"testing"
)

func newBuiltinDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	types := DefaultTypeRegistry(TypeOptions{})
	registry := NewRegistry(RegistryConfig{})
	if err := RegisterBuiltins(registry, types); err != nil {
		t.Fatalf("RegisterBuiltins() error = %v", err)
	}
	return NewDispatcher(DispatcherConfig{Registry: registry})
}

func TestBuiltinNames(t *testing.T) {
	names := BuiltinNames()
	if len(names) != 2 || names[0] != "get_current_weather" || names[1] != "process_values" {
		t.Fatalf("BuiltinNames() = %v", names)
	}
	if _, err := NewBuiltin(DefaultTypeRegistry(TypeOptions{}), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("NewBuiltin(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestProcessValuesFromUnorderedList(t *testing.T) {
	d := newBuiltinDispatcher(t)
	payload := mustDecodePayload(t, `{"arguments":[{"e":100},{"a":42},{"c":true},{"b":3.14},{"d":"Hello, world!"}]}`)

	out, err := d.Dispatch(context.Background(), "process_values", payload)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	want := "Processed: a = 42, b = 3.14, c = true, d = Hello, world!, e = 100"
	if out != want {
		t.Fatalf("Dispatch() = %q, want %q", out, want)
	}
}

func TestProcessValuesMissingEachArgument(t *testing.T) {
	d := newBuiltinDispatcher(t)
	full := map[string]any{"a": 42, "b": 3.14, "c": true, "d": "Hello, world!", "e": 100}

	for _, missing := range []string{"a", "b", "c", "d", "e"} {
		t.Run(missing, func(t *testing.T) {
			var list []any
			for _, name := range []string{"a", "b", "c", "d", "e"} {
				if name != missing {
					list = append(list, map[string]any{name: full[name]})
				}
			}
			_, err := d.Dispatch(context.Background(), "process_values", Payload{"arguments": list})
			var toolErr *ToolError
			if !errors.As(err, &toolErr) || toolErr.Code != CodeMissingArgument {
				t.Fatalf("Dispatch() error = %v, want MISSING_ARGUMENT", err)
			}
			if toolErr.Parameter != missing || toolErr.Tool != "process_values" {
				t.Fatalf("Dispatch() error parameter = %q tool = %q, want %q", toolErr.Parameter, toolErr.Tool, missing)
			}
		})
	}
}

func TestProcessValuesSchema(t *testing.T) {
	tl, err := NewBuiltin(DefaultTypeRegistry(TypeOptions{}), "process_values")
	if err != nil {
		t.Fatalf("NewBuiltin() error = %v", err)
	}
	doc, ok := tl.SchemaDocument()
	if !ok || doc.Name != "process_values" {
		t.Fatalf("SchemaDocument() = %+v, %v", doc, ok)
	}
	want := []TypeTag{TypeInteger32, TypeFloat32, TypeBoolean, TypeText, TypeInteger32}
	for i, p := range tl.Parameters() {
		if p.Type != want[i] {
			t.Fatalf("parameter %s type = %q, want %q", p.Name, p.Type, want[i])
		}
	}
}

func TestCurrentWeather(t *testing.T) {
	d := newBuiltinDispatcher(t)
	payload := mustDecodePayload(t, `{"location":"Glasgow, Scotland","unit":"celsius"}`)

	out, err := d.Dispatch(context.Background(), "get_current_weather", payload)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if out != "Weather for Glasgow, Scotland in celsius" {
		t.Fatalf("Dispatch() = %q", out)
	}
}

func TestCurrentWeatherDomainFailure(t *testing.T) {
	d := newBuiltinDispatcher(t)

	tests := []struct {
		payload string
		want    error
	}{
		{payload: `{"location":"Glasgow, Scotland","unit":"kelvin"}`, want: ErrUnsupportedUnit},
		{payload: `{"location":" ","unit":"celsius"}`, want: ErrEmptyLocation},
	}
	for _, tt := range tests {
		_, err := d.Dispatch(context.Background(), "get_current_weather", mustDecodePayload(t, tt.payload))
		if !errors.Is(err, ErrExecution) {
			t.Fatalf("Dispatch(%s) error = %v, want EXECUTION_FAILED", tt.payload, err)
		}
		if !errors.Is(err, tt.want) {
			t.Fatalf("Dispatch(%s) error = %v, want cause %v", tt.payload, err, tt.want)
		}
	}
}
