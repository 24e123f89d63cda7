package tool

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func constantTool(t *testing.T, name, out string) *Tool {
	t.Helper()
	tl, err := New(DefaultTypeRegistry(TypeOptions{}), Descriptor{Name: name}, Func0(func() (string, error) {
		return out, nil
	}))
	if err != nil {
		t.Fatalf("New(%s) error = %v", name, err)
	}
	return tl
}

func TestRegistryRejectsDuplicatesByDefault(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	if r.Policy() != DuplicateReject {
		t.Fatalf("Policy() = %q, want reject", r.Policy())
	}

	if err := r.Register(constantTool(t, "greet", "first")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := r.Register(constantTool(t, "greet", "second"))
	if !errors.Is(err, ErrDuplicateToolName) {
		t.Fatalf("Register() duplicate error = %v, want DUPLICATE_TOOL_NAME", err)
	}

	tl, ok := r.Get("greet")
	if !ok {
		t.Fatal("Get(greet) ok = false")
	}
	if out, _ := tl.Call(nil); out != "first" {
		t.Fatalf("Call() = %q, want original tool to stay callable", out)
	}
}

func TestRegistryReplacePolicy(t *testing.T) {
	r := NewRegistry(RegistryConfig{DuplicatePolicy: DuplicateReplace})
	if err := r.Register(constantTool(t, "greet", "first")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	old, _ := r.Get("greet")
	if err := r.Register(constantTool(t, "greet", "second")); err != nil {
		t.Fatalf("Register() replace error = %v", err)
	}

	tl, _ := r.Get("greet")
	if out, _ := tl.Call(nil); out != "second" {
		t.Fatalf("Call() = %q, want second", out)
	}
	if out, _ := old.Call(nil); out != "first" {
		t.Fatalf("old handle Call() = %q, want first", out)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistryRepeatedDuplicates(t *testing.T) {
	tests := []struct {
		policy   DuplicatePolicy
		wantErr  bool
		wantLast func(attempt int) string
	}{
		{policy: DuplicateReject, wantErr: true, wantLast: func(int) string { return "v0" }},
		{policy: DuplicateReplace, wantErr: false, wantLast: func(attempt int) string { return fmt.Sprintf("v%d", attempt) }},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			r := NewRegistry(RegistryConfig{DuplicatePolicy: tt.policy})
			if err := r.Register(constantTool(t, "greet", "v0")); err != nil {
				t.Fatalf("Register(v0) error = %v", err)
			}
			for attempt := 1; attempt <= 4; attempt++ {
				err := r.Register(constantTool(t, "greet", fmt.Sprintf("v%d", attempt)))
				if tt.wantErr != errors.Is(err, ErrDuplicateToolName) {
					t.Fatalf("Register(v%d) error = %v, want duplicate error %v", attempt, err, tt.wantErr)
				}
				if !tt.wantErr && err != nil {
					t.Fatalf("Register(v%d) error = %v", attempt, err)
				}
				tl, ok := r.Get("greet")
				if !ok {
					t.Fatal("Get(greet) ok = false")
				}
				if out, _ := tl.Call(nil); out != tt.wantLast(attempt) {
					t.Fatalf("after attempt %d Call() = %q, want %q", attempt, out, tt.wantLast(attempt))
				}
				if r.Len() != 1 {
					t.Fatalf("Len() = %d, want 1", r.Len())
				}
			}
		})
	}
}

func TestRegistryListingAndUnregister(t *testing.T) {
	r := NewRegistry(RegistryConfig{})
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(constantTool(t, name, name)); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}

	names := r.Names()
	if fmt.Sprint(names) != "[alpha mid zeta]" {
		t.Fatalf("Names() = %v", names)
	}
	list := r.List()
	if len(list) != 3 || list[0].Name() != "alpha" || list[2].Name() != "zeta" {
		t.Fatalf("List() order wrong: %v", names)
	}

	if !r.Unregister("mid") {
		t.Fatal("Unregister(mid) = false")
	}
	if r.Unregister("mid") {
		t.Fatal("Unregister(mid) twice = true")
	}
	if r.Has("mid") {
		t.Fatal("Has(mid) = true after Unregister")
	}
	if err := r.Register(nil); !errors.Is(err, ErrInvalidDescriptor) {
		t.Fatalf("Register(nil) error = %v", err)
	}
}

func TestRegistrySchemas(t *testing.T) {
	types := DefaultTypeRegistry(TypeOptions{})
	r := NewRegistry(RegistryConfig{})
	if err := RegisterBuiltins(r, types); err != nil {
		t.Fatalf("RegisterBuiltins() error = %v", err)
	}
	if err := r.Register(constantTool(t, "plain", "x")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	schemas := r.Schemas()
	if len(schemas) != 2 {
		t.Fatalf("Schemas() returned %d documents, want 2", len(schemas))
	}
	if schemas[0] != currentWeatherSchema || schemas[1] != processValuesSchema {
		t.Fatal("Schemas() not ordered by tool name")
	}
}

func TestParseDuplicatePolicy(t *testing.T) {
	tests := map[string]DuplicatePolicy{
		"":        DuplicateReject,
		"reject":  DuplicateReject,
		"Replace": DuplicateReplace,
	}
	for in, want := range tests {
		got, err := ParseDuplicatePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParseDuplicatePolicy(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
	if _, err := ParseDuplicatePolicy("merge"); err == nil {
		t.Fatal(`ParseDuplicatePolicy("merge") error = nil`)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry(RegistryConfig{DuplicatePolicy: DuplicateReplace})
	tools := make([]*Tool, 16)
	for i := range tools {
		tools[i] = constantTool(t, fmt.Sprintf("tool_%02d", i), fmt.Sprint(i))
	}

	var wg sync.WaitGroup
	for i := range tools {
		wg.Add(2)
		go func(tl *Tool) {
			defer wg.Done()
			_ = r.Register(tl)
		}(tools[i])
		go func(name string) {
			defer wg.Done()
			if tl, ok := r.Get(name); ok {
				_, _ = tl.Call(nil)
			}
			_ = r.Names()
		}(tools[i].Name())
	}
	wg.Wait()

	if r.Len() != len(tools) {
		t.Fatalf("Len() = %d, want %d", r.Len(), len(tools))
	}
}
