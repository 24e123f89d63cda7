package tool

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// DuplicatePolicy decides what Register does with a name already present.
type DuplicatePolicy string

const (
	// DuplicateReject keeps the original tool and returns DUPLICATE_TOOL_NAME.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateReplace swaps in the new tool.
	DuplicateReplace DuplicatePolicy = "replace"
)

// ParseDuplicatePolicy reads a policy name; "" selects DuplicateReject.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DuplicateReject:
		return DuplicateReject, nil
	case DuplicateReplace:
		return DuplicateReplace, nil
	default:
		return "", fmt.Errorf("tool: unknown duplicate policy %q (want reject or replace)", s)
	}
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	DuplicatePolicy DuplicatePolicy
}

// Registry maps tool names to tools. It is safe for concurrent use; tools are
// immutable, so a handle returned by Get stays valid after the entry changes.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	policy DuplicatePolicy
}

// NewRegistry returns an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	policy := cfg.DuplicatePolicy
	if policy != DuplicateReplace {
		policy = DuplicateReject
	}
	return &Registry{
		tools:  make(map[string]*Tool),
		policy: policy,
	}
}

// Policy returns the registry's duplicate policy.
func (r *Registry) Policy() DuplicatePolicy {
	return r.policy
}

// Register adds t under its name.
func (r *Registry) Register(t *Tool) error {
	if t == nil {
		return newToolError(CodeInvalidDescriptor, "tool is nil", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists && r.policy == DuplicateReject {
		return newToolError(CodeDuplicateToolName, "tool already registered", nil).withTool(t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Unregister removes name and reports whether it was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return false
	}
	delete(r.tools, name)
	return true
}

func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Names returns registered names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// List returns registered tools ordered by name.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	tools := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	r.mu.RUnlock()
	slices.SortFunc(tools, func(a, b *Tool) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return tools
}

// Schemas returns the raw schema documents of tools that carry one, ordered
// by tool name, ready to hand to an invoker.
func (r *Registry) Schemas() []string {
	tools := r.List()
	out := make([]string, 0, len(tools))
	for _, t := range tools {
		if _, ok := t.SchemaDocument(); ok {
			out = append(out, t.Schema())
		}
	}
	return out
}
