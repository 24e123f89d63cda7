package tool

import (
	"fmt"
	"strings"
)

// Tool is a registered, immutable callable: a descriptor plus the adapter
// synthesised for its function.
type Tool struct {
	desc      Descriptor
	schema    SchemaDocument
	hasSchema bool
	parsers   []Parser
	invoke    Invoker
}

// New validates desc against types and fn, and synthesises the tool's adapter.
// Parameter specs with an empty Type take the tag of the function's matching
// parameter; other types may use any alias of ParseTypeTag. The parsers found
// in types are bound to the tool and used for every later dispatch.
func New(types *TypeRegistry, desc Descriptor, fn Function) (*Tool, error) {
	if types == nil {
		return nil, newToolError(CodeInvalidDescriptor, "type registry is required", nil).withTool(desc.Name)
	}
	if fn.bind == nil {
		return nil, newToolError(CodeInvalidDescriptor, "function is required", nil).withTool(desc.Name)
	}

	desc = desc.clone()
	desc.Name = strings.TrimSpace(desc.Name)
	if err := resolveParameterTypes(&desc, fn); err != nil {
		return nil, err
	}
	if err := validateDescriptor(types, desc); err != nil {
		return nil, err
	}

	t := &Tool{desc: desc, parsers: make([]Parser, len(desc.Parameters))}
	for i, p := range desc.Parameters {
		t.parsers[i], _ = types.Lookup(p.Type)
	}
	if strings.TrimSpace(desc.Schema) != "" {
		doc, err := ParseSchemaDocument(desc.Schema)
		if err != nil {
			if toolErr, ok := toolErrorFrom(err); ok {
				toolErr.withTool(desc.Name)
			}
			return nil, err
		}
		if doc.Name != desc.Name {
			return nil, newToolError(CodeSchemaNameMismatch,
				fmt.Sprintf("schema declares %q", doc.Name), nil).withTool(desc.Name)
		}
		t.schema = doc
		t.hasSchema = true
	}
	t.invoke = synthesize(desc, fn)
	return t, nil
}

// MustNew is New for package-level tool tables; it panics on error.
func MustNew(types *TypeRegistry, desc Descriptor, fn Function) *Tool {
	t, err := New(types, desc, fn)
	if err != nil {
		panic(err)
	}
	return t
}

func resolveParameterTypes(desc *Descriptor, fn Function) error {
	for i := range desc.Parameters {
		p := &desc.Parameters[i]
		if p.Type == "" {
			if !fn.Typed() {
				return newToolError(CodeUnknownTypeTag, "parameter type is required for dynamic functions", nil).
					withTool(desc.Name).withParameter(p.Name)
			}
			continue
		}
		tag, err := ParseTypeTag(string(p.Type))
		if err != nil {
			if toolErr, ok := toolErrorFrom(err); ok {
				toolErr.withTool(desc.Name).withParameter(p.Name)
			}
			return err
		}
		p.Type = tag
	}
	if !fn.Typed() {
		return nil
	}

	if len(desc.Parameters) != len(fn.tags) {
		return newToolError(CodeTypeMismatch,
			fmt.Sprintf("descriptor declares %d parameters, function takes %d", len(desc.Parameters), len(fn.tags)), nil).
			inStage(StageConstruction).withTool(desc.Name)
	}
	for i := range desc.Parameters {
		p := &desc.Parameters[i]
		if p.Type == "" {
			p.Type = fn.tags[i]
			continue
		}
		if p.Type != fn.tags[i] {
			return newToolError(CodeTypeMismatch,
				fmt.Sprintf("declared %s, function takes %s", p.Type, fn.tags[i]), nil).
				inStage(StageConstruction).withTool(desc.Name).withParameter(p.Name)
		}
	}
	return nil
}

// synthesize builds the uniform adapter: arity and tag checks, typed
// extraction, then the call. Failures of the function itself come back as
// EXECUTION_FAILED with the function's error as cause.
func synthesize(desc Descriptor, fn Function) Invoker {
	params := desc.Parameters
	name := desc.Name
	return func(args []Value) (string, error) {
		if len(args) != len(params) {
			return "", newToolError(CodeArityMismatch,
				fmt.Sprintf("expected %d arguments, got %d", len(params), len(args)), nil).withTool(name)
		}
		for i, p := range params {
			if args[i].Tag() != p.Type {
				return "", newToolError(CodeTypeMismatch,
					fmt.Sprintf("expected %s, got %s", p.Type, args[i].Tag()), nil).
					withTool(name).withParameter(p.Name)
			}
		}

		call, err := fn.bind(args)
		if err != nil {
			if toolErr, ok := toolErrorFrom(err); ok {
				toolErr.withTool(name)
			}
			return "", err
		}
		out, err := call()
		if err != nil {
			return "", newToolError(CodeExecutionFailed, "", err).withTool(name)
		}
		return out, nil
	}
}

// Name returns the tool's registered name.
func (t *Tool) Name() string {
	return t.desc.Name
}

// Descriptor returns a copy of the tool's descriptor with resolved types.
func (t *Tool) Descriptor() Descriptor {
	return t.desc.clone()
}

// Parameters returns a copy of the ordered parameter specs.
func (t *Tool) Parameters() []ParameterSpec {
	return append([]ParameterSpec(nil), t.desc.Parameters...)
}

// Schema returns the raw schema text, or "" when the tool has none.
func (t *Tool) Schema() string {
	return t.desc.Schema
}

// SchemaDocument returns the parsed schema and whether one is present.
func (t *Tool) SchemaDocument() (SchemaDocument, bool) {
	return t.schema, t.hasSchema
}

// Bind resolves payload into this tool's positional values with the parsers
// captured when the tool was built.
func (t *Tool) Bind(payload Payload) ([]Value, error) {
	values, err := bindParameters(t.desc.Parameters, payload, func(i int) (Parser, bool) {
		return t.parsers[i], t.parsers[i] != nil
	})
	if err != nil {
		if toolErr, ok := toolErrorFrom(err); ok {
			toolErr.withTool(t.desc.Name)
		}
		return nil, err
	}
	return values, nil
}

// Call runs the adapter with positional values.
func (t *Tool) Call(args []Value) (string, error) {
	return t.invoke(args)
}
