package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParameterSpec names one positional parameter and its declared type.
type ParameterSpec struct {
	Name string  `json:"name" yaml:"name"`
	Type TypeTag `json:"type" yaml:"type"`
}

// Descriptor is the immutable metadata of a tool. Parameter order is the
// canonical binding order for every call.
type Descriptor struct {
	Name       string          `json:"name" yaml:"name"`
	Schema     string          `json:"schema,omitempty" yaml:"schema,omitempty"`
	Parameters []ParameterSpec `json:"parameters" yaml:"parameters"`
}

// Params builds parameter specs for names whose types are taken from the
// function passed to New.
func Params(names ...string) []ParameterSpec {
	specs := make([]ParameterSpec, len(names))
	for i, name := range names {
		specs[i] = ParameterSpec{Name: name}
	}
	return specs
}

// ParameterNames returns parameter names in declaration order.
func (d Descriptor) ParameterNames() []string {
	names := make([]string, len(d.Parameters))
	for i, p := range d.Parameters {
		names[i] = p.Name
	}
	return names
}

func (d Descriptor) clone() Descriptor {
	out := d
	out.Parameters = append([]ParameterSpec(nil), d.Parameters...)
	return out
}

// SchemaDocument is the parsed view of a descriptor's schema text. Only the
// name is checked; Raw is handed back to external consumers untouched.
type SchemaDocument struct {
	Name        string
	Description string
	Raw         string
}

type schemaHeader struct {
	Type        string `json:"type" yaml:"type"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Function    *struct {
		Name        string `json:"name" yaml:"name"`
		Description string `json:"description" yaml:"description"`
	} `json:"function" yaml:"function"`
}

// ParseSchemaDocument reads the name and description of a JSON or YAML schema
// document. The OpenAI {"type":"function","function":{...}} wrapper is
// recognised.
func ParseSchemaDocument(text string) (SchemaDocument, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return SchemaDocument{}, newToolError(CodeSchemaParseFailure, "schema document is empty", nil)
	}

	var header schemaHeader
	if strings.HasPrefix(trimmed, "{") {
		dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
		if err := dec.Decode(&header); err != nil {
			return SchemaDocument{}, newToolError(CodeSchemaParseFailure, fmt.Sprintf("invalid JSON schema document: %v", err), err)
		}
		if dec.More() {
			return SchemaDocument{}, newToolError(CodeSchemaParseFailure, "invalid JSON schema document: trailing data", nil)
		}
	} else {
		var node yaml.Node
		if err := yaml.Unmarshal([]byte(trimmed), &node); err != nil {
			return SchemaDocument{}, newToolError(CodeSchemaParseFailure, fmt.Sprintf("invalid YAML schema document: %v", err), err)
		}
		if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
			return SchemaDocument{}, newToolError(CodeSchemaParseFailure, "schema document must be a mapping", nil)
		}
		if err := node.Content[0].Decode(&header); err != nil {
			return SchemaDocument{}, newToolError(CodeSchemaParseFailure, fmt.Sprintf("invalid YAML schema document: %v", err), err)
		}
	}

	doc := SchemaDocument{
		Name:        strings.TrimSpace(header.Name),
		Description: header.Description,
		Raw:         text,
	}
	if doc.Name == "" && header.Function != nil {
		doc.Name = strings.TrimSpace(header.Function.Name)
		doc.Description = header.Function.Description
	}
	if doc.Name == "" {
		return SchemaDocument{}, newToolError(CodeSchemaParseFailure, "schema document declares no name", nil)
	}
	return doc, nil
}

// validateDescriptor checks descriptor names and tag coverage. Parameter types
// must already be resolved.
func validateDescriptor(types *TypeRegistry, desc Descriptor) error {
	if strings.TrimSpace(desc.Name) == "" {
		return newToolError(CodeInvalidDescriptor, "tool name is required", nil)
	}

	seen := make(map[string]struct{}, len(desc.Parameters))
	for i, p := range desc.Parameters {
		if strings.TrimSpace(p.Name) == "" {
			return newToolError(CodeInvalidDescriptor, fmt.Sprintf("parameter %d has no name", i), nil).withTool(desc.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return newToolError(CodeInvalidDescriptor, fmt.Sprintf("parameter %q declared twice", p.Name), nil).
				withTool(desc.Name).withParameter(p.Name)
		}
		seen[p.Name] = struct{}{}

		if !p.Type.Valid() {
			return newToolError(CodeUnknownTypeTag, fmt.Sprintf("unsupported type %q", string(p.Type)), nil).
				withTool(desc.Name).withParameter(p.Name)
		}
		if _, ok := types.Lookup(p.Type); !ok {
			return newToolError(CodeUnknownTypeTag, fmt.Sprintf("no parser registered for %s", p.Type), nil).
				withTool(desc.Name).withParameter(p.Name)
		}
	}
	return nil
}
