package tool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ArgumentsKey is the payload key under which invokers nest arguments.
const ArgumentsKey = "arguments"

// Payload is a decoded external argument document.
type Payload map[string]any

// Bind produces one Value per parameter, in declaration order. Each value is
// looked up at the top level, then in a mapping under "arguments", then in the
// first mapping element of a list under "arguments" that holds the key. A
// string under "arguments" is decoded as JSON before lookup. Null counts as
// absent.
func Bind(types *TypeRegistry, params []ParameterSpec, payload Payload) ([]Value, error) {
	return bindParameters(params, payload, func(i int) (Parser, bool) {
		if tag, err := ParseTypeTag(string(params[i].Type)); err == nil {
			return types.Lookup(tag)
		}
		return nil, false
	})
}

func bindParameters(params []ParameterSpec, payload Payload, parserAt func(i int) (Parser, bool)) ([]Value, error) {
	nested, err := nestedArguments(payload)
	if err != nil {
		return nil, err
	}

	values := make([]Value, 0, len(params))
	for i, p := range params {
		raw, ok := locate(payload, nested, p.Name)
		if !ok {
			return nil, newToolError(CodeMissingArgument, "argument not supplied", nil).withParameter(p.Name)
		}

		parser, found := parserAt(i)
		if !found {
			return nil, newToolError(CodeUnknownTypeTag, fmt.Sprintf("no parser registered for %s", p.Type), nil).
				withParameter(p.Name)
		}
		v, err := parser(raw)
		if err != nil {
			return nil, newToolError(CodeArgumentParseError, "", err).withParameter(p.Name)
		}
		values = append(values, v)
	}
	return values, nil
}

func nestedArguments(payload Payload) (any, error) {
	nested, ok := payload[ArgumentsKey]
	if !ok || nested == nil {
		return nil, nil
	}
	text, isText := nested.(string)
	if !isText {
		return nested, nil
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, newToolError(CodeInvalidPayload, fmt.Sprintf("arguments string is not JSON: %v", err), err)
	}
	return decoded, nil
}

func locate(payload Payload, nested any, name string) (any, bool) {
	if v, ok := payload[name]; ok && v != nil {
		return v, true
	}

	switch args := nested.(type) {
	case map[string]any:
		if v, ok := args[name]; ok && v != nil {
			return v, true
		}
	case Payload:
		if v, ok := args[name]; ok && v != nil {
			return v, true
		}
	case []any:
		for _, elem := range args {
			m, isMap := elem.(map[string]any)
			if !isMap {
				continue
			}
			if v, ok := m[name]; ok && v != nil {
				return v, true
			}
		}
	case []map[string]any:
		for _, m := range args {
			if v, ok := m[name]; ok && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

// DecodePayload decodes a JSON object, keeping numbers as json.Number. Empty
// input yields an empty payload.
func DecodePayload(data []byte) (Payload, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Payload{}, nil
	}
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	return Payload(obj), nil
}

// Call is a decoded invoker envelope.
type Call struct {
	ID      string
	Name    string
	Payload Payload
}

// ParseCall decodes {"id"?, "name", ...}. The payload is the envelope without
// its id and name keys.
func ParseCall(data []byte) (Call, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return Call{}, err
	}

	name, _ := obj["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return Call{}, newToolError(CodeInvalidPayload, "call envelope has no name", nil)
	}

	var id string
	switch v := obj["id"].(type) {
	case string:
		id = v
	case json.Number:
		id = v.String()
	}

	delete(obj, "name")
	delete(obj, "id")
	return Call{ID: strings.TrimSpace(id), Name: name, Payload: Payload(obj)}, nil
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, newToolError(CodeInvalidPayload, fmt.Sprintf("payload is not JSON: %v", err), err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, newToolError(CodeInvalidPayload, "payload has trailing data", nil)
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, newToolError(CodeInvalidPayload, "payload must be a JSON object", nil)
	}
	return obj, nil
}
