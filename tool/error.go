package tool

import (
	"errors"
	"fmt"
	"strings"
)

// Stage identifies which step of registration or dispatch produced an error.
type Stage string

const (
	StageConstruction Stage = "construction"
	StageLookup       Stage = "lookup"
	StageArgument     Stage = "argument"
	StageExecution    Stage = "execution"
)

const (
	// CodeDuplicateToolName is returned when a tool name is already registered
	// under the reject policy.
	CodeDuplicateToolName = "DUPLICATE_TOOL_NAME"
	// CodeDuplicateParser is returned when a parser is registered twice for a tag.
	CodeDuplicateParser = "DUPLICATE_PARSER"
	// CodeSchemaParseFailure is returned when a schema document cannot be read.
	CodeSchemaParseFailure = "SCHEMA_PARSE_FAILURE"
	// CodeSchemaNameMismatch is returned when a schema declares another tool name.
	CodeSchemaNameMismatch = "SCHEMA_NAME_MISMATCH"
	// CodeUnknownTypeTag is returned for tags outside the closed set or without a parser.
	CodeUnknownTypeTag = "UNKNOWN_TYPE_TAG"
	// CodeInvalidDescriptor is returned for empty or duplicate names in a descriptor.
	CodeInvalidDescriptor = "INVALID_DESCRIPTOR"
	// CodeNotFound is returned when dispatching to an unregistered tool.
	CodeNotFound = "NOT_FOUND"
	// CodeInvalidPayload is returned when a payload or envelope is not a JSON object.
	CodeInvalidPayload = "INVALID_PAYLOAD"
	// CodeMissingArgument is returned when a parameter is absent from every payload shape.
	CodeMissingArgument = "MISSING_ARGUMENT"
	// CodeArgumentParseError is returned when a present value fails to parse.
	CodeArgumentParseError = "ARGUMENT_PARSE_ERROR"
	// CodeTypeMismatch is returned when an adapter receives a value of the wrong tag.
	CodeTypeMismatch = "TYPE_MISMATCH"
	// CodeArityMismatch is returned when an adapter receives the wrong number of values.
	CodeArityMismatch = "ARITY_MISMATCH"
	// CodeExecutionFailed wraps an application-level failure of the wrapped function.
	CodeExecutionFailed = "EXECUTION_FAILED"
)

var codeStages = map[string]Stage{
	CodeDuplicateToolName:  StageConstruction,
	CodeDuplicateParser:    StageConstruction,
	CodeSchemaParseFailure: StageConstruction,
	CodeSchemaNameMismatch: StageConstruction,
	CodeUnknownTypeTag:     StageConstruction,
	CodeInvalidDescriptor:  StageConstruction,
	CodeNotFound:           StageLookup,
	CodeInvalidPayload:     StageArgument,
	CodeMissingArgument:    StageArgument,
	CodeArgumentParseError: StageArgument,
	CodeTypeMismatch:       StageExecution,
	CodeArityMismatch:      StageExecution,
	CodeExecutionFailed:    StageExecution,
}

// Sentinels for errors.Is. Code sentinels match one code; stage sentinels
// match every code produced by that stage.
var (
	ErrDuplicateToolName  = &ToolError{Code: CodeDuplicateToolName}
	ErrDuplicateParser    = &ToolError{Code: CodeDuplicateParser}
	ErrSchemaParse        = &ToolError{Code: CodeSchemaParseFailure}
	ErrSchemaNameMismatch = &ToolError{Code: CodeSchemaNameMismatch}
	ErrUnknownTypeTag     = &ToolError{Code: CodeUnknownTypeTag}
	ErrInvalidDescriptor  = &ToolError{Code: CodeInvalidDescriptor}
	ErrNotFound           = &ToolError{Code: CodeNotFound}
	ErrInvalidPayload     = &ToolError{Code: CodeInvalidPayload}
	ErrMissingArgument    = &ToolError{Code: CodeMissingArgument}
	ErrArgumentParse      = &ToolError{Code: CodeArgumentParseError}
	ErrTypeMismatch       = &ToolError{Code: CodeTypeMismatch}
	ErrArityMismatch      = &ToolError{Code: CodeArityMismatch}
	ErrExecution          = &ToolError{Code: CodeExecutionFailed}

	ErrConstruction   = &ToolError{Stage: StageConstruction}
	ErrLookup         = &ToolError{Stage: StageLookup}
	ErrArgument       = &ToolError{Stage: StageArgument}
	ErrExecutionStage = &ToolError{Stage: StageExecution}
)

// ToolError is the structured error returned by registration and dispatch.
// Callers branch on Code or Stage; Cause carries the underlying failure, which
// for EXECUTION_FAILED is the wrapped function's own error, unchanged.
type ToolError struct {
	Code      string `json:"code"`
	Stage     Stage  `json:"stage"`
	Tool      string `json:"tool,omitempty"`
	Parameter string `json:"parameter,omitempty"`
	Message   string `json:"message"`
	Cause     error  `json:"-"`
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Code)
	if e.Tool != "" {
		fmt.Fprintf(&b, " [tool=%s", e.Tool)
		if e.Parameter != "" {
			fmt.Fprintf(&b, " parameter=%s", e.Parameter)
		}
		b.WriteString("]")
	} else if e.Parameter != "" {
		fmt.Fprintf(&b, " [parameter=%s]", e.Parameter)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches sentinels by code, or by stage when the target carries no code.
func (e *ToolError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ToolError)
	if !ok || t == nil {
		return false
	}
	if t.Code != "" {
		return t.Code == e.Code
	}
	return t.Stage != "" && t.Stage == e.Stage
}

func newToolError(code, message string, cause error) *ToolError {
	cleanMsg := strings.TrimSpace(message)
	if cleanMsg == "" && cause != nil {
		cleanMsg = cause.Error()
	}
	return &ToolError{
		Code:    code,
		Stage:   codeStages[code],
		Message: cleanMsg,
		Cause:   cause,
	}
}

func (e *ToolError) withTool(name string) *ToolError {
	if e != nil && e.Tool == "" {
		e.Tool = name
	}
	return e
}

func (e *ToolError) inStage(stage Stage) *ToolError {
	if e != nil {
		e.Stage = stage
	}
	return e
}

func (e *ToolError) withParameter(name string) *ToolError {
	if e != nil {
		e.Parameter = name
	}
	return e
}

func toolErrorFrom(err error) (*ToolError, bool) {
	if err == nil {
		return nil, false
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr, true
	}
	return nil, false
}

// ErrorCode returns the code of the outermost ToolError in err, or "".
func ErrorCode(err error) string {
	if toolErr, ok := toolErrorFrom(err); ok {
		return toolErr.Code
	}
	return ""
}

// ErrorStage returns the stage of the outermost ToolError in err, or "".
func ErrorStage(err error) Stage {
	if toolErr, ok := toolErrorFrom(err); ok {
		return toolErr.Stage
	}
	return ""
}

// IsInternal reports whether err is an adapter contract violation rather than
// a failure reported by the wrapped function.
func IsInternal(err error) bool {
	switch ErrorCode(err) {
	case CodeTypeMismatch, CodeArityMismatch:
		return true
	default:
		return false
	}
}
