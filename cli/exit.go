package cli

import (
	"errors"
	"fmt"

	"github.com/petal-labs/petalcall/tool"
)

// Exit codes
const (
	exitSuccess      = 0
	exitValidation   = 1
	exitRuntime      = 2
	exitFileNotFound = 3
	exitInputParse   = 4
	exitToolNotFound = 7
	exitExecution    = 8
)

// ExitError is an error that carries a specific process exit code.
// Cobra's RunE returns this to signal the desired exit code to main.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// exitError creates a new ExitError with the given code and formatted message.
func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// exitForToolError maps a dispatch error to an ExitError.
func exitForToolError(err error) *ExitError {
	var toolErr *tool.ToolError
	if !errors.As(err, &toolErr) {
		return exitError(exitRuntime, "%v", err)
	}
	switch {
	case toolErr.Code == tool.CodeNotFound:
		return exitError(exitToolNotFound, "%v", err)
	case toolErr.Code == tool.CodeInvalidPayload:
		return exitError(exitInputParse, "%v", err)
	case toolErr.Stage == tool.StageArgument:
		return exitError(exitValidation, "%v", err)
	case toolErr.Code == tool.CodeExecutionFailed:
		return exitError(exitExecution, "%v", err)
	default:
		return exitError(exitRuntime, "%v", err)
	}
}
