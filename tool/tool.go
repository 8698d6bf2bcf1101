// Package tool implements the tool invocation adapter: the Tool interface,
// declarative parameter specs with argument coercion, function backed tools
// and the generated handoff tools that let one agent transfer control to
// another.
package tool

import (
	"errors"
	"fmt"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/internal/util"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools are attached to agents and advertised to the model. The model picks a
// tool by name and supplies a JSON argument object, which the agent decodes
// and hands to Call together with a ToolContext for the current run.
type Tool interface {
	// Name returns the unique identifier for this tool within an agent.
	Name() string

	// Description returns a human-readable description shown to the model.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with decoded arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "NOT_FOUND"
)

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Is maps validation and not-found codes onto core.ErrToolArgument (not-found
// also onto core.ErrToolNotFound) and every other code onto
// core.ErrToolExecution.
func (e *ToolError) Is(target error) bool {
	switch target {
	case core.ErrToolArgument:
		return e.Code == CodeValidation || e.Code == CodeNotFound
	case core.ErrToolNotFound:
		return e.Code == CodeNotFound
	case core.ErrToolExecution:
		return e.Code != CodeValidation && e.Code != CodeNotFound
	}

	return false
}

// Unwrap exposes Details when it is an error.
func (e *ToolError) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}

	return nil
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// AsToolError converts any error returned by a tool into a *ToolError. Errors
// that are not already ToolErrors are classified as execution errors.
func AsToolError(tool string, err error) *ToolError {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}

	code := CodeExecution
	if errors.Is(err, core.ErrToolArgument) {
		code = CodeValidation
	}

	return &ToolError{Tool: tool, Message: err.Error(), Code: code, Details: err}
}
