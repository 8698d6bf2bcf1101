package tool

import (
	"fmt"
	"time"

	"github.com/hupe1980/agentrelay/core"
)

// Func is the behaviour behind a FunctionTool. It receives the ToolContext
// of the call and the coerced arguments.
type Func func(toolCtx *core.ToolContext, args map[string]any) (any, error)

// FunctionTool exposes a plain Go function as a tool.
//
// Error Semantics:
//
//	*ToolError (returned directly)  -> forwarded unchanged
//	coercion failure                -> *ToolError{Code: VALIDATION_ERROR}
//	other error or panic            -> *ToolError{Code: EXECUTION_ERROR}
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	params      []ParamSpec
	schema      map[string]any
	fn          Func
}

// NewFunctionTool constructs a FunctionTool from declared params and fn.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  []ParamSpec{
//	    {Name: "a", Type: TypeNumber, Required: true},
//	    {Name: "b", Type: TypeNumber, Required: true},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(name, description string, params []ParamSpec, fn Func) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		params:      params,
		schema:      Schema(params),
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the params from a struct using reflection.
//
// Example:
//
//	type SumArgs struct {
//	  A float64 `json:"a" jsonschema:"description=First addend"`
//	  B float64 `json:"b" jsonschema:"description=Second addend"`
//	}
//
//	sumTool := NewFunctionToolFromStruct("calculate_sum", "Calculate the sum of two numbers", SumArgs{}, fn)
func NewFunctionToolFromStruct(name, description string, structType any, fn Func) *FunctionTool {
	return NewFunctionTool(name, description, ParamsFromStruct(structType), fn)
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.schema }

// Params returns the declared parameter specs.
func (t *FunctionTool) Params() []ParamSpec { return t.params }

// Call coerces args then invokes the underlying function.
//
// Logging Fields:
//
//	tool: tool name
//	fc_id: function call identifier (correlates model request & tool execution)
//	duration_ms: execution time in milliseconds
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (result any, err error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "fc_id", toolCtx.FunctionCallID())

	coerced, err := Coerce(args, t.params)
	if err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool.call.panic", "tool", t.name, "panic", r)

			result = nil
			err = &ToolError{Tool: t.name, Message: fmt.Sprintf("panic: %v", r), Code: CodeExecution}
		}
	}()

	result, err = t.fn(toolCtx, coerced)
	if err != nil {
		toolErr := AsToolError(t.name, err)
		logger.Error("tool.call.error", "tool", t.name, "code", toolErr.Code, "error", toolErr.Message)

		return nil, toolErr
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

// NewTypedTool builds a FunctionTool whose arguments are decoded into In.
// Params are derived from In via ParamsFromStruct.
func NewTypedTool[In any, Out any](name, description string, fn func(toolCtx *core.ToolContext, in In) (Out, error)) *FunctionTool {
	var zero In

	return NewFunctionToolFromStruct(name, description, zero, func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
		in, err := decodeArgs[In](args)
		if err != nil {
			return nil, &ToolError{Tool: name, Message: err.Error(), Code: CodeValidation, Details: err}
		}

		return fn(toolCtx, in)
	})
}
