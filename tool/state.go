package tool

import (
	"fmt"

	"github.com/hupe1980/agentrelay/core"
)

// StateTool lets the model read and write the shared state bag of the run.
// Operations: get_state, set_state, delete_state, list_state.
type StateTool struct {
	name string
}

var stateParams = []ParamSpec{
	{
		Name:        "operation",
		Type:        TypeString,
		Required:    true,
		Description: "The state operation to perform",
		Enum:        []any{"get_state", "set_state", "delete_state", "list_state"},
	},
	{Name: "key", Type: TypeString, Description: "State key (get_state, set_state, delete_state)"},
	{Name: "value", Type: TypeAny, Description: "Value to store (set_state)"},
}

// NewStateTool creates the state tool under the name "state_manager".
func NewStateTool() *StateTool {
	return &StateTool{name: "state_manager"}
}

// Name returns the tool identifier.
func (t *StateTool) Name() string { return t.name }

// Description returns the tool description.
func (t *StateTool) Description() string {
	return "Reads and writes conversation state shared by all agents. " +
		"Supports operations: get_state, set_state, delete_state, list_state."
}

// Parameters returns the JSON schema for tool parameters.
func (t *StateTool) Parameters() map[string]any { return Schema(stateParams) }

// Call performs the requested operation.
func (t *StateTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	coerced, err := Coerce(args, stateParams)
	if err != nil {
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: CodeValidation, Details: err}
	}

	op := coerced["operation"].(string)
	key, _ := coerced["key"].(string)

	if op != "list_state" && key == "" {
		return nil, NewToolError(t.name, fmt.Sprintf("operation %s requires a key", op), CodeValidation)
	}

	switch op {
	case "get_state":
		v, ok := tc.GetState(key)
		return map[string]any{"key": key, "value": v, "exists": ok}, nil
	case "set_state":
		tc.SetState(key, coerced["value"])
		return map[string]any{"key": key, "value": coerced["value"]}, nil
	case "delete_state":
		tc.RunContext().Delete(key)
		return map[string]any{"key": key, "deleted": true}, nil
	default:
		return map[string]any{"keys": tc.RunContext().Keys()}, nil
	}
}
