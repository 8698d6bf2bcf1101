package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/tool"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolDefinitionsFrom builds definitions for tools in order.
func ToolDefinitionsFrom(tools []tool.Tool) []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, ToolDefinition{
			Type: "function",
			Function: FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return defs
}

// Request captures the normalized model input for one call.
type Request struct {
	Model        string           `json:"model,omitempty"` // Model id, empty for the provider default
	Instructions string           `json:"instructions"`    // Resolved system instructions
	Messages     []core.Content   `json:"messages"`        // Copy of the shared conversation
	Tools        []ToolDefinition `json:"tools,omitempty"` // Tools of the active agent
}

// Response is the single assistant message produced by a model call.
type Response struct {
	ID           string       `json:"id,omitempty"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        core.Usage   `json:"usage"`
}

// ToolCalls returns the function calls requested by the model.
func (r *Response) ToolCalls() []core.FunctionCall { return r.Content.FunctionCalls() }

// Text returns the text of the response.
func (r *Response) Text() string { return r.Content.Text() }

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "gemini", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents to drive generation.
// Implementations must be safe for concurrent use by independent runs.
type Model interface {
	// Generate performs one model call. Implementations do not retry.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// ProviderError wraps a failed model call.
type ProviderError struct {
	Provider string
	Model    string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("provider %s (%s): %v", e.Provider, e.Model, e.Err)
	}

	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error { return e.Err }

// Is reports a match for core.ErrProvider.
func (e *ProviderError) Is(target error) bool { return target == core.ErrProvider }

// FunctionResponseText renders a tool result for providers that expect tool
// output as a string: strings verbatim, errors as {"error": ...}, anything
// else as JSON.
func FunctionResponseText(fr core.FunctionResponse) string {
	if fr.Error != "" {
		b, _ := json.Marshal(map[string]string{"error": fr.Error})
		return string(b)
	}

	if s, ok := fr.Response.(string); ok {
		return s
	}

	b, err := json.Marshal(fr.Response)
	if err != nil {
		return fmt.Sprintf("%v", fr.Response)
	}

	return string(b)
}
