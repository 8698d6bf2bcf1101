package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string `json:"text"`
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// FunctionCall describes a tool invocation requested by the model.
type FunctionCall struct {
	ID        string `json:"id"`                  // Correlates the call with its response
	Name      string `json:"name"`                // Tool name
	Arguments string `json:"arguments,omitempty"` // Raw JSON argument object
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
}

// isPart implements the Part interface for FunctionCallPart.
func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call.
type FunctionResponse struct {
	ID       string `json:"id"`                 // Matches originating FunctionCall ID
	Name     string `json:"name"`               // Tool name
	Response any    `json:"response,omitempty"` // Successful result (any shape)
	Error    string `json:"error,omitempty"`    // Populated on failure
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
}

// isPart implements the Part interface for FunctionResponsePart.
func (FunctionResponsePart) isPart() {}

// Content holds role + ordered parts.
type Content struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewTextContent returns a single text part message.
func NewTextContent(role Role, text string) Content {
	return Content{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// NewFunctionCallContent returns an assistant message requesting the given calls.
func NewFunctionCallContent(calls ...FunctionCall) Content {
	parts := make([]Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, FunctionCallPart{FunctionCall: c})
	}

	return Content{Role: RoleAssistant, Parts: parts}
}

// NewFunctionResponseContent returns a tool message carrying one result.
func NewFunctionResponseContent(resp FunctionResponse) Content {
	return Content{Role: RoleTool, Parts: []Part{FunctionResponsePart{FunctionResponse: resp}}}
}

// Text concatenates all text parts.
func (c Content) Text() string {
	var sb strings.Builder

	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}

	return sb.String()
}

// FunctionCalls returns the function calls in part order.
func (c Content) FunctionCalls() []FunctionCall {
	var calls []FunctionCall

	for _, p := range c.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}

	return calls
}

// FunctionResponses returns the function responses in part order.
func (c Content) FunctionResponses() []FunctionResponse {
	var out []FunctionResponse

	for _, p := range c.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			out = append(out, fr.FunctionResponse)
		}
	}

	return out
}

type partEnvelope struct {
	Type             string            `json:"type"`
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

type contentEnvelope struct {
	Role  Role           `json:"role"`
	Parts []partEnvelope `json:"parts"`
}

// MarshalJSON encodes parts with a type discriminator.
func (c Content) MarshalJSON() ([]byte, error) {
	env := contentEnvelope{Role: c.Role, Parts: make([]partEnvelope, 0, len(c.Parts))}

	for _, p := range c.Parts {
		switch v := p.(type) {
		case TextPart:
			env.Parts = append(env.Parts, partEnvelope{Type: "text", Text: v.Text})
		case FunctionCallPart:
			fc := v.FunctionCall
			env.Parts = append(env.Parts, partEnvelope{Type: "function_call", FunctionCall: &fc})
		case FunctionResponsePart:
			fr := v.FunctionResponse
			env.Parts = append(env.Parts, partEnvelope{Type: "function_response", FunctionResponse: &fr})
		default:
			return nil, fmt.Errorf("unsupported part type %T", p)
		}
	}

	return json.Marshal(env)
}

// UnmarshalJSON decodes parts written by MarshalJSON.
func (c *Content) UnmarshalJSON(data []byte) error {
	var env contentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	parts := make([]Part, 0, len(env.Parts))

	for i, p := range env.Parts {
		switch p.Type {
		case "text":
			parts = append(parts, TextPart{Text: p.Text})
		case "function_call":
			if p.FunctionCall == nil {
				return fmt.Errorf("part %d: missing function_call", i)
			}
			parts = append(parts, FunctionCallPart{FunctionCall: *p.FunctionCall})
		case "function_response":
			if p.FunctionResponse == nil {
				return fmt.Errorf("part %d: missing function_response", i)
			}
			parts = append(parts, FunctionResponsePart{FunctionResponse: *p.FunctionResponse})
		default:
			return fmt.Errorf("part %d: unknown type %q", i, p.Type)
		}
	}

	c.Role = env.Role
	c.Parts = parts

	return nil
}
