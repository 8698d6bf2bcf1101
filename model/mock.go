package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentrelay/core"
)

// MockModel is a scripted in-memory Model for tests and examples. Responses
// are consumed in order; Handler, when set, takes precedence. Every request
// is recorded.
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses []MockResponse
	requests  []Request

	// Handler computes a response from the request when set.
	Handler func(ctx context.Context, req Request) (*Response, error)
}

// MockResponse is one scripted reply. Exactly one of Response and Err is used.
type MockResponse struct {
	Response *Response
	Err      error
}

// NewMockModel constructs a MockModel with the scripted responses.
func NewMockModel(name string, responses ...MockResponse) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock", SupportsTools: true},
		responses: responses,
	}
}

// Enqueue appends scripted responses.
func (m *MockModel) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses = append(m.responses, responses...)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	recorded := req
	recorded.Messages = append([]core.Content(nil), req.Messages...)
	m.requests = append(m.requests, recorded)

	handler := m.Handler
	var next *MockResponse
	if handler == nil && len(m.responses) > 0 {
		next = &m.responses[0]
		m.responses = m.responses[1:]
	}
	m.mu.Unlock()

	if handler != nil {
		return handler(ctx, req)
	}

	if next == nil {
		return nil, fmt.Errorf("mock model %s: no scripted response left", m.info.Name)
	}

	if next.Err != nil {
		return nil, next.Err
	}

	resp := *next.Response

	return &resp, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }

// Requests returns the recorded requests.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.requests))
	copy(out, m.requests)

	return out
}

// Calls returns the number of Generate calls.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

// TextResponse scripts a direct answer.
func TextResponse(text string) MockResponse {
	return MockResponse{Response: &Response{
		Content:      core.NewTextContent(core.RoleAssistant, text),
		FinishReason: "stop",
		Usage:        core.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}}
}

// ToolCallResponse scripts a single tool call.
func ToolCallResponse(id, name, argsJSON string) MockResponse {
	return ToolCallsResponse(core.FunctionCall{ID: id, Name: name, Arguments: argsJSON})
}

// ToolCallsResponse scripts a batch of tool calls.
func ToolCallsResponse(calls ...core.FunctionCall) MockResponse {
	return MockResponse{Response: &Response{
		Content:      core.NewFunctionCallContent(calls...),
		FinishReason: "tool_calls",
		Usage:        core.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}}
}

// ErrorResponse scripts a failed call.
func ErrorResponse(err error) MockResponse {
	return MockResponse{Err: err}
}
