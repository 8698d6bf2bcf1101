package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
)

const toolCallCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": null,
      "tool_calls": [{
        "id": "call_1",
        "type": "function",
        "function": {"name": "transfer_to_billing_agent", "arguments": "{\"reason\":\"refund\"}"}
      }]
    }
  }],
  "usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
}`

func TestGenerate_ToolCallRoundTrip(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, toolCallCompletion)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})

	resp, err := m.Generate(context.Background(), model.Request{
		Instructions: "You are triage.",
		Messages: []core.Content{
			core.NewTextContent(core.RoleUser, "refund please"),
			core.NewFunctionCallContent(core.FunctionCall{ID: "c0", Name: "lookup", Arguments: `{}`}),
			core.NewFunctionResponseContent(core.FunctionResponse{ID: "c0", Name: "lookup", Response: map[string]any{"order": 1}}),
		},
		Tools: []model.ToolDefinition{{Type: "function", Function: model.FunctionDefinition{
			Name:       "transfer_to_billing_agent",
			Parameters: map[string]any{"type": "object", "properties": map[string]any{}},
		}}},
	})
	require.NoError(t, err)

	calls := resp.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "transfer_to_billing_agent", calls[0].Name)
	assert.JSONEq(t, `{"reason":"refund"}`, calls[0].Arguments)
	assert.Equal(t, "tool_calls", resp.FinishReason)
	assert.Equal(t, core.Usage{PromptTokens: 12, CompletionTokens: 7, TotalTokens: 19}, resp.Usage)

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "tool", msgs[3].(map[string]any)["role"])
	assert.Equal(t, "c0", msgs[3].(map[string]any)["tool_call_id"])
	assert.Len(t, body["tools"], 1)
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad request","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})

	_, err := m.Generate(context.Background(), model.Request{Messages: []core.Content{core.NewTextContent(core.RoleUser, "hi")}})
	assert.Error(t, err)
}

func TestBuildMessages_AssistantToolCalls(t *testing.T) {
	msgs := buildMessages(model.Request{Messages: []core.Content{
		core.NewFunctionCallContent(core.FunctionCall{ID: "c1", Name: "x"}),
	}})

	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].OfAssistant)
	require.Len(t, msgs[0].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "{}", msgs[0].OfAssistant.ToolCalls[0].Function.Arguments)
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.Model = "gpt-4.1"
	})
	assert.Equal(t, model.Info{Name: "gpt-4.1", Provider: "openai", SupportsTools: true}, m.Info())
}
