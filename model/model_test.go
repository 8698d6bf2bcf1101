package model

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/tool"
)

func TestRegistry_DefaultIsFirstRegistered(t *testing.T) {
	r := NewRegistry()
	first := NewMockModel("first")
	second := NewMockModel("second")

	require.NoError(t, r.RegisterModel("a", first))
	require.NoError(t, r.RegisterModel("b", second))

	m, err := r.Resolve("", "")
	require.NoError(t, err)
	assert.Same(t, first, m)

	m, err = r.Resolve("b", "any")
	require.NoError(t, err)
	assert.Same(t, second, m)

	assert.Equal(t, []string{"a", "b"}, r.Providers())
}

func TestRegistry_Errors(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("", "")
	assert.ErrorIs(t, err, core.ErrProvider)

	require.NoError(t, r.Register("broken", func(string) (Model, error) { return nil, errors.New("no key") }))
	assert.Error(t, r.Register("broken", func(string) (Model, error) { return nil, nil }))

	_, err = r.Resolve("broken", "x")
	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "broken", pErr.Provider)
	assert.Contains(t, err.Error(), "no key")

	_, err = r.Resolve("missing", "")
	assert.ErrorIs(t, err, core.ErrProvider)
}

func TestRegistry_CachesPerModel(t *testing.T) {
	r := NewRegistry()
	calls := 0
	require.NoError(t, r.Register("p", func(id string) (Model, error) {
		calls++
		return NewMockModel(id), nil
	}))

	a1, _ := r.Resolve("p", "a")
	a2, _ := r.Resolve("p", "a")
	b, _ := r.Resolve("p", "b")

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, calls)
}

func TestRegistry_ConcurrentResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("p", func(id string) (Model, error) { return NewMockModel(id), nil }))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Resolve("p", "shared")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestMockModel_ScriptedResponses(t *testing.T) {
	m := NewMockModel("mock",
		ToolCallResponse("c1", "lookup", `{"q":"x"}`),
		TextResponse("done"),
		ErrorResponse(errors.New("rate limited")),
	)

	req := Request{Messages: []core.Content{core.NewTextContent(core.RoleUser, "hi")}}

	resp, err := m.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls(), 1)
	assert.Equal(t, "lookup", resp.ToolCalls()[0].Name)

	resp, err = m.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Text())

	_, err = m.Generate(context.Background(), req)
	assert.EqualError(t, err, "rate limited")

	_, err = m.Generate(context.Background(), req)
	assert.Error(t, err)

	assert.Equal(t, 4, m.Calls())
	assert.Len(t, m.Requests()[0].Messages, 1)
}

func TestMockModel_Handler(t *testing.T) {
	m := NewMockModel("mock")
	m.Handler = func(_ context.Context, req Request) (*Response, error) {
		return &Response{Content: core.NewTextContent(core.RoleAssistant, req.Instructions)}, nil
	}

	resp, err := m.Generate(context.Background(), Request{Instructions: "echo"})
	require.NoError(t, err)
	assert.Equal(t, "echo", resp.Text())
}

func TestToolDefinitionsFrom(t *testing.T) {
	defs := ToolDefinitionsFrom([]tool.Tool{tool.NewHandoffTool("Billing")})
	require.Len(t, defs, 1)
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "transfer_to_billing_agent", defs[0].Function.Name)
	assert.Equal(t, "Transfer to Billing", defs[0].Function.Description)
	assert.Equal(t, "object", defs[0].Function.Parameters["type"])
}

func TestFunctionResponseText(t *testing.T) {
	assert.Equal(t, "plain", FunctionResponseText(core.FunctionResponse{Response: "plain"}))
	assert.Equal(t, `{"ok":true}`, FunctionResponseText(core.FunctionResponse{Response: map[string]any{"ok": true}}))
	assert.Equal(t, `{"error":"boom"}`, FunctionResponseText(core.FunctionResponse{Error: "boom"}))
}
