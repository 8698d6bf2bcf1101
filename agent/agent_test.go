package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/tool"
)

func echoTool(name string) tool.Tool {
	return tool.NewFunctionTool(name, "echo", nil, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return args, nil
	})
}

func TestNew_Defaults(t *testing.T) {
	a, err := New("RefundAgent")
	require.NoError(t, err)

	assert.Equal(t, "RefundAgent", a.Name())
	assert.Equal(t, "Refund Agent", a.DisplayName())
	assert.Equal(t, 10, a.MaxToolRounds())
	assert.Empty(t, a.Tools())

	text, err := a.Instruction().Resolve(core.NewRunContext())
	require.NoError(t, err)
	assert.Equal(t, "You are Refund Agent, a helpful AI assistant.", text)
}

func TestNew_ToolsThenHandoffs(t *testing.T) {
	a, err := New("Triage", func(o *Options) {
		o.Tools = []tool.Tool{echoTool("lookup")}
		o.Handoffs = []Handoff{
			{Target: "Billing"},
			{Target: "support::Refund", Description: "Refund questions"},
		}
	})
	require.NoError(t, err)

	var names []string
	for _, tl := range a.Tools() {
		names = append(names, tl.Name())
	}

	assert.Equal(t, []string{"lookup", "transfer_to_billing_agent", "transfer_to_refund_agent"}, names)
	assert.Equal(t, []string{"Billing", "support::Refund"}, a.Handoffs())

	refund, ok := a.Tool("transfer_to_refund_agent")
	require.True(t, ok)
	assert.Equal(t, "Refund questions", refund.Description())
	assert.True(t, tool.IsHandoffTool(refund))

	billing, _ := a.Tool("transfer_to_billing_agent")
	assert.Equal(t, "Transfer to Billing", billing.Description())

	name, ok := a.HandoffToolName("Billing")
	require.True(t, ok)
	assert.Equal(t, "transfer_to_billing_agent", name)
}

func TestNew_CollidingHandoffsStayDistinct(t *testing.T) {
	a, err := New("Triage", func(o *Options) {
		o.Handoffs = []Handoff{{Target: "support::Refund"}, {Target: "sales::Refund"}}
	})
	require.NoError(t, err)

	n1, _ := a.HandoffToolName("support::Refund")
	n2, _ := a.HandoffToolName("sales::Refund")
	assert.Equal(t, "transfer_to_support_refund_agent", n1)
	assert.Equal(t, "transfer_to_sales_refund_agent", n2)
}

func TestNew_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		agent  string
		optFns []func(o *Options)
	}{
		{name: "empty name", agent: ""},
		{name: "nil tool", agent: "A", optFns: []func(o *Options){func(o *Options) { o.Tools = []tool.Tool{nil} }}},
		{name: "duplicate tools", agent: "A", optFns: []func(o *Options){func(o *Options) {
			o.Tools = []tool.Tool{echoTool("x"), echoTool("x")}
		}}},
		{name: "tool shadows handoff", agent: "A", optFns: []func(o *Options){func(o *Options) {
			o.Tools = []tool.Tool{echoTool("transfer_to_billing_agent")}
			o.Handoffs = []Handoff{{Target: "Billing"}}
		}}},
		{name: "duplicate handoff", agent: "A", optFns: []func(o *Options){func(o *Options) {
			o.Handoffs = []Handoff{{Target: "Billing"}, {Target: "Billing"}}
		}}},
		{name: "empty handoff target", agent: "A", optFns: []func(o *Options){func(o *Options) {
			o.Handoffs = []Handoff{{Target: ""}}
		}}},
		{name: "invalid tool name", agent: "A", optFns: []func(o *Options){func(o *Options) {
			o.Tools = []tool.Tool{echoTool("look up")}
		}}},
		{name: "zero tool rounds", agent: "A", optFns: []func(o *Options){func(o *Options) { o.MaxToolRounds = -1 }}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.agent, tt.optFns...)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidAgent)
		})
	}
}

func TestNew_PunctuatedHandoffTarget(t *testing.T) {
	a, err := New("Triage", func(o *Options) {
		o.Handoffs = []Handoff{{Target: "Billing (EU)"}, {Target: "eu::"}}
	})
	require.NoError(t, err)

	name, ok := a.HandoffToolName("Billing (EU)")
	require.True(t, ok)
	assert.Equal(t, "transfer_to_billing_eu_agent", name)

	name, ok = a.HandoffToolName("eu::")
	require.True(t, ok)
	assert.Equal(t, "transfer_to_eu_agent", name)
}

func TestRegistry(t *testing.T) {
	triage, err := New("Triage", func(o *Options) { o.Handoffs = []Handoff{{Target: "Billing"}} })
	require.NoError(t, err)

	billing, err := New("Billing", func(o *Options) { o.Handoffs = []Handoff{{Target: "Triage"}} })
	require.NoError(t, err)

	r := NewRegistry()
	require.NoError(t, r.Register(triage))

	assert.ErrorIs(t, r.Validate(), core.ErrUnknownAgent)

	require.NoError(t, r.Register(billing))
	assert.NoError(t, r.Validate(), "cycles are allowed")

	assert.ErrorIs(t, r.Register(billing), core.ErrInvalidAgent)
	assert.Equal(t, []string{"Triage", "Billing"}, r.Names())
	assert.Equal(t, 2, r.Len())

	first, ok := r.First()
	require.True(t, ok)
	assert.Same(t, triage, first)

	got, ok := r.Get("Billing")
	require.True(t, ok)
	assert.Same(t, billing, got)

	_, ok = r.Get("Nobody")
	assert.False(t, ok)
}

func TestNewRegistry_PanicsOnDuplicate(t *testing.T) {
	a, err := New("A")
	require.NoError(t, err)

	assert.Panics(t, func() { NewRegistry(a, a) })
}
