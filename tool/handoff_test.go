package tool

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHandoffToolName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"Billing", "transfer_to_billing_agent"},
		{"BillingAgent", "transfer_to_billing_agent"},
		{"support::RefundAgent", "transfer_to_refund_agent"},
		{"support.Refund", "transfer_to_refund_agent"},
		{"teams/TechSupport", "transfer_to_tech_support_agent"},
		{"triage", "transfer_to_triage_agent"},
		{"foo::", "transfer_to_foo_agent"},
		{"support::Refund/", "transfer_to_refund_agent"},
		{"a:b", "transfer_to_a_b_agent"},
		{"Billing (EU)", "transfer_to_billing_eu_agent"},
		{"::", "transfer_to_agent"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, HandoffToolName(tt.id))
			assert.True(t, ValidToolName(HandoffToolName(tt.id)))
		})
	}
}

func TestHandoffToolNames_Collisions(t *testing.T) {
	names, err := HandoffToolNames([]string{"support::Refund", "sales::Refund", "Billing"})
	require.NoError(t, err)

	assert.Equal(t, "transfer_to_support_refund_agent", names["support::Refund"])
	assert.Equal(t, "transfer_to_sales_refund_agent", names["sales::Refund"])
	assert.Equal(t, "transfer_to_billing_agent", names["Billing"])
}

func TestHandoffToolNames_NumericSuffix(t *testing.T) {
	names, err := HandoffToolNames([]string{"a::Refund", "a.Refund"})
	require.NoError(t, err)

	assert.Equal(t, "transfer_to_a_refund_agent", names["a::Refund"])
	assert.Equal(t, "transfer_to_a_refund_agent_2", names["a.Refund"])
}

func TestHandoffToolNames_LongIDs(t *testing.T) {
	long := strings.Repeat("Escalation", 10)
	names, err := HandoffToolNames([]string{"a::" + long, "a." + long})
	require.NoError(t, err)

	first, second := names["a::"+long], names["a."+long]
	assert.Len(t, first, MaxToolNameLength)
	assert.LessOrEqual(t, len(second), MaxToolNameLength)
	assert.True(t, strings.HasSuffix(second, "_2"))
	assert.NotEqual(t, first, second)
}

func TestValidToolName(t *testing.T) {
	assert.True(t, ValidToolName("transfer_to_billing_agent"))
	assert.True(t, ValidToolName("get-weather"))
	assert.False(t, ValidToolName(""))
	assert.False(t, ValidToolName("transfer_to_a:b_agent"))
	assert.False(t, ValidToolName(strings.Repeat("x", MaxToolNameLength+1)))
}

func TestHandoffToolNames_Duplicate(t *testing.T) {
	_, err := HandoffToolNames([]string{"Billing", "Billing"})
	assert.Error(t, err)
}

func TestHandoffToolNames_Injective(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOfNDistinct(
			rapid.StringMatching(`([a-z]{1,3}(::|\.|/))?[A-Z][a-z :()!é-]{0,6}(Agent)?(::|\.|/)?`),
			1, 12,
			rapid.ID[string],
		).Draw(t, "ids")

		names, err := HandoffToolNames(ids)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		seen := map[string]string{}
		for _, id := range ids {
			name := names[id]
			if !ValidToolName(name) {
				t.Fatalf("id %q maps to invalid tool name %q", id, name)
			}
			if prev, dup := seen[name]; dup {
				t.Fatalf("ids %q and %q both map to %q", prev, id, name)
			}
			seen[name] = id
		}
	})
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Billing", DisplayName("Billing"))
	assert.Equal(t, "Refund Agent", DisplayName("support::RefundAgent"))
}

func TestHandoffTool_Call(t *testing.T) {
	ht := NewHandoffTool("Billing")
	assert.Equal(t, "transfer_to_billing_agent", ht.Name())
	assert.Equal(t, "Transfer to Billing", ht.Description())
	assert.True(t, IsHandoffTool(ht))

	tc := newToolContext("fc-h")
	result, err := ht.Call(tc, map[string]any{"reason": "refund request"})
	require.NoError(t, err)

	ack, ok := result.(HandoffAck)
	require.True(t, ok)
	assert.Equal(t, "handoff", ack.Type)
	assert.Equal(t, "Billing", ack.Target)
	assert.Equal(t, "Billing", ack.TargetAgent)
	assert.Equal(t, "refund request", ack.Reason)
	assert.Equal(t, "Transferring to Billing: refund request", ack.Message)

	req, ok := tc.RunContext().PendingHandoff()
	require.True(t, ok)
	assert.Equal(t, "Billing", req.Target)
	assert.Equal(t, "refund request", req.Reason)
}

func TestHandoffTool_NoReason(t *testing.T) {
	ht := NewHandoffTool("support::RefundAgent", func(o *HandoffToolOptions) {
		o.Description = "Escalate refunds"
	})

	assert.Equal(t, "Escalate refunds", ht.Description())
	assert.Equal(t, "support::RefundAgent", ht.Target())

	result, err := ht.Call(newToolContext("fc-h2"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Transferring to Refund Agent", result.(HandoffAck).Message)
}

func ExampleHandoffToolName() {
	fmt.Println(HandoffToolName("Billing"))
	// Output: transfer_to_billing_agent
}
