package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"pgregory.net/rapid"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/callback"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
)

func mustAgent(t require.TestingT, name string, optFns ...func(o *agent.Options)) *agent.Agent {
	a, err := agent.New(name, optFns...)
	require.NoError(t, err)

	return a
}

func handoffTo(targets ...string) func(o *agent.Options) {
	return func(o *agent.Options) {
		for _, target := range targets {
			o.Handoffs = append(o.Handoffs, agent.Handoff{Target: target})
		}
	}
}

func instructions(text string) func(o *agent.Options) {
	return func(o *agent.Options) { o.Instruction = agent.NewInstructionFromText(text) }
}

func newTriageRunner(t *testing.T, m model.Model, optFns ...func(o *Options)) *Runner {
	t.Helper()

	agents := agent.NewRegistry(
		mustAgent(t, "Triage", instructions("You route customers."), handoffTo("Billing")),
		mustAgent(t, "Billing", instructions("You handle billing."), handoffTo("Triage")),
	)

	models := model.NewRegistry()
	require.NoError(t, models.RegisterModel("mock", m))

	r, err := New(agents, models, optFns...)
	require.NoError(t, err)

	return r
}

func TestProcess_DirectAnswer(t *testing.T) {
	m := model.NewMockModel("mock", model.TextResponse("Hi, how can I help?"))
	r := newTriageRunner(t, m)

	res := r.Process(context.Background(), "hello")

	require.NoError(t, res.Err)
	assert.True(t, res.Success())
	assert.Equal(t, "Hi, how can I help?", res.Output)
	assert.Equal(t, "Triage", res.Agent)
	assert.Equal(t, 0, res.Handoffs)
	assert.Empty(t, res.Transitions)
	assert.Len(t, res.Messages, 2)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "", res.ErrorMessage())
}

func TestProcess_TriageToBilling(t *testing.T) {
	m := model.NewMockModel("mock",
		model.ToolCallResponse("c1", "transfer_to_billing_agent", `{"reason":"refund request"}`),
		model.TextResponse("Your refund is on its way."),
	)
	rc := core.NewRunContext()
	r := newTriageRunner(t, m)

	res := r.Process(context.Background(), "I want a refund", func(o *ProcessOptions) { o.RunContext = rc })

	require.NoError(t, res.Err)
	assert.Equal(t, "Your refund is on its way.", res.Output)
	assert.Equal(t, "Billing", res.Agent)
	assert.Equal(t, 1, res.Handoffs)
	assert.Equal(t, 2, res.ModelCalls)
	assert.Equal(t, 30, res.Usage.TotalTokens)

	require.Len(t, res.Transitions, 1)
	assert.Equal(t, "Triage", res.Transitions[0].From)
	assert.Equal(t, "Billing", res.Transitions[0].To)
	assert.Equal(t, "refund request", res.Transitions[0].Reason)

	_, pending := rc.PendingHandoff()
	assert.False(t, pending)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "You route customers.", reqs[0].Instructions)
	assert.Equal(t, "You handle billing.", reqs[1].Instructions)
	assert.Equal(t, "transfer_to_triage_agent", reqs[1].Tools[0].Function.Name)

	// Shared history: the billing agent sees the triage turn and the ack.
	require.Len(t, reqs[1].Messages, 3)
	assert.Equal(t, core.RoleTool, reqs[1].Messages[2].Role)
}

func TestProcess_PendingHandoffClearedBeforeNextModelCall(t *testing.T) {
	rc := core.NewRunContext()

	calls := 0
	m := model.NewMockModel("mock")
	m.Handler = func(context.Context, model.Request) (*model.Response, error) {
		calls++

		_, pending := rc.PendingHandoff()
		assert.False(t, pending, "call %d saw a pending handoff", calls)

		if calls == 1 {
			return model.ToolCallResponse("c1", "transfer_to_billing_agent", `{}`).Response, nil
		}

		return model.TextResponse("done").Response, nil
	}

	res := newTriageRunner(t, m).Process(context.Background(), "hi", func(o *ProcessOptions) { o.RunContext = rc })
	require.NoError(t, res.Err)
	assert.Equal(t, 2, calls)
}

func pingPongModel() *model.MockModel {
	m := model.NewMockModel("ping-pong")
	m.Handler = func(_ context.Context, req model.Request) (*model.Response, error) {
		return model.ToolCallResponse("", req.Tools[0].Function.Name, `{"reason":"not mine"}`).Response, nil
	}

	return m
}

func TestProcess_HandoffLoopBound(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		bound := rapid.IntRange(0, 7).Draw(rt, "bound")
		m := pingPongModel()

		agents := agent.NewRegistry(
			mustAgent(rt, "Ping", handoffTo("Pong")),
			mustAgent(rt, "Pong", handoffTo("Ping")),
		)
		models := model.NewRegistry()
		require.NoError(rt, models.RegisterModel("mock", m))

		r, err := New(agents, models, func(o *Options) {
			o.MaxHandoffs = bound
			o.MaxModelCalls = 0
		})
		require.NoError(rt, err)

		res := r.Process(context.Background(), "hello")

		require.Error(rt, res.Err)
		assert.ErrorIs(rt, res.Err, core.ErrHandoffLoopExceeded)
		assert.False(rt, res.Success())
		assert.Equal(rt, bound+1, res.Handoffs)
		assert.Equal(rt, bound+1, m.Calls())

		var loopErr *HandoffLoopError
		require.ErrorAs(rt, res.Err, &loopErr)
		assert.Equal(rt, bound, loopErr.Limit)
		assert.Len(rt, loopErr.Path, bound+2)
	})
}

func TestProcess_HandoffWithinBoundSucceeds(t *testing.T) {
	m := model.NewMockModel("mock",
		model.ToolCallResponse("c1", "transfer_to_billing_agent", `{}`),
		model.ToolCallResponse("c2", "transfer_to_triage_agent", `{}`),
		model.TextResponse("back at triage"),
	)

	res := newTriageRunner(t, m, func(o *Options) { o.MaxHandoffs = 2 }).Process(context.Background(), "hi")

	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Handoffs)
	assert.Equal(t, "Triage", res.Agent)
}

func TestProcess_HandoffInputPolicies(t *testing.T) {
	tests := []struct {
		policy   HandoffInput
		lastRole core.Role
		lastText string
	}{
		{policy: HandoffInputNone, lastRole: core.RoleTool},
		{policy: HandoffInputReason, lastRole: core.RoleUser, lastText: "refund request"},
		{policy: HandoffInputOriginal, lastRole: core.RoleUser, lastText: "I want a refund"},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			m := model.NewMockModel("mock",
				model.ToolCallResponse("c1", "transfer_to_billing_agent", `{"reason":"refund request"}`),
				model.TextResponse("ok"),
			)

			res := newTriageRunner(t, m, func(o *Options) { o.HandoffInput = tt.policy }).
				Process(context.Background(), "I want a refund")
			require.NoError(t, res.Err)

			msgs := m.Requests()[1].Messages
			last := msgs[len(msgs)-1]
			assert.Equal(t, tt.lastRole, last.Role)

			if tt.lastText != "" {
				assert.Equal(t, tt.lastText, last.Text())
			}
		})
	}
}

func TestProcess_CallbackOrder(t *testing.T) {
	cbs := callback.NewManager()

	var got []string
	cbs.RegisterAll(func(_ context.Context, ev callback.Event) error {
		switch ev.Type {
		case callback.ToolStart, callback.ToolComplete:
			got = append(got, fmt.Sprintf("%s(%s)", ev.Type, ev.ToolName))
		case callback.AgentHandoff:
			got = append(got, fmt.Sprintf("%s(%s->%s)", ev.Type, ev.From, ev.To))
		default:
			got = append(got, fmt.Sprintf("%s(%s)", ev.Type, ev.AgentName))
		}

		return nil
	})

	m := model.NewMockModel("mock",
		model.ToolCallResponse("c1", "transfer_to_billing_agent", `{}`),
		model.TextResponse("ok"),
	)

	res := newTriageRunner(t, m, func(o *Options) { o.Callbacks = cbs }).Process(context.Background(), "hi")
	require.NoError(t, res.Err)

	assert.Equal(t, []string{
		"agent_thinking(Triage)",
		"tool_start(transfer_to_billing_agent)",
		"tool_complete(transfer_to_billing_agent)",
		"agent_handoff(Triage->Billing)",
		"agent_thinking(Billing)",
		"agent_complete(Billing)",
		"run_complete(Billing)",
	}, got)
}

type failingObserver struct{ callback.BaseObserver }

func (failingObserver) OnAgentThinking(context.Context, callback.Event) error {
	return errors.New("observer down")
}

func (failingObserver) OnToolStart(context.Context, callback.Event) error { panic("observer panic") }

func TestProcess_CallbackIsolation(t *testing.T) {
	script := func() *model.MockModel {
		return model.NewMockModel("mock",
			model.ToolCallResponse("c1", "transfer_to_billing_agent", `{}`),
			model.TextResponse("ok"),
		)
	}

	baseline := newTriageRunner(t, script()).Process(context.Background(), "hi")

	cbs := callback.NewManager()
	cbs.Subscribe(failingObserver{})

	observed := newTriageRunner(t, script(), func(o *Options) { o.Callbacks = cbs }).Process(context.Background(), "hi")

	require.NoError(t, observed.Err)
	assert.Equal(t, baseline.Output, observed.Output)
	assert.Equal(t, baseline.Agent, observed.Agent)
	assert.Equal(t, baseline.Handoffs, observed.Handoffs)
	assert.Equal(t, len(baseline.Messages), len(observed.Messages))
}

func TestProcess_Failures(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		m := model.NewMockModel("mock", model.ErrorResponse(errors.New("401 unauthorized")))
		res := newTriageRunner(t, m).Process(context.Background(), "hi")

		assert.ErrorIs(t, res.Err, core.ErrProvider)
		assert.Contains(t, res.ErrorMessage(), "401 unauthorized")
		assert.False(t, res.Success())
	})

	t.Run("unknown starting agent", func(t *testing.T) {
		res := newTriageRunner(t, model.NewMockModel("mock")).
			Process(context.Background(), "hi", func(o *ProcessOptions) { o.StartingAgent = "Nobody" })

		assert.ErrorIs(t, res.Err, core.ErrUnknownAgent)
	})

	t.Run("stale pending handoff", func(t *testing.T) {
		rc := core.NewRunContext()
		rc.SetPendingHandoff(core.HandoffRequest{Target: "Billing"})

		m := model.NewMockModel("mock", model.TextResponse("never"))
		res := newTriageRunner(t, m).Process(context.Background(), "hi", func(o *ProcessOptions) { o.RunContext = rc })

		assert.ErrorIs(t, res.Err, core.ErrStalePendingHandoff)
		assert.Equal(t, 0, m.Calls())
	})

	t.Run("panicking model", func(t *testing.T) {
		m := model.NewMockModel("mock")
		m.Handler = func(context.Context, model.Request) (*model.Response, error) { panic("bad provider") }

		var res *RunResult
		assert.NotPanics(t, func() {
			res = newTriageRunner(t, m).Process(context.Background(), "hi")
		})
		assert.Contains(t, res.ErrorMessage(), "bad provider")
	})

	t.Run("handoff to unregistered agent", func(t *testing.T) {
		m := model.NewMockModel("mock", model.ToolCallResponse("c1", "escalate", `{}`))
		escalate := newEscalateTool()

		agents := agent.NewRegistry(mustAgent(t, "Triage", func(o *agent.Options) { o.Tools = append(o.Tools, escalate) }))
		models := model.NewRegistry()
		require.NoError(t, models.RegisterModel("mock", m))

		r, err := New(agents, models)
		require.NoError(t, err)

		res := r.Process(context.Background(), "hi")
		assert.ErrorIs(t, res.Err, core.ErrUnknownAgent)
	})

	t.Run("model call budget", func(t *testing.T) {
		res := newTriageRunner(t, pingPongModel(), func(o *Options) {
			o.MaxModelCalls = 3
			o.MaxHandoffs = 10
		}).Process(context.Background(), "hi")

		assert.ErrorIs(t, res.Err, core.ErrModelCallLimit)
		assert.Equal(t, 3, res.ModelCalls)
	})
}

func TestProcess_MultiTurn(t *testing.T) {
	m := model.NewMockModel("mock",
		model.ToolCallResponse("c1", "transfer_to_billing_agent", `{}`),
		model.TextResponse("billing here"),
		model.TextResponse("still billing"),
	)
	r := newTriageRunner(t, m)
	rc := core.NewRunContext()
	history := core.NewHistory()

	first := r.Process(context.Background(), "refund", func(o *ProcessOptions) {
		o.RunContext = rc
		o.History = history
	})
	require.NoError(t, first.Err)

	second := r.Process(context.Background(), "and the invoice?", func(o *ProcessOptions) {
		o.RunContext = rc
		o.History = history
		o.StartingAgent = first.Agent
	})
	require.NoError(t, second.Err)

	assert.Equal(t, "still billing", second.Output)
	assert.Equal(t, "You handle billing.", m.Requests()[2].Instructions)
	assert.Len(t, second.Messages, 6)
	assert.Len(t, second.Transitions, 1)
}

func TestProcess_ConcurrentIndependentRuns(t *testing.T) {
	m := model.NewMockModel("echo")
	m.Handler = func(_ context.Context, req model.Request) (*model.Response, error) {
		last := req.Messages[len(req.Messages)-1]
		return model.TextResponse("echo: " + last.Text()).Response, nil
	}

	r := newTriageRunner(t, m)

	var g errgroup.Group

	results := make([]*RunResult, 32)
	for i := range results {
		g.Go(func() error {
			results[i] = r.Process(context.Background(), fmt.Sprintf("message %d", i))
			return nil
		})
	}

	require.NoError(t, g.Wait())

	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, fmt.Sprintf("echo: message %d", i), res.Output)
		assert.Len(t, res.Messages, 2)
	}
}

func TestNew_Validation(t *testing.T) {
	models := model.NewRegistry()

	_, err := New(agent.NewRegistry(), models)
	assert.ErrorIs(t, err, core.ErrUnknownAgent)

	dangling := agent.NewRegistry(mustAgent(t, "Triage", handoffTo("Billing")))
	_, err = New(dangling, models)
	assert.ErrorIs(t, err, core.ErrUnknownAgent)

	ok := agent.NewRegistry(mustAgent(t, "Triage"))
	_, err = New(ok, models, func(o *Options) { o.DefaultAgent = "Nobody" })
	assert.ErrorIs(t, err, core.ErrUnknownAgent)

	_, err = New(ok, models, func(o *Options) { o.HandoffInput = "everything" })
	assert.Error(t, err)

	_, err = New(ok, models, func(o *Options) { o.MaxHandoffs = -1 })
	assert.Error(t, err)
}

func TestRunResult_MarshalJSON(t *testing.T) {
	res := &RunResult{RunID: "r1", Agent: "Triage", Err: &HandoffLoopError{Limit: 1, Path: []string{"A", "B", "A"}}}

	b, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.Equal(t, "handoff loop exceeded: more than 1 handoffs (A -> B -> A)", decoded["error"])
}

func TestParseHandoffInput(t *testing.T) {
	p, err := ParseHandoffInput("")
	require.NoError(t, err)
	assert.Equal(t, HandoffInputNone, p)

	p, err = ParseHandoffInput("reason")
	require.NoError(t, err)
	assert.Equal(t, HandoffInputReason, p)

	_, err = ParseHandoffInput("all")
	assert.Error(t, err)
}
