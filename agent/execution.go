package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentrelay/callback"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/tool"
)

// OutcomeKind tells how an execution ended.
type OutcomeKind int

const (
	// OutcomeAnswer means the model answered without tool calls.
	OutcomeAnswer OutcomeKind = iota
	// OutcomeHandoff means a tool requested a transfer of control.
	OutcomeHandoff
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAnswer:
		return "answer"
	case OutcomeHandoff:
		return "handoff"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of one Execution.Run.
type Outcome struct {
	Kind OutcomeKind
	// Output is the final assistant text for OutcomeAnswer.
	Output string
	// Handoff is the pending request for OutcomeHandoff. It stays on the
	// RunContext until the runner takes it.
	Handoff    core.HandoffRequest
	Usage      core.Usage
	ModelCalls int
}

// ExecutionOptions configures NewExecution.
type ExecutionOptions struct {
	// Callbacks receives tool_start, tool_complete and agent_complete. May
	// be nil.
	Callbacks *callback.Manager
	// Limiter bounds model calls across the whole run. May be nil.
	Limiter *core.ModelLimiter
}

// Execution drives one agent against one model over a shared history.
type Execution struct {
	agent     *Agent
	model     model.Model
	history   *core.History
	callbacks *callback.Manager
	limiter   *core.ModelLimiter
}

// NewExecution binds an agent to its model and the run's history.
func NewExecution(a *Agent, m model.Model, history *core.History, optFns ...func(o *ExecutionOptions)) *Execution {
	opts := ExecutionOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Execution{
		agent:     a,
		model:     m,
		history:   history,
		callbacks: opts.Callbacks,
		limiter:   opts.Limiter,
	}
}

// Run executes the agent until it answers or hands off. A non-empty input is
// appended as a user turn first. Provider failures are returned as
// *model.ProviderError without retry; tool failures are recorded in the
// history and never end the execution.
func (e *Execution) Run(ctx context.Context, rc *core.RunContext, input string) (*Outcome, error) {
	if input != "" {
		e.history.Append(core.NewTextContent(core.RoleUser, input))
	}

	rc.LogDebug("agent.run.start", "agent", e.agent.Name(), "history", e.history.Len())

	out := &Outcome{}
	tools := model.ToolDefinitionsFrom(e.agent.Tools())

	for round := 0; ; round++ {
		if round >= e.agent.MaxToolRounds() {
			return out, fmt.Errorf("%w: agent %s exceeded %d tool rounds", core.ErrModelCallLimit, e.agent.Name(), e.agent.MaxToolRounds())
		}

		instructions, err := e.agent.Instruction().Resolve(rc)
		if err != nil {
			return out, fmt.Errorf("agent %s: resolve instructions: %w", e.agent.Name(), err)
		}

		if err := e.limiter.Increment(); err != nil {
			return out, err
		}

		req := model.Request{
			Model:        e.agent.Model(),
			Instructions: instructions,
			Messages:     e.history.Messages(),
			Tools:        tools,
		}

		rc.LogDebug("agent.model.call", "agent", e.agent.Name(), "round", round, "messages", len(req.Messages), "tools", len(req.Tools))

		resp, err := e.model.Generate(ctx, req)
		out.ModelCalls++

		if err != nil {
			rc.LogError("agent.model.error", "agent", e.agent.Name(), "error", err.Error())
			return out, e.providerError(err)
		}

		out.Usage.Add(resp.Usage)

		msg := assistantMessage(resp.Content)
		calls := msg.FunctionCalls()

		e.history.Append(msg)

		if len(calls) == 0 {
			out.Kind = OutcomeAnswer
			out.Output = msg.Text()

			rc.LogDebug("agent.run.answer", "agent", e.agent.Name(), "model_calls", out.ModelCalls)
			e.callbacks.FireAgentComplete(ctx, rc.RunID, e.agent.Name(), out.Output)

			return out, nil
		}

		if handoff, ok := e.dispatchBatch(ctx, rc, calls); ok {
			out.Kind = OutcomeHandoff
			out.Handoff = handoff

			rc.LogInfo("agent.handoff.requested", "agent", e.agent.Name(), "target", handoff.Target, "reason", handoff.Reason)

			return out, nil
		}
	}
}

func (e *Execution) providerError(err error) error {
	var perr *model.ProviderError
	if errors.As(err, &perr) {
		return perr
	}

	info := e.model.Info()

	return &model.ProviderError{Provider: info.Provider, Model: info.Name, Err: err}
}

// dispatchBatch runs the calls in order and appends one result per call.
// Once a handoff is pending, the remaining calls are answered as skipped.
func (e *Execution) dispatchBatch(ctx context.Context, rc *core.RunContext, calls []core.FunctionCall) (core.HandoffRequest, bool) {
	for i, call := range calls {
		e.history.Append(e.dispatch(ctx, rc, call))

		req, pending := rc.PendingHandoff()
		if !pending {
			continue
		}

		for _, skipped := range calls[i+1:] {
			e.history.Append(core.NewFunctionResponseContent(core.FunctionResponse{
				ID:    skipped.ID,
				Name:  skipped.Name,
				Error: "skipped: control transferred to " + req.Target,
			}))

			rc.LogDebug("agent.tool.skipped", "agent", e.agent.Name(), "tool", skipped.Name, "fc_id", skipped.ID)
		}

		return req, true
	}

	return core.HandoffRequest{}, false
}

// dispatch executes a single call and returns its result message.
func (e *Execution) dispatch(ctx context.Context, rc *core.RunContext, call core.FunctionCall) core.Content {
	args, argErr := decodeArguments(call)

	e.callbacks.FireToolStart(ctx, rc.RunID, e.agent.Name(), call.Name, call.ID, args)

	start := time.Now()

	var (
		result any
		err    error
	)

	t, ok := e.agent.Tool(call.Name)

	switch {
	case !ok:
		err = tool.NewToolError(call.Name, fmt.Sprintf("tool %s not found", call.Name), tool.CodeNotFound)
	case argErr != nil:
		err = argErr
	default:
		result, err = e.call(ctx, rc, t, call, args)
	}

	dur := time.Since(start)

	resp := core.FunctionResponse{ID: call.ID, Name: call.Name}

	if err != nil {
		toolErr := tool.AsToolError(call.Name, err)
		err = toolErr
		resp.Error = toolErr.Error()

		rc.LogWarn("agent.tool.failed",
			"agent", e.agent.Name(),
			"tool", call.Name,
			"fc_id", call.ID,
			"code", toolErr.Code,
			"error", toolErr.Message,
		)
	} else {
		resp.Response = result

		rc.LogInfo("agent.tool.executed",
			"agent", e.agent.Name(),
			"tool", call.Name,
			"fc_id", call.ID,
			"duration_ms", dur.Milliseconds(),
		)
	}

	e.callbacks.FireToolComplete(ctx, rc.RunID, e.agent.Name(), call.Name, call.ID, result, err, dur)

	return core.NewFunctionResponseContent(resp)
}

func (e *Execution) call(ctx context.Context, rc *core.RunContext, t tool.Tool, call core.FunctionCall, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			rc.LogError("agent.tool.panic", "agent", e.agent.Name(), "tool", call.Name, "recover", r)
			err = tool.NewToolError(call.Name, fmt.Sprintf("panic: %v", r), tool.CodeExecution)
		}
	}()

	return t.Call(core.NewToolContext(ctx, rc, e.agent.Name(), call.ID), args)
}

func decodeArguments(call core.FunctionCall) (map[string]any, error) {
	args := map[string]any{}

	raw := strings.TrimSpace(call.Arguments)
	if raw == "" {
		return args, nil
	}

	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, &tool.ToolError{
			Tool:    call.Name,
			Message: "arguments are not a JSON object: " + err.Error(),
			Code:    tool.CodeValidation,
			Details: err,
		}
	}

	if args == nil {
		args = map[string]any{}
	}

	return args, nil
}

// assistantMessage normalizes a provider message: the role is forced to
// assistant and missing or repeated call ids are replaced.
func assistantMessage(c core.Content) core.Content {
	msg := core.Content{Role: core.RoleAssistant, Parts: make([]core.Part, 0, len(c.Parts))}
	seen := map[string]bool{}

	for _, p := range c.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok {
			if fc.FunctionCall.ID == "" || seen[fc.FunctionCall.ID] {
				fc.FunctionCall.ID = "call_" + core.NewID()
			}

			seen[fc.FunctionCall.ID] = true
			p = fc
		}

		msg.Parts = append(msg.Parts, p)
	}

	return msg
}
