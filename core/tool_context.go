package core

import (
	"context"

	"github.com/hupe1980/agentrelay/logging"
)

// ToolContext is the surface handed to tool behaviour for one call. It
// exposes the run's state bag and lets any tool request a handoff.
type ToolContext struct {
	ctx            context.Context
	runCtx         *RunContext
	agentName      string
	functionCallID string
}

// NewToolContext binds a tool call to its run.
func NewToolContext(ctx context.Context, rc *RunContext, agentName, functionCallID string) *ToolContext {
	return &ToolContext{
		ctx:            ctx,
		runCtx:         rc,
		agentName:      agentName,
		functionCallID: functionCallID,
	}
}

// Context returns the cancellation context of the call.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// RunContext returns the run the call belongs to.
func (tc *ToolContext) RunContext() *RunContext { return tc.runCtx }

// RunID returns the id of the enclosing run.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// AgentName returns the agent that issued the call.
func (tc *ToolContext) AgentName() string { return tc.agentName }

// FunctionCallID returns the provider call id being answered.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// Logger returns the run-scoped logger.
func (tc *ToolContext) Logger() logging.Logger { return tc.runCtx.Logger() }

// GetState reads from the shared state bag.
func (tc *ToolContext) GetState(k string) (any, bool) { return tc.runCtx.Get(k) }

// SetState writes to the shared state bag.
func (tc *ToolContext) SetState(k string, v any) { tc.runCtx.Set(k, v) }

// RequestHandoff signals the runner to transfer control to target once the
// current tool batch stops.
func (tc *ToolContext) RequestHandoff(target, reason string) {
	tc.runCtx.SetPendingHandoff(HandoffRequest{Target: target, Reason: reason})
	tc.runCtx.LogInfo("tool.transfer.request", "from_agent", tc.agentName, "to_agent", target, "function_call_id", tc.functionCallID)
}
