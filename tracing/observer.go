// Package tracing exports run lifecycle events as OpenTelemetry spans.
//
// Each run gets a root span. Every agent turn is a child span of the run and
// every tool call is a child span of the agent turn that issued it.
package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentrelay/callback"
)

var _ callback.Observer = (*Observer)(nil)

type runSpans struct {
	runCtx   context.Context
	run      trace.Span
	agentCtx context.Context
	agent    trace.Span
	tools    map[string]trace.Span
}

// Observer turns callback events into spans. Spans of concurrent runs are
// kept apart by run id.
type Observer struct {
	tracer trace.Tracer

	mu   sync.Mutex
	runs map[string]*runSpans
}

// NewObserver returns an observer that records spans with tracer.
func NewObserver(tracer trace.Tracer) *Observer {
	return &Observer{
		tracer: tracer,
		runs:   make(map[string]*runSpans),
	}
}

// OnAgentThinking ends the previous agent span of the run and starts a new one.
func (o *Observer) OnAgentThinking(ctx context.Context, ev callback.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	rs := o.run(ctx, ev)
	if rs.agent != nil {
		rs.agent.End()
	}

	rs.agentCtx, rs.agent = o.tracer.Start(rs.runCtx, "agent "+ev.AgentName,
		trace.WithAttributes(
			attribute.String("agentrelay.run_id", ev.RunID),
			attribute.String("agentrelay.agent", ev.AgentName),
			attribute.Int("agentrelay.input_length", len(ev.Input)),
		),
	)

	return nil
}

// OnToolStart starts a tool span below the current agent span.
func (o *Observer) OnToolStart(ctx context.Context, ev callback.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	rs := o.run(ctx, ev)

	parent := rs.agentCtx
	if parent == nil {
		parent = rs.runCtx
	}

	_, span := o.tracer.Start(parent, "tool "+ev.ToolName,
		trace.WithAttributes(
			attribute.String("agentrelay.run_id", ev.RunID),
			attribute.String("agentrelay.agent", ev.AgentName),
			attribute.String("agentrelay.tool", ev.ToolName),
			attribute.String("agentrelay.call_id", ev.CallID),
		),
	)
	rs.tools[ev.CallID] = span

	return nil
}

// OnToolComplete ends the tool span, marking it failed on error.
func (o *Observer) OnToolComplete(_ context.Context, ev callback.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	rs, ok := o.runs[ev.RunID]
	if !ok {
		return nil
	}

	span, ok := rs.tools[ev.CallID]
	if !ok {
		return nil
	}

	delete(rs.tools, ev.CallID)

	if ev.Err != nil {
		span.RecordError(ev.Err)
		span.SetStatus(codes.Error, ev.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()

	return nil
}

// OnAgentHandoff records the transfer on the agent span and ends it.
func (o *Observer) OnAgentHandoff(_ context.Context, ev callback.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	rs, ok := o.runs[ev.RunID]
	if !ok || rs.agent == nil {
		return nil
	}

	rs.agent.AddEvent("handoff", trace.WithAttributes(
		attribute.String("agentrelay.handoff.from", ev.From),
		attribute.String("agentrelay.handoff.to", ev.To),
		attribute.String("agentrelay.handoff.reason", ev.Reason),
	))
	rs.agent.End()
	rs.agent, rs.agentCtx = nil, nil

	return nil
}

// OnAgentComplete marks the agent span successful and ends it.
func (o *Observer) OnAgentComplete(_ context.Context, ev callback.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	rs, ok := o.runs[ev.RunID]
	if !ok || rs.agent == nil {
		return nil
	}

	rs.agent.SetAttributes(attribute.Int("agentrelay.output_length", len(ev.Output)))
	rs.agent.SetStatus(codes.Ok, "")
	rs.agent.End()
	rs.agent, rs.agentCtx = nil, nil

	return nil
}

// OnRunComplete ends every span still open for the run.
func (o *Observer) OnRunComplete(ctx context.Context, ev callback.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	rs := o.run(ctx, ev)
	delete(o.runs, ev.RunID)

	for _, span := range rs.tools {
		span.End()
	}

	if rs.agent != nil {
		rs.agent.End()
	}

	rs.run.SetAttributes(attribute.String("agentrelay.final_agent", ev.AgentName))

	if ev.Err != nil {
		rs.run.RecordError(ev.Err)
		rs.run.SetStatus(codes.Error, ev.Err.Error())
	} else {
		rs.run.SetStatus(codes.Ok, "")
	}

	rs.run.End()

	return nil
}

// Open returns the number of runs with spans still open.
func (o *Observer) Open() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.runs)
}

// run returns the span set of ev's run, starting the root span on first use.
// Callers hold o.mu.
func (o *Observer) run(ctx context.Context, ev callback.Event) *runSpans {
	if rs, ok := o.runs[ev.RunID]; ok {
		return rs
	}

	runCtx, span := o.tracer.Start(ctx, "agentrelay.run",
		trace.WithAttributes(attribute.String("agentrelay.run_id", ev.RunID)),
	)

	rs := &runSpans{
		runCtx: runCtx,
		run:    span,
		tools:  make(map[string]trace.Span),
	}
	o.runs[ev.RunID] = rs

	return rs
}
