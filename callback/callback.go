package callback

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
)

// Type identifies a lifecycle point.
type Type string

const (
	// AgentThinking fires before an agent works on its input.
	AgentThinking Type = "agent_thinking"
	// ToolStart fires before a tool call is dispatched.
	ToolStart Type = "tool_start"
	// ToolComplete fires after a tool call, with its result or error.
	ToolComplete Type = "tool_complete"
	// AgentHandoff fires when control moves between agents.
	AgentHandoff Type = "agent_handoff"
	// AgentComplete fires when an agent answers without handing off.
	AgentComplete Type = "agent_complete"
	// RunComplete fires once at the end of every run.
	RunComplete Type = "run_complete"
)

// Types lists every lifecycle point in firing order of a typical run.
var Types = []Type{AgentThinking, ToolStart, ToolComplete, AgentHandoff, AgentComplete, RunComplete}

// Event carries the payload of one lifecycle point. Only the fields that
// belong to the event type are populated.
type Event struct {
	Type      Type
	RunID     string
	AgentName string
	Timestamp time.Time

	// agent_thinking
	Input string

	// tool_start, tool_complete
	ToolName string
	CallID   string
	Args     map[string]any
	Result   any
	Duration time.Duration

	// agent_handoff
	From   string
	To     string
	Reason string

	// agent_complete, run_complete
	Output string

	// tool_complete, run_complete
	Err error
}

// MarshalJSON renders the event with Err as a string.
func (e Event) MarshalJSON() ([]byte, error) {
	type payload struct {
		Type       Type           `json:"type"`
		RunID      string         `json:"run_id"`
		AgentName  string         `json:"agent,omitempty"`
		Timestamp  time.Time      `json:"timestamp"`
		Input      string         `json:"input,omitempty"`
		ToolName   string         `json:"tool,omitempty"`
		CallID     string         `json:"call_id,omitempty"`
		Args       map[string]any `json:"args,omitempty"`
		Result     any            `json:"result,omitempty"`
		DurationMS int64          `json:"duration_ms,omitempty"`
		From       string         `json:"from,omitempty"`
		To         string         `json:"to,omitempty"`
		Reason     string         `json:"reason,omitempty"`
		Output     string         `json:"output,omitempty"`
		Error      string         `json:"error,omitempty"`
	}

	p := payload{
		Type:       e.Type,
		RunID:      e.RunID,
		AgentName:  e.AgentName,
		Timestamp:  e.Timestamp,
		Input:      e.Input,
		ToolName:   e.ToolName,
		CallID:     e.CallID,
		Args:       e.Args,
		Result:     e.Result,
		DurationMS: e.Duration.Milliseconds(),
		From:       e.From,
		To:         e.To,
		Reason:     e.Reason,
		Output:     e.Output,
	}

	if e.Err != nil {
		p.Error = e.Err.Error()
	}

	return json.Marshal(p)
}

// Handler reacts to one event. A returned error is logged and isolated.
type Handler func(ctx context.Context, ev Event) error

// Options configures NewManager.
type Options struct {
	Logger logging.Logger
}

// Manager keeps the registered handlers per lifecycle point. Registration
// and firing are safe for concurrent use by independent runs.
type Manager struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	logger   logging.Logger
}

// NewManager returns an empty manager.
func NewManager(optFns ...func(o *Options)) *Manager {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{
		handlers: make(map[Type][]Handler),
		logger:   opts.Logger,
	}
}

// Register adds h for events of type t.
func (m *Manager) Register(t Type, h Handler) {
	if h == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[t] = append(m.handlers[t], h)
}

// RegisterFunc adds a handler that cannot fail.
func (m *Manager) RegisterFunc(t Type, fn func(ctx context.Context, ev Event)) {
	m.Register(t, func(ctx context.Context, ev Event) error {
		fn(ctx, ev)
		return nil
	})
}

// RegisterAll adds h for every lifecycle point.
func (m *Manager) RegisterAll(h Handler) {
	for _, t := range Types {
		m.Register(t, h)
	}
}

// Len returns the number of handlers registered for t.
func (m *Manager) Len(t Type) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.handlers[t])
}

// Fire delivers ev to the handlers of its type in registration order.
// A nil manager ignores the event.
func (m *Manager) Fire(ctx context.Context, ev Event) {
	if m == nil {
		return
	}

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	m.mu.RLock()
	handlers := make([]Handler, len(m.handlers[ev.Type]))
	copy(handlers, m.handlers[ev.Type])
	m.mu.RUnlock()

	for i, h := range handlers {
		if err := m.invoke(ctx, h, ev); err != nil {
			m.logger.Warn("callback.handler.failed",
				"event", string(ev.Type),
				"handler", i,
				"run", ev.RunID,
				"error", err.Error(),
			)
		}
	}
}

func (m *Manager) invoke(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: handler panic: %v", core.ErrCallback, r)
		}
	}()

	if herr := h(ctx, ev); herr != nil {
		return fmt.Errorf("%w: %w", core.ErrCallback, herr)
	}

	return nil
}

// FireAgentThinking announces that agent starts working on input.
func (m *Manager) FireAgentThinking(ctx context.Context, runID, agent, input string) {
	m.Fire(ctx, Event{Type: AgentThinking, RunID: runID, AgentName: agent, Input: input})
}

// FireToolStart announces a tool call before dispatch.
func (m *Manager) FireToolStart(ctx context.Context, runID, agent, toolName, callID string, args map[string]any) {
	m.Fire(ctx, Event{Type: ToolStart, RunID: runID, AgentName: agent, ToolName: toolName, CallID: callID, Args: args})
}

// FireToolComplete announces the result or error of a tool call.
func (m *Manager) FireToolComplete(ctx context.Context, runID, agent, toolName, callID string, result any, err error, d time.Duration) {
	m.Fire(ctx, Event{
		Type:      ToolComplete,
		RunID:     runID,
		AgentName: agent,
		ToolName:  toolName,
		CallID:    callID,
		Result:    result,
		Err:       err,
		Duration:  d,
	})
}

// FireAgentHandoff announces a transfer of control.
func (m *Manager) FireAgentHandoff(ctx context.Context, runID, from, to, reason string) {
	m.Fire(ctx, Event{Type: AgentHandoff, RunID: runID, AgentName: from, From: from, To: to, Reason: reason})
}

// FireAgentComplete announces the final answer of agent.
func (m *Manager) FireAgentComplete(ctx context.Context, runID, agent, output string) {
	m.Fire(ctx, Event{Type: AgentComplete, RunID: runID, AgentName: agent, Output: output})
}

// FireRunComplete announces the end of a run.
func (m *Manager) FireRunComplete(ctx context.Context, runID, agent, output string, err error) {
	m.Fire(ctx, Event{Type: RunComplete, RunID: runID, AgentName: agent, Output: output, Err: err})
}
