package callback

import (
	"context"

	"github.com/hupe1980/agentrelay/logging"
)

// Observer receives every lifecycle point. Embed BaseObserver to implement
// only the methods of interest.
type Observer interface {
	OnAgentThinking(ctx context.Context, ev Event) error
	OnToolStart(ctx context.Context, ev Event) error
	OnToolComplete(ctx context.Context, ev Event) error
	OnAgentHandoff(ctx context.Context, ev Event) error
	OnAgentComplete(ctx context.Context, ev Event) error
	OnRunComplete(ctx context.Context, ev Event) error
}

// BaseObserver implements Observer with no-ops.
type BaseObserver struct{}

func (BaseObserver) OnAgentThinking(context.Context, Event) error { return nil }
func (BaseObserver) OnToolStart(context.Context, Event) error     { return nil }
func (BaseObserver) OnToolComplete(context.Context, Event) error  { return nil }
func (BaseObserver) OnAgentHandoff(context.Context, Event) error  { return nil }
func (BaseObserver) OnAgentComplete(context.Context, Event) error { return nil }
func (BaseObserver) OnRunComplete(context.Context, Event) error   { return nil }

// Subscribe registers one handler per lifecycle point that forwards to obs.
func (m *Manager) Subscribe(obs Observer) {
	m.Register(AgentThinking, obs.OnAgentThinking)
	m.Register(ToolStart, obs.OnToolStart)
	m.Register(ToolComplete, obs.OnToolComplete)
	m.Register(AgentHandoff, obs.OnAgentHandoff)
	m.Register(AgentComplete, obs.OnAgentComplete)
	m.Register(RunComplete, obs.OnRunComplete)
}

// NewLoggingHandler returns a handler that logs every event it receives.
func NewLoggingHandler(logger logging.Logger) Handler {
	return func(_ context.Context, ev Event) error {
		kv := []any{"event", string(ev.Type), "run", ev.RunID, "agent", ev.AgentName}

		switch ev.Type {
		case ToolStart:
			kv = append(kv, "tool", ev.ToolName, "fc_id", ev.CallID)
		case ToolComplete:
			kv = append(kv, "tool", ev.ToolName, "fc_id", ev.CallID, "duration_ms", ev.Duration.Milliseconds())
		case AgentHandoff:
			kv = append(kv, "from", ev.From, "to", ev.To, "reason", ev.Reason)
		case AgentComplete:
			kv = append(kv, "output_length", len(ev.Output))
		}

		if ev.Err != nil {
			kv = append(kv, "error", ev.Err.Error())
			logger.Warn("callback.event", kv...)

			return nil
		}

		logger.Info("callback.event", kv...)

		return nil
	}
}
