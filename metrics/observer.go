// Package metrics exports run lifecycle events as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/agentrelay/callback"
)

var _ callback.Observer = (*Observer)(nil)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Observer counts agent turns and answers, tool calls, handoffs and runs.
type Observer struct {
	callback.BaseObserver

	agentTurns   *prometheus.CounterVec
	agentAnswers *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	handoffs     *prometheus.CounterVec
	runs         *prometheus.CounterVec
}

// NewObserver creates the collectors and registers them with reg.
func NewObserver(reg prometheus.Registerer, namespace string) (*Observer, error) {
	o := &Observer{
		agentTurns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_turns_total",
				Help:      "Total number of agent turns",
			},
			[]string{"agent"},
		),
		agentAnswers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_answers_total",
				Help:      "Total number of final answers by agent",
			},
			[]string{"agent"},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls",
			},
			[]string{"tool", "status"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "Tool call duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"tool"},
		),
		handoffs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handoffs_total",
				Help:      "Total number of agent handoffs",
			},
			[]string{"from", "to"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of completed runs",
			},
			[]string{"status"},
		),
	}

	for _, c := range []prometheus.Collector{o.agentTurns, o.agentAnswers, o.toolCalls, o.toolDuration, o.handoffs, o.runs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// OnAgentThinking counts an agent turn.
func (o *Observer) OnAgentThinking(_ context.Context, ev callback.Event) error {
	o.agentTurns.WithLabelValues(ev.AgentName).Inc()
	return nil
}

// OnToolComplete counts the tool call and observes its duration.
func (o *Observer) OnToolComplete(_ context.Context, ev callback.Event) error {
	o.toolCalls.WithLabelValues(ev.ToolName, status(ev.Err)).Inc()
	o.toolDuration.WithLabelValues(ev.ToolName).Observe(ev.Duration.Seconds())

	return nil
}

// OnAgentHandoff counts a handoff.
func (o *Observer) OnAgentHandoff(_ context.Context, ev callback.Event) error {
	o.handoffs.WithLabelValues(ev.From, ev.To).Inc()
	return nil
}

// OnAgentComplete counts a final answer.
func (o *Observer) OnAgentComplete(_ context.Context, ev callback.Event) error {
	o.agentAnswers.WithLabelValues(ev.AgentName).Inc()
	return nil
}

// OnRunComplete counts a finished run.
func (o *Observer) OnRunComplete(_ context.Context, ev callback.Event) error {
	o.runs.WithLabelValues(status(ev.Err)).Inc()
	return nil
}

func status(err error) string {
	if err != nil {
		return statusError
	}

	return statusSuccess
}
