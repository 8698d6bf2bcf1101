package testutil

import (
	"time"

	"github.com/hupe1980/agentrelay/core"
)

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder("sess-1").State("k", "v").ActiveAgent("Billing").Build()
type SessionBuilder struct {
	id          string
	activeAgent string
	state       map[string]any
	transitions []core.Transition
	history     []core.Content
}

// NewSessionBuilder creates a new builder for a session with the given id.
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id, state: map[string]any{}}
}

// State sets or overwrites a state key/value pair (chainable).
func (b *SessionBuilder) State(key string, val any) *SessionBuilder {
	b.state[key] = val
	return b
}

// ActiveAgent sets the agent that continues the conversation (chainable).
func (b *SessionBuilder) ActiveAgent(name string) *SessionBuilder {
	b.activeAgent = name
	return b
}

// Transition appends a transition with a fixed timestamp (chainable).
func (b *SessionBuilder) Transition(from, to, reason string, at time.Time) *SessionBuilder {
	b.transitions = append(b.transitions, core.Transition{From: from, To: to, Reason: reason, Timestamp: at})
	return b
}

// History appends conversation records (chainable).
func (b *SessionBuilder) History(contents ...core.Content) *SessionBuilder {
	b.history = append(b.history, contents...)
	return b
}

// Build returns a *core.Session with the configured fields.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.id)
	s.ActiveAgent = b.activeAgent

	for k, v := range b.state {
		s.State[k] = v
	}

	s.Transitions = append(s.Transitions, b.transitions...)
	s.History = append(s.History, b.history...)

	return s
}
