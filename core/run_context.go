package core

import (
	"maps"
	"slices"
	"time"

	"github.com/hupe1980/agentrelay/logging"
)

// HandoffRequest is a pending transfer of control to another agent.
type HandoffRequest struct {
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
}

// Transition records one completed handoff.
type Transition struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RunContextOptions configures NewRunContext.
type RunContextOptions struct {
	SessionID   string
	RunID       string
	State       map[string]any
	Transitions []Transition
	Logger      logging.Logger
}

// RunContext is the mutable scope of a single run. It aggregates:
//   - Identifiers (SessionID, RunID)
//   - The shared state bag, visible to every agent of the run
//   - The ordered log of agent transitions
//   - The single pending-handoff slot written by tools and consumed by the runner
//   - A logger bound to RunID and SessionID
//
// A RunContext has exactly one writer at a time and performs no locking.
// Concurrent runs must use distinct contexts.
type RunContext struct {
	SessionID string
	RunID     string

	state       map[string]any
	transitions []Transition
	pending     *HandoffRequest

	*runLogger
}

// NewRunContext constructs a RunContext with an empty state bag unless
// State is supplied.
func NewRunContext(optFns ...func(o *RunContextOptions)) *RunContext {
	opts := RunContextOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.RunID == "" {
		opts.RunID = NewID()
	}

	state := opts.State
	if state == nil {
		state = map[string]any{}
	}

	return &RunContext{
		SessionID:   opts.SessionID,
		RunID:       opts.RunID,
		state:       state,
		transitions: slices.Clone(opts.Transitions),
		runLogger:   newRunLogger(opts.Logger, opts.RunID, opts.SessionID),
	}
}

// Get returns the value stored under key.
func (rc *RunContext) Get(key string) (any, bool) {
	v, ok := rc.state[key]
	return v, ok
}

// Set stores value under key. Keys are opaque to the core.
func (rc *RunContext) Set(key string, value any) { rc.state[key] = value }

// Delete removes key from the state bag.
func (rc *RunContext) Delete(key string) { delete(rc.state, key) }

// Keys returns the state keys in sorted order.
func (rc *RunContext) Keys() []string {
	return slices.Sorted(maps.Keys(rc.state))
}

// State returns a shallow copy of the state bag.
func (rc *RunContext) State() map[string]any {
	return maps.Clone(rc.state)
}

// RecordTransition appends a handoff to the transition log.
func (rc *RunContext) RecordTransition(from, to, reason string) {
	rc.transitions = append(rc.transitions, Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})

	rc.LogInfo("context.transition.recorded", "from", from, "to", to, "reason", reason)
}

// PopTransition removes and returns the most recent transition.
func (rc *RunContext) PopTransition() (Transition, bool) {
	if len(rc.transitions) == 0 {
		return Transition{}, false
	}

	last := rc.transitions[len(rc.transitions)-1]
	rc.transitions = rc.transitions[:len(rc.transitions)-1]

	return last, true
}

// Transitions returns a copy of the transition log in append order.
func (rc *RunContext) Transitions() []Transition {
	return slices.Clone(rc.transitions)
}

// SetPendingHandoff records a handoff request, replacing any earlier one.
func (rc *RunContext) SetPendingHandoff(req HandoffRequest) {
	if rc.pending != nil {
		rc.LogWarn("context.handoff.replaced", "previous", rc.pending.Target, "target", req.Target)
	}

	rc.pending = &req
}

// PendingHandoff returns the pending handoff without clearing it.
func (rc *RunContext) PendingHandoff() (HandoffRequest, bool) {
	if rc.pending == nil {
		return HandoffRequest{}, false
	}

	return *rc.pending, true
}

// TakePendingHandoff returns the pending handoff and clears the slot, so each
// request is consumed exactly once.
func (rc *RunContext) TakePendingHandoff() (HandoffRequest, bool) {
	req, ok := rc.PendingHandoff()
	rc.pending = nil

	return req, ok
}

// ClearPendingHandoff empties the slot.
func (rc *RunContext) ClearPendingHandoff() { rc.pending = nil }
