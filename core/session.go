package core

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/tiendc/go-deepcopy"

	"github.com/hupe1980/agentrelay/logging"
)

// Session is the persisted form of a multi-turn conversation: the shared
// state bag, the transition log, the conversation record and the agent that
// was active when the last run ended.
type Session struct {
	ID          string         `json:"id"`
	ActiveAgent string         `json:"active_agent,omitempty"`
	State       map[string]any `json:"state"`
	Transitions []Transition   `json:"transitions,omitempty"`
	History     []Content      `json:"history,omitempty"`
	Created     time.Time      `json:"created"`
	Updated     time.Time      `json:"updated"`
}

// NewSession creates an empty session with the given ID.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, State: map[string]any{}, Created: now, Updated: now}
}

// Clone returns a deep copy safe for independent mutation.
func (s *Session) Clone() (*Session, error) {
	clone := &Session{
		ID:          s.ID,
		ActiveAgent: s.ActiveAgent,
		State:       map[string]any{},
		Transitions: slices.Clone(s.Transitions),
		History:     make([]Content, len(s.History)),
		Created:     s.Created,
		Updated:     s.Updated,
	}

	if len(s.State) > 0 {
		if err := deepcopy.Copy(&clone.State, s.State); err != nil {
			return nil, fmt.Errorf("clone session state: %w", err)
		}
	}

	for i, c := range s.History {
		clone.History[i] = cloneContent(c)
	}

	return clone, nil
}

// RunContext restores a live RunContext from the session. The returned
// context shares the session's state map.
func (s *Session) RunContext(logger logging.Logger) *RunContext {
	if s.State == nil {
		s.State = map[string]any{}
	}

	return NewRunContext(func(o *RunContextOptions) {
		o.SessionID = s.ID
		o.State = s.State
		o.Transitions = s.Transitions
		o.Logger = logger
	})
}

// Restore rebuilds the conversation record of the session.
func (s *Session) Restore() (*History, error) {
	return RestoreHistory(s.History)
}

// Capture copies the live run state back into the session.
func (s *Session) Capture(rc *RunContext, messages []Content, activeAgent string) {
	s.State = maps.Clone(rc.state)
	s.Transitions = rc.Transitions()
	s.History = messages
	s.ActiveAgent = activeAgent
	s.Updated = time.Now().UTC()
}

// SessionStore persists sessions between runs.
type SessionStore interface {
	// Get returns the session or an error wrapping ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Save creates or replaces the session.
	Save(ctx context.Context, s *Session) error
	// Delete removes the session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}
