package runner

import (
	"encoding/json"

	"github.com/hupe1980/agentrelay/core"
)

// RunResult is the outcome of one Process call. Failures are reported in
// Err, never as a returned error or panic.
type RunResult struct {
	RunID    string
	Output   string
	Messages []core.Content
	Usage    core.Usage
	// Agent is the active agent when the run ended. Multi-turn callers pass
	// it as the starting agent of the next turn.
	Agent       string
	Transitions []core.Transition
	Handoffs    int
	ModelCalls  int
	Err         error
}

// Success reports whether the run produced an answer without error.
func (r *RunResult) Success() bool { return r.Err == nil && r.Output != "" }

// ErrorMessage returns the human readable failure, or "" on success.
func (r *RunResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}

	return r.Err.Error()
}

// MarshalJSON renders the result with the error as a string.
func (r *RunResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RunID       string            `json:"run_id"`
		Output      string            `json:"output"`
		Messages    []core.Content    `json:"messages"`
		Usage       core.Usage        `json:"usage"`
		Agent       string            `json:"agent"`
		Transitions []core.Transition `json:"transitions,omitempty"`
		Handoffs    int               `json:"handoffs"`
		ModelCalls  int               `json:"model_calls"`
		Success     bool              `json:"success"`
		Error       string            `json:"error,omitempty"`
	}{
		RunID:       r.RunID,
		Output:      r.Output,
		Messages:    r.Messages,
		Usage:       r.Usage,
		Agent:       r.Agent,
		Transitions: r.Transitions,
		Handoffs:    r.Handoffs,
		ModelCalls:  r.ModelCalls,
		Success:     r.Success(),
		Error:       r.ErrorMessage(),
	})
}
