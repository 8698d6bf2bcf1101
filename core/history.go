package core

import "fmt"

// History is the ordered conversation record of a run. It is shared across
// every agent participating in the run and is not safe for concurrent
// mutation.
type History struct {
	messages []Content
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Append adds messages to the end of the record.
func (h *History) Append(contents ...Content) {
	for _, c := range contents {
		h.messages = append(h.messages, cloneContent(c))
	}
}

// Messages returns a copy of the record.
func (h *History) Messages() []Content {
	out := make([]Content, len(h.messages))
	for i, c := range h.messages {
		out[i] = cloneContent(c)
	}

	return out
}

// Len returns the number of messages.
func (h *History) Len() int { return len(h.messages) }

// Last returns the most recent message.
func (h *History) Last() (Content, bool) {
	if len(h.messages) == 0 {
		return Content{}, false
	}

	return cloneContent(h.messages[len(h.messages)-1]), true
}

// Validate checks that every tool result answers exactly one earlier call.
func (h *History) Validate() error {
	return validatePairing(h.messages)
}

// RestoreHistory rebuilds a History from a persisted record. Every role is
// normalized and no message is dropped. Restoring the Messages of a restored
// history yields an equal history.
func RestoreHistory(records []Content) (*History, error) {
	h := &History{messages: make([]Content, 0, len(records))}

	for i, rec := range records {
		role, err := NormalizeRole(rec.Role)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}

		c := cloneContent(rec)
		c.Role = role
		h.messages = append(h.messages, c)
	}

	if err := h.Validate(); err != nil {
		return nil, err
	}

	return h, nil
}

func validatePairing(messages []Content) error {
	calls := map[string]bool{} // id -> answered

	for i, m := range messages {
		for _, fc := range m.FunctionCalls() {
			if fc.ID == "" {
				return fmt.Errorf("%w: message %d: function call %q without id", ErrInvalidHistory, i, fc.Name)
			}

			if _, dup := calls[fc.ID]; dup {
				return fmt.Errorf("%w: message %d: duplicate call id %q", ErrInvalidHistory, i, fc.ID)
			}

			calls[fc.ID] = false
		}

		for _, fr := range m.FunctionResponses() {
			answered, ok := calls[fr.ID]
			if !ok {
				return fmt.Errorf("%w: message %d: result %q has no matching call", ErrInvalidHistory, i, fr.ID)
			}

			if answered {
				return fmt.Errorf("%w: message %d: call %q answered twice", ErrInvalidHistory, i, fr.ID)
			}

			calls[fr.ID] = true
		}
	}

	return nil
}

func cloneContent(c Content) Content {
	parts := make([]Part, len(c.Parts))
	copy(parts, c.Parts)

	return Content{Role: c.Role, Parts: parts}
}
