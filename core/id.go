package core

import "github.com/google/uuid"

// NewID returns a random identifier used for runs, sessions and tool calls.
func NewID() string {
	return uuid.NewString()
}

// Usage aggregates token accounting reported by model providers.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates o into u.
func (u *Usage) Add(o Usage) {
	u.PromptTokens += o.PromptTokens
	u.CompletionTokens += o.CompletionTokens
	u.TotalTokens += o.TotalTokens
}
