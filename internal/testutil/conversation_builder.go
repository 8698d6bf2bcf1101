package testutil

import (
	"github.com/hupe1980/agentrelay/core"
)

// ConversationBuilder helps construct conversation records with fluent
// chaining for tests.
// Example:
//
//	msgs := NewConversation().User("hi").ToolCall("c1", "lookup", `{}`).ToolResult("c1", "lookup", "ok").Assistant("done").Build()
type ConversationBuilder struct {
	contents []core.Content
}

// NewConversation creates an empty builder.
func NewConversation() *ConversationBuilder { return &ConversationBuilder{} }

// User appends a user turn (chainable).
func (b *ConversationBuilder) User(text string) *ConversationBuilder {
	b.contents = append(b.contents, core.NewTextContent(core.RoleUser, text))
	return b
}

// Assistant appends an assistant text turn (chainable).
func (b *ConversationBuilder) Assistant(text string) *ConversationBuilder {
	b.contents = append(b.contents, core.NewTextContent(core.RoleAssistant, text))
	return b
}

// ToolCall appends an assistant turn requesting a single tool call (chainable).
func (b *ConversationBuilder) ToolCall(id, name, args string) *ConversationBuilder {
	b.contents = append(b.contents, core.NewFunctionCallContent(core.FunctionCall{ID: id, Name: name, Arguments: args}))
	return b
}

// ToolResult appends the successful result of a tool call (chainable).
func (b *ConversationBuilder) ToolResult(id, name string, result any) *ConversationBuilder {
	b.contents = append(b.contents, core.NewFunctionResponseContent(core.FunctionResponse{ID: id, Name: name, Response: result}))
	return b
}

// ToolError appends a failed tool call result (chainable).
func (b *ConversationBuilder) ToolError(id, name, msg string) *ConversationBuilder {
	b.contents = append(b.contents, core.NewFunctionResponseContent(core.FunctionResponse{ID: id, Name: name, Error: msg}))
	return b
}

// Handoff appends a handoff tool call and its acknowledgement (chainable).
func (b *ConversationBuilder) Handoff(id, toolName, reason string) *ConversationBuilder {
	return b.
		ToolCall(id, toolName, `{"reason":"`+reason+`"}`).
		ToolResult(id, toolName, map[string]any{"type": "handoff"})
}

// Build returns the conversation record.
func (b *ConversationBuilder) Build() []core.Content {
	out := make([]core.Content, len(b.contents))
	copy(out, b.contents)

	return out
}
