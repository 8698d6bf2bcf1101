package core

import "errors"

// Sentinel errors shared across packages. Typed errors elsewhere (ToolError,
// ProviderError, HandoffLoopError) match these via errors.Is.
var (
	// ErrToolArgument marks a tool call whose arguments were missing, malformed
	// or could not be coerced. Also used for calls naming an unknown tool.
	ErrToolArgument = errors.New("tool argument error")
	// ErrToolNotFound marks a call naming a tool the agent does not have. It
	// belongs to the argument class.
	ErrToolNotFound = errors.New("tool not found")
	// ErrToolExecution marks a failure raised by tool behaviour itself.
	ErrToolExecution = errors.New("tool execution error")
	// ErrHandoffLoopExceeded is returned when a run exceeds its handoff bound.
	ErrHandoffLoopExceeded = errors.New("handoff loop exceeded")
	// ErrProvider marks a failure of the model provider call.
	ErrProvider = errors.New("provider error")
	// ErrCallback marks a failing lifecycle handler. It is logged, never
	// propagated to the run.
	ErrCallback = errors.New("callback error")
	// ErrModelCallLimit is returned when a run exceeds its model call budget.
	ErrModelCallLimit = errors.New("model call limit exceeded")
	// ErrStalePendingHandoff is returned when a run starts with a pending
	// handoff already recorded on its context.
	ErrStalePendingHandoff = errors.New("stale pending handoff on context")
	// ErrUnknownAgent is returned for agent ids missing from the registry.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrInvalidAgent is returned by eager agent validation.
	ErrInvalidAgent = errors.New("invalid agent definition")
	// ErrInvalidHistory is returned for conversation records that cannot be
	// restored (unknown role, unpaired tool result).
	ErrInvalidHistory = errors.New("invalid conversation history")
	// ErrSessionNotFound is returned by session stores for unknown ids.
	ErrSessionNotFound = errors.New("session not found")
)
