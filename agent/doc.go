// Package agent defines agents and the execution state machine that drives
// one agent against a model.
//
// An Agent is an immutable definition: a name, instructions, a model
// selection, the tools it may call and the agents it may hand off to. Each
// declared handoff becomes a generated transfer_to_* tool. Definitions are
// validated when constructed; a Registry validates the agent graph as a
// whole.
//
// Execution runs one agent until it either answers or hands off:
//
//	prepare -> call model -> answer                  (done)
//	                      -> tool calls -> dispatch  -> call model ...
//	                                               -> handoff requested (done)
//
// Tool failures never abort an execution. They are recorded in the
// conversation as failed tool results so the model can react to them.
package agent
