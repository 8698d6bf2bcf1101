// Package callback provides the lifecycle callback manager of a run.
//
// Five lifecycle points are observable while agents execute:
//
//   - agent_thinking: an agent is about to work on its input
//   - tool_start: a tool call is about to be dispatched
//   - tool_complete: a tool call finished, successfully or not
//   - agent_handoff: control moved from one agent to another
//   - agent_complete: an agent answered without handing off
//
// A last event, run_complete, closes every run so observers can finish
// spans and count outcomes.
//
// Handlers run synchronously in registration order. A failing or panicking
// handler is logged and isolated: it never aborts the run and never keeps
// other handlers from seeing the event.
package callback
