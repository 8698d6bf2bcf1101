// Package runner implements the control loop that drives a multi-agent run.
//
// A Runner selects the active agent, runs it until it answers or hands off,
// follows handoffs between agents and bounds how many handoffs one run may
// perform so that cyclic agent graphs always terminate.
//
// # Responsibilities
//   - Active agent selection (explicit, carried over, default, first)
//   - Handoff processing: pending slot, transition log, next input policy
//   - Handoff and model call bounds
//   - Lifecycle callbacks (agent_thinking, agent_handoff, run_complete)
//   - Converting every failure, panics included, into a failed RunResult
//
// The Runner keeps no per-run state. Independent runs with distinct
// RunContexts may be processed concurrently.
package runner
