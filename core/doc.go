// Package core provides the foundational domain types shared by agentrelay.
// It defines:
//
//   - RunContext, the per-run state bag with its transition log and the
//     pending-handoff slot
//   - ToolContext, the scoped surface handed to tool behaviour
//   - Content, Part and History, the role-tagged conversation record
//   - Session and SessionStore, the persisted form of a conversation
//   - Sentinel errors used across the packages
//
// The package keeps orchestration (agents, runner, callbacks) and persistence
// backends out of scope so it can be imported from everywhere.
package core
