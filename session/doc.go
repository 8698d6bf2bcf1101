// Package session houses concrete implementations of core.SessionStore.
// The interface itself (and the Session struct) live in the core package so
// that higher level packages never depend on a concrete storage backend.
//
// Three backends are provided:
//
//   - InMemoryStore: process local, for tests and single-process demos
//   - RedisStore: JSON documents in Redis with an optional TTL
//   - SQLStore: one row per session through gorm (SQLite, Postgres)
//
// Every backend round-trips the conversation record losslessly, including
// the pairing between tool calls and their results.
package session
