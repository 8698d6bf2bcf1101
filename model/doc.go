// Package model defines the provider-agnostic abstractions for talking to
// language models.
//
// A Model receives the resolved instructions, a fresh copy of the shared
// conversation and the tool definitions of the active agent, and returns one
// assistant message that carries text, tool calls or both. Providers (OpenAI,
// Anthropic, Gemini) live in sub packages and are selected through an
// explicit Registry so agents remain decoupled from vendor SDKs.
package model
