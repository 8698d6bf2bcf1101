// Package logging provides the minimal Logger interface used throughout
// agentrelay together with adapters for log/slog and go.uber.org/zap.
//
// Components log dotted event names ("runner.run.start", "tool.call.error")
// followed by key/value pairs. Pass NoOpLogger{} (the default everywhere) to
// silence output.
package logging
