package core

import "github.com/hupe1980/agentrelay/logging"

// runLogger is embedded in RunContext. Every entry it writes carries the
// run_id of the run and, when set, its session_id.
type runLogger struct {
	logger logging.Logger
}

func newRunLogger(base logging.Logger, runID, sessionID string) *runLogger {
	kv := []any{"run_id", runID}
	if sessionID != "" {
		kv = append(kv, "session_id", sessionID)
	}

	return &runLogger{logger: logging.With(base, kv...)}
}

// Logger returns the run scoped logger. Tools log through it so their entries
// can be correlated with the run.
func (l *runLogger) Logger() logging.Logger { return l.logger }

// LogDebug logs at debug level with the run identifiers attached.
func (l *runLogger) LogDebug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// LogInfo logs at info level with the run identifiers attached.
func (l *runLogger) LogInfo(msg string, args ...any) { l.logger.Info(msg, args...) }

// LogWarn logs at warn level with the run identifiers attached.
func (l *runLogger) LogWarn(msg string, args ...any) { l.logger.Warn(msg, args...) }

// LogError logs at error level with the run identifiers attached.
func (l *runLogger) LogError(msg string, args ...any) { l.logger.Error(msg, args...) }
