package runner

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentrelay/core"
)

// HandoffLoopError is returned when a run performs more handoffs than its
// bound allows.
type HandoffLoopError struct {
	Limit int
	// Path lists the active agents in order, including the rejected target.
	Path []string
}

func (e *HandoffLoopError) Error() string {
	return fmt.Sprintf("handoff loop exceeded: more than %d handoffs (%s)", e.Limit, strings.Join(e.Path, " -> "))
}

// Is reports a match for core.ErrHandoffLoopExceeded.
func (e *HandoffLoopError) Is(target error) bool { return target == core.ErrHandoffLoopExceeded }
