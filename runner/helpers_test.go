package runner

import (
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/tool"
)

// newEscalateTool requests a handoff to an agent that is not registered.
func newEscalateTool() tool.Tool {
	return tool.NewFunctionTool("escalate", "Escalate to a human", nil, func(tc *core.ToolContext, _ map[string]any) (any, error) {
		tc.RequestHandoff("Human", "needs a person")
		return "escalated", nil
	})
}
