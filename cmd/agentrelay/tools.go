package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/tool"
)

// builtinTools are the tools a configuration file can refer to by name.
func builtinTools() map[string]tool.Tool {
	tools := []tool.Tool{
		tool.NewFunctionTool("current_time", "Returns the current time in RFC 3339 format", []tool.ParamSpec{
			{Name: "timezone", Type: tool.TypeString, Description: "IANA time zone, e.g. Europe/Berlin"},
		}, currentTime),
		tool.NewFunctionTool("remember", "Stores a fact in the shared conversation state", []tool.ParamSpec{
			{Name: "key", Type: tool.TypeString, Required: true},
			{Name: "value", Type: tool.TypeString, Required: true},
		}, remember),
		tool.NewFunctionTool("recall", "Reads a fact from the shared conversation state", []tool.ParamSpec{
			{Name: "key", Type: tool.TypeString, Required: true},
		}, recall),
		tool.NewStateTool(),
	}

	out := make(map[string]tool.Tool, len(tools))
	for _, t := range tools {
		out[t.Name()] = t
	}

	return out
}

func currentTime(_ *core.ToolContext, args map[string]any) (any, error) {
	now := time.Now()

	if tz, _ := args["timezone"].(string); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("unknown time zone %q", tz)
		}

		now = now.In(loc)
	}

	return now.Format(time.RFC3339), nil
}

func remember(tc *core.ToolContext, args map[string]any) (any, error) {
	key, _ := args["key"].(string)
	tc.SetState("fact."+strings.ToLower(key), args["value"])

	return "stored", nil
}

func recall(tc *core.ToolContext, args map[string]any) (any, error) {
	key, _ := args["key"].(string)

	v, ok := tc.GetState("fact." + strings.ToLower(key))
	if !ok {
		return nil, fmt.Errorf("nothing remembered for %q", key)
	}

	return v, nil
}
