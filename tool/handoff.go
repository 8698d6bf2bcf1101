package tool

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"

	"github.com/hupe1980/agentrelay/core"
)

const (
	handoffPrefix = "transfer_to_"

	// MaxToolNameLength is the longest function name the supported providers
	// accept.
	MaxToolNameLength = 64
)

var (
	namespaceSeparators = []string{"::", ".", "/"}
	toolNamePattern     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	invalidNameChars    = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	repeatedUnderscores = regexp.MustCompile(`_{2,}`)
)

// ValidToolName reports whether name is accepted as a function name by the
// OpenAI, Anthropic and Gemini APIs.
func ValidToolName(name string) bool {
	return toolNamePattern.MatchString(name)
}

// HandoffToolName returns the tool name advertised for a handoff to
// targetID: namespace qualifiers are stripped, the rest is snake cased and
// suffixed with "_agent" unless it already ends in "agent". Characters
// outside [A-Za-z0-9_-] become underscores and the result is cut to
// MaxToolNameLength.
//
//	Billing              -> transfer_to_billing_agent
//	support::RefundAgent -> transfer_to_refund_agent
//	Billing (EU)         -> transfer_to_billing_eu_agent
func HandoffToolName(targetID string) string {
	return fitToolName(handoffPrefix+agentSlug(baseName(targetID)), "")
}

// QualifiedHandoffToolName is like HandoffToolName but keeps the namespace.
//
//	support::Refund -> transfer_to_support_refund_agent
func QualifiedHandoffToolName(targetID string) string {
	qualified := targetID
	for _, sep := range namespaceSeparators {
		qualified = strings.ReplaceAll(qualified, sep, "_")
	}

	return fitToolName(handoffPrefix+agentSlug(qualified), "")
}

// HandoffToolNames assigns a distinct tool name to every target id in
// declaration order. Targets whose short names collide fall back to their
// qualified names. Collisions that remain get a numeric suffix ("_2", "_3").
// Every returned name satisfies ValidToolName.
func HandoffToolNames(targetIDs []string) (map[string]string, error) {
	seenIDs := make(map[string]bool, len(targetIDs))
	shortCount := make(map[string]int, len(targetIDs))

	for _, id := range targetIDs {
		if id == "" {
			return nil, fmt.Errorf("handoff target must not be empty")
		}

		if seenIDs[id] {
			return nil, fmt.Errorf("duplicate handoff target %q", id)
		}

		seenIDs[id] = true
		shortCount[HandoffToolName(id)]++
	}

	names := make(map[string]string, len(targetIDs))
	taken := make(map[string]bool, len(targetIDs))

	for _, id := range targetIDs {
		name := HandoffToolName(id)
		if shortCount[name] > 1 {
			name = QualifiedHandoffToolName(id)
		}

		candidate := name
		for n := 2; taken[candidate]; n++ {
			candidate = fitToolName(name, "_"+strconv.Itoa(n))
		}

		if !ValidToolName(candidate) {
			return nil, fmt.Errorf("handoff target %q yields invalid tool name %q", id, candidate)
		}

		taken[candidate] = true
		names[id] = candidate
	}

	return names, nil
}

// DisplayName turns an agent id into a human readable name.
//
//	support::RefundAgent -> Refund Agent
func DisplayName(targetID string) string {
	words := strings.Fields(strcase.ToDelimited(baseName(targetID), ' '))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}

	return strings.Join(words, " ")
}

func baseName(id string) string {
	base := trimSeparators(id)
	for _, sep := range namespaceSeparators {
		if i := strings.LastIndex(base, sep); i >= 0 {
			base = base[i+len(sep):]
		}
	}

	if base == "" {
		return id
	}

	return base
}

func trimSeparators(id string) string {
	for {
		trimmed := id
		for _, sep := range namespaceSeparators {
			trimmed = strings.TrimSuffix(trimmed, sep)
		}

		if trimmed == id {
			return id
		}

		id = trimmed
	}
}

func agentSlug(s string) string {
	slug := invalidNameChars.ReplaceAllString(strcase.ToSnake(s), "_")
	slug = strings.Trim(repeatedUnderscores.ReplaceAllString(slug, "_"), "_-")

	if slug == "" {
		return "agent"
	}

	if !strings.HasSuffix(slug, "agent") {
		slug += "_agent"
	}

	return slug
}

// fitToolName cuts name so that name+suffix fits MaxToolNameLength. Names
// are ASCII at this point.
func fitToolName(name, suffix string) string {
	if limit := MaxToolNameLength - len(suffix); len(name) > limit {
		name = strings.TrimRight(name[:limit], "_-")
	}

	return name + suffix
}

// HandoffAck is the result a handoff tool returns to the model.
type HandoffAck struct {
	Type        string `json:"type"`
	Target      string `json:"target"`
	TargetAgent string `json:"target_agent"`
	Reason      string `json:"reason,omitempty"`
	Message     string `json:"message"`
}

// HandoffToolOptions configures NewHandoffTool.
type HandoffToolOptions struct {
	// Name overrides the generated tool name.
	Name string
	// Description overrides "Transfer to <Display Name>".
	Description string
	// DisplayName overrides the name derived from the target id.
	DisplayName string
}

// HandoffTool transfers control of the run to a fixed target agent. The
// generated tool only records the request; the runner performs the switch.
type HandoffTool struct {
	target      string
	displayName string
	name        string
	description string
}

// NewHandoffTool creates the handoff tool for targetID.
func NewHandoffTool(targetID string, optFns ...func(o *HandoffToolOptions)) *HandoffTool {
	opts := HandoffToolOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.DisplayName == "" {
		opts.DisplayName = DisplayName(targetID)
	}

	if opts.Name == "" {
		opts.Name = HandoffToolName(targetID)
	}

	if opts.Description == "" {
		opts.Description = "Transfer to " + opts.DisplayName
	}

	return &HandoffTool{
		target:      targetID,
		displayName: opts.DisplayName,
		name:        opts.Name,
		description: opts.Description,
	}
}

// Name returns the generated transfer_to_* name.
func (t *HandoffTool) Name() string { return t.name }

// Description returns the description exposed to the model.
func (t *HandoffTool) Description() string { return t.description }

// Target returns the id of the agent control is transferred to.
func (t *HandoffTool) Target() string { return t.target }

// Parameters declares the single optional reason argument.
func (t *HandoffTool) Parameters() map[string]any {
	return Schema(handoffParams)
}

var handoffParams = []ParamSpec{
	{Name: "reason", Type: TypeString, Description: "Why the conversation is being transferred"},
}

// Call records the pending handoff on the run and acknowledges it.
func (t *HandoffTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	coerced, err := Coerce(args, handoffParams)
	if err != nil {
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: CodeValidation, Details: err}
	}

	reason, _ := coerced["reason"].(string)

	toolCtx.RequestHandoff(t.target, reason)

	msg := "Transferring to " + t.displayName
	if reason != "" {
		msg += ": " + reason
	}

	return HandoffAck{
		Type:        "handoff",
		Target:      t.displayName,
		TargetAgent: t.target,
		Reason:      reason,
		Message:     msg,
	}, nil
}

// IsHandoffTool reports whether t transfers control to another agent.
func IsHandoffTool(t Tool) bool {
	_, ok := t.(*HandoffTool)
	return ok
}
