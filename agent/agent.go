package agent

import (
	"fmt"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/tool"
)

// Handoff declares a possible transfer of control to another agent.
type Handoff struct {
	// Target is the registry name of the receiving agent.
	Target string
	// Description overrides the generated tool description.
	Description string
}

// Options configures an Agent.
type Options struct {
	DisplayName string
	Description string
	Instruction Instruction
	// Model is the provider model id. Empty selects the provider default.
	Model string
	// Provider names the model.Registry entry. Empty selects the first one.
	Provider      string
	Tools         []tool.Tool
	Handoffs      []Handoff
	MaxToolRounds int
}

// Agent is an immutable agent definition.
type Agent struct {
	name          string
	displayName   string
	description   string
	instruction   Instruction
	model         string
	provider      string
	tools         []tool.Tool
	toolIndex     map[string]tool.Tool
	handoffs      []string
	handoffNames  map[string]string
	maxToolRounds int
}

// New creates and validates an agent definition. Tool names must be unique
// across user tools and the generated handoff tools, and must satisfy
// tool.ValidToolName.
func New(name string, optFns ...func(o *Options)) (*Agent, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", core.ErrInvalidAgent)
	}

	opts := Options{
		DisplayName:   tool.DisplayName(name),
		MaxToolRounds: 10,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Instruction.IsZero() {
		opts.Instruction = NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", opts.DisplayName))
	}

	if opts.MaxToolRounds <= 0 {
		return nil, fmt.Errorf("%w: agent %s: MaxToolRounds must be positive", core.ErrInvalidAgent, name)
	}

	a := &Agent{
		name:          name,
		displayName:   opts.DisplayName,
		description:   opts.Description,
		instruction:   opts.Instruction,
		model:         opts.Model,
		provider:      opts.Provider,
		toolIndex:     make(map[string]tool.Tool, len(opts.Tools)+len(opts.Handoffs)),
		maxToolRounds: opts.MaxToolRounds,
	}

	for i, t := range opts.Tools {
		if t == nil {
			return nil, fmt.Errorf("%w: agent %s: tool %d is nil", core.ErrInvalidAgent, name, i)
		}

		if err := a.addTool(t); err != nil {
			return nil, err
		}
	}

	targets := make([]string, 0, len(opts.Handoffs))
	for _, h := range opts.Handoffs {
		targets = append(targets, h.Target)
	}

	names, err := tool.HandoffToolNames(targets)
	if err != nil {
		return nil, fmt.Errorf("%w: agent %s: %w", core.ErrInvalidAgent, name, err)
	}

	for _, h := range opts.Handoffs {
		ht := tool.NewHandoffTool(h.Target, func(o *tool.HandoffToolOptions) {
			o.Name = names[h.Target]
			o.Description = h.Description
		})

		if err := a.addTool(ht); err != nil {
			return nil, err
		}
	}

	a.handoffs = targets
	a.handoffNames = names

	return a, nil
}

func (a *Agent) addTool(t tool.Tool) error {
	if !tool.ValidToolName(t.Name()) {
		return fmt.Errorf("%w: agent %s: invalid tool name %q", core.ErrInvalidAgent, a.name, t.Name())
	}

	if _, exists := a.toolIndex[t.Name()]; exists {
		return fmt.Errorf("%w: agent %s: duplicate tool name %q", core.ErrInvalidAgent, a.name, t.Name())
	}

	a.toolIndex[t.Name()] = t
	a.tools = append(a.tools, t)

	return nil
}

// Name returns the registry name of the agent.
func (a *Agent) Name() string { return a.name }

// DisplayName returns the human readable name.
func (a *Agent) DisplayName() string { return a.displayName }

// Description returns the agent description.
func (a *Agent) Description() string { return a.description }

// Model returns the configured model id.
func (a *Agent) Model() string { return a.model }

// Provider returns the configured provider name.
func (a *Agent) Provider() string { return a.provider }

// MaxToolRounds bounds the tool-call rounds of one execution.
func (a *Agent) MaxToolRounds() int { return a.maxToolRounds }

// Instruction returns the instruction source.
func (a *Agent) Instruction() Instruction { return a.instruction }

// Tools returns user tools followed by the generated handoff tools.
func (a *Agent) Tools() []tool.Tool {
	out := make([]tool.Tool, len(a.tools))
	copy(out, a.tools)

	return out
}

// Tool looks up a tool by name.
func (a *Agent) Tool(name string) (tool.Tool, bool) {
	t, ok := a.toolIndex[name]
	return t, ok
}

// Handoffs returns the declared handoff targets in declaration order.
func (a *Agent) Handoffs() []string {
	out := make([]string, len(a.handoffs))
	copy(out, a.handoffs)

	return out
}

// HandoffToolName returns the tool name generated for target.
func (a *Agent) HandoffToolName(target string) (string, bool) {
	name, ok := a.handoffNames[target]
	return name, ok
}
