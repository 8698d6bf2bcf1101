package runner

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/callback"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/model"
)

// HandoffInput selects the input the receiving agent gets after a handoff.
type HandoffInput string

const (
	// HandoffInputNone adds no user turn. The receiving agent continues
	// from the shared conversation, which ends with the handoff result.
	HandoffInputNone HandoffInput = "none"
	// HandoffInputReason adds the handoff reason as a user turn.
	HandoffInputReason HandoffInput = "reason"
	// HandoffInputOriginal re-sends the original user message.
	HandoffInputOriginal HandoffInput = "original"
)

// ParseHandoffInput parses a policy name. The empty string selects
// HandoffInputNone.
func ParseHandoffInput(s string) (HandoffInput, error) {
	switch HandoffInput(s) {
	case "", HandoffInputNone:
		return HandoffInputNone, nil
	case HandoffInputReason, HandoffInputOriginal:
		return HandoffInput(s), nil
	default:
		return "", fmt.Errorf("unknown handoff input policy %q", s)
	}
}

// Options holds configuration overrides passed to New().
type Options struct {
	// MaxHandoffs bounds the handoffs of one run. The run fails once the
	// count exceeds it.
	MaxHandoffs int
	// MaxModelCalls limits the number of model calls per run. 0 means
	// unlimited.
	MaxModelCalls int
	HandoffInput  HandoffInput
	// Callbacks receives lifecycle events. A private manager is created
	// when nil.
	Callbacks *callback.Manager
	Logger    logging.Logger
	// DefaultAgent starts runs without an explicit starting agent. The
	// first registered agent is used when empty.
	DefaultAgent string
}

// ProcessOptions configures a single Process call.
type ProcessOptions struct {
	// RunContext carries state across turns. A fresh one is created when nil.
	RunContext *core.RunContext
	// StartingAgent overrides the default agent.
	StartingAgent string
	// History holds prior turns. A fresh one is created when nil.
	History *core.History
}

// Runner coordinates agent execution. Public methods are safe for
// concurrent use.
type Runner struct {
	agents *agent.Registry
	models *model.Registry

	maxHandoffs   int
	maxModelCalls int
	handoffInput  HandoffInput
	callbacks     *callback.Manager
	logger        logging.Logger
	defaultAgent  string
}

// New constructs a Runner and validates the agent graph.
func New(agents *agent.Registry, models *model.Registry, optFns ...func(o *Options)) (*Runner, error) {
	opts := Options{
		MaxHandoffs:   5,
		MaxModelCalls: 50,
		HandoffInput:  HandoffInputNone,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if agents == nil || agents.Len() == 0 {
		return nil, fmt.Errorf("%w: no agents registered", core.ErrUnknownAgent)
	}

	if models == nil {
		return nil, fmt.Errorf("model registry must not be nil")
	}

	if err := agents.Validate(); err != nil {
		return nil, err
	}

	if opts.DefaultAgent != "" {
		if _, ok := agents.Get(opts.DefaultAgent); !ok {
			return nil, fmt.Errorf("%w: default agent %q", core.ErrUnknownAgent, opts.DefaultAgent)
		}
	}

	if opts.MaxHandoffs < 0 {
		return nil, fmt.Errorf("MaxHandoffs must not be negative")
	}

	if opts.MaxModelCalls < 0 {
		return nil, fmt.Errorf("MaxModelCalls must not be negative")
	}

	handoffInput, err := ParseHandoffInput(string(opts.HandoffInput))
	if err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if opts.Callbacks == nil {
		opts.Callbacks = callback.NewManager(func(o *callback.Options) { o.Logger = opts.Logger })
	}

	return &Runner{
		agents:        agents,
		models:        models,
		maxHandoffs:   opts.MaxHandoffs,
		maxModelCalls: opts.MaxModelCalls,
		handoffInput:  handoffInput,
		callbacks:     opts.Callbacks,
		logger:        opts.Logger,
		defaultAgent:  opts.DefaultAgent,
	}, nil
}

// Agents returns the agent registry.
func (r *Runner) Agents() *agent.Registry { return r.agents }

// Models returns the model registry.
func (r *Runner) Models() *model.Registry { return r.models }

// Callbacks returns the callback manager.
func (r *Runner) Callbacks() *callback.Manager { return r.callbacks }

// Process runs message through the agent graph. It never panics and never
// returns an error directly: failures are reported in RunResult.Err.
func (r *Runner) Process(ctx context.Context, message string, optFns ...func(o *ProcessOptions)) (res *RunResult) {
	opts := ProcessOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	rc := opts.RunContext
	if rc == nil {
		rc = core.NewRunContext(func(o *core.RunContextOptions) { o.Logger = r.logger })
	}

	history := opts.History
	if history == nil {
		history = core.NewHistory()
	}

	res = &RunResult{RunID: rc.RunID}
	log := r.runLogger(rc)

	defer func() {
		if p := recover(); p != nil {
			log.Error("runner.run.panic", "recover", p, "stack", string(debug.Stack()))
			res.Err = fmt.Errorf("runner panic: %v", p)
			res.Output = ""
		}

		res.Messages = history.Messages()
		res.Transitions = rc.Transitions()

		if res.Err != nil {
			log.Error("runner.run.failed", "agent", res.Agent, "error", res.Err.Error())
		} else {
			log.Info("runner.run.complete", "agent", res.Agent, "handoffs", res.Handoffs)
		}

		r.callbacks.FireRunComplete(ctx, rc.RunID, res.Agent, res.Output, res.Err)
	}()

	r.run(ctx, rc, history, message, opts.StartingAgent, res)

	return res
}

// runLogger binds the run identifiers to the runner's logger.
func (r *Runner) runLogger(rc *core.RunContext) logging.Logger {
	kv := []any{"run_id", rc.RunID}
	if rc.SessionID != "" {
		kv = append(kv, "session_id", rc.SessionID)
	}

	return logging.With(r.logger, kv...)
}

func (r *Runner) run(ctx context.Context, rc *core.RunContext, history *core.History, message, starting string, res *RunResult) {
	active, err := r.startingAgent(starting)
	if err != nil {
		res.Err = err
		return
	}

	res.Agent = active.Name()

	if req, stale := rc.PendingHandoff(); stale {
		res.Err = fmt.Errorf("%w: target %q", core.ErrStalePendingHandoff, req.Target)
		return
	}

	r.runLogger(rc).Info("runner.run.start", "agent", active.Name())

	limiter := core.NewModelLimiter(r.maxModelCalls)
	path := []string{active.Name()}
	input := message

	for {
		r.callbacks.FireAgentThinking(ctx, rc.RunID, active.Name(), input)

		m, err := r.models.Resolve(active.Provider(), active.Model())
		if err != nil {
			res.Err = err
			return
		}

		exec := agent.NewExecution(active, m, history, func(o *agent.ExecutionOptions) {
			o.Callbacks = r.callbacks
			o.Limiter = limiter
		})

		out, err := exec.Run(ctx, rc, input)
		if out != nil {
			res.Usage.Add(out.Usage)
			res.ModelCalls += out.ModelCalls
		}

		if err != nil {
			res.Err = err
			return
		}

		if out.Kind == agent.OutcomeAnswer {
			res.Output = out.Output
			return
		}

		req, _ := rc.TakePendingHandoff()

		target, ok := r.agents.Get(req.Target)
		if !ok {
			res.Err = fmt.Errorf("%w: handoff target %q", core.ErrUnknownAgent, req.Target)
			return
		}

		r.callbacks.FireAgentHandoff(ctx, rc.RunID, active.Name(), target.Name(), req.Reason)
		rc.RecordTransition(active.Name(), target.Name(), req.Reason)

		r.runLogger(rc).Info("runner.handoff", "from", active.Name(), "to", target.Name(), "reason", req.Reason)

		active = target
		res.Agent = active.Name()
		input = r.nextInput(req, message)
		path = append(path, active.Name())

		res.Handoffs++
		if res.Handoffs > r.maxHandoffs {
			res.Err = &HandoffLoopError{Limit: r.maxHandoffs, Path: path}
			return
		}
	}
}

func (r *Runner) startingAgent(name string) (*agent.Agent, error) {
	if name == "" {
		name = r.defaultAgent
	}

	if name == "" {
		a, _ := r.agents.First()
		return a, nil
	}

	a, ok := r.agents.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownAgent, name)
	}

	return a, nil
}

func (r *Runner) nextInput(req core.HandoffRequest, message string) string {
	switch r.handoffInput {
	case HandoffInputReason:
		return req.Reason
	case HandoffInputOriginal:
		return message
	default:
		return ""
	}
}
