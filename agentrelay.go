// Package agentrelay provides a high-level façade over the runner and its
// service abstractions (agent and model registries, sessions, callbacks and
// logging). Most applications interact with this package by:
//  1. Creating a Relay via New() (optionally overriding the in-memory session store)
//  2. Registering providers and agents
//  3. Calling Process for one-shot runs or Chat for multi-turn sessions
//
// Chat persists the shared state, the conversation and the active agent of a
// session between turns, so a conversation handed off to a specialist stays
// with that specialist on the next message.
package agentrelay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/callback"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/runner"
	"github.com/hupe1980/agentrelay/session"
)

// Options configures the Relay instance.
type Options struct {
	// Models resolves agent providers. A fresh registry is created if nil.
	Models *model.Registry
	// Sessions persists Chat sessions (defaults to an in-memory store).
	Sessions core.SessionStore
	// Callbacks receives lifecycle events of every run.
	Callbacks *callback.Manager
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Runner settings, see runner.Options.
	MaxHandoffs   int
	MaxModelCalls int
	HandoffInput  runner.HandoffInput
	DefaultAgent  string
}

// Relay is the high-level façade aggregating the runner and its services.
type Relay struct {
	opts   Options
	agents *agent.Registry

	mu     sync.Mutex
	runner *runner.Runner

	sessionLocks sync.Map
}

// New creates a new Relay instance with optional overrides.
func New(optFns ...func(o *Options)) *Relay {
	opts := Options{
		Models:        model.NewRegistry(),
		Sessions:      session.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
		MaxHandoffs:   5,
		MaxModelCalls: 50,
		HandoffInput:  runner.HandoffInputNone,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if opts.Callbacks == nil {
		opts.Callbacks = callback.NewManager(func(o *callback.Options) { o.Logger = opts.Logger })
	}

	return &Relay{opts: opts, agents: agent.NewRegistry()}
}

// Register adds agents. Names must be unique.
func (r *Relay) Register(agents ...*agent.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range agents {
		if err := r.agents.Register(a); err != nil {
			return err
		}
	}

	r.runner = nil

	return nil
}

// RegisterProvider adds a model provider.
func (r *Relay) RegisterProvider(name string, factory model.Factory) error {
	return r.opts.Models.Register(name, factory)
}

// Subscribe attaches an observer to every run.
func (r *Relay) Subscribe(obs callback.Observer) { r.opts.Callbacks.Subscribe(obs) }

// Callbacks returns the callback manager shared by all runs.
func (r *Relay) Callbacks() *callback.Manager { return r.opts.Callbacks }

// Agents returns the agent registry.
func (r *Relay) Agents() *agent.Registry { return r.agents }

// Models returns the model registry.
func (r *Relay) Models() *model.Registry { return r.opts.Models }

// Sessions returns the session store used by Chat.
func (r *Relay) Sessions() core.SessionStore { return r.opts.Sessions }

// Process runs a single message without session persistence. Configuration
// errors are reported in RunResult.Err like run failures.
func (r *Relay) Process(ctx context.Context, message string, optFns ...func(o *runner.ProcessOptions)) *runner.RunResult {
	rn, err := r.getRunner()
	if err != nil {
		return &runner.RunResult{Err: err}
	}

	return rn.Process(ctx, message, optFns...)
}

// Chat processes one turn of the session sessionID, creating the session on
// first use. The returned error reports store failures only. Run failures
// are reported in RunResult.Err and the session is saved either way.
//
// When a turn fails with a HandoffLoopError the rejected handoff is not
// persisted: the session keeps the agent that was active before it and the
// stored transition log omits it. RunResult still reports the attempt.
func (r *Relay) Chat(ctx context.Context, sessionID, message string) (*runner.RunResult, error) {
	if sessionID == "" {
		return nil, errors.New("session id must not be empty")
	}

	rn, err := r.getRunner()
	if err != nil {
		return &runner.RunResult{Err: err}, nil
	}

	unlock := r.lockSession(sessionID)
	defer unlock()

	sess, err := r.opts.Sessions.Get(ctx, sessionID)
	if errors.Is(err, core.ErrSessionNotFound) {
		sess, err = core.NewSession(sessionID), nil
	}

	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	history, err := sess.Restore()
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", sessionID, err)
	}

	rc := sess.RunContext(r.opts.Logger)

	starting := sess.ActiveAgent
	if _, ok := r.agents.Get(starting); !ok {
		starting = ""
	}

	res := rn.Process(ctx, message, func(o *runner.ProcessOptions) {
		o.RunContext = rc
		o.History = history
		o.StartingAgent = starting
	})

	active := res.Agent
	if active == "" {
		active = sess.ActiveAgent
	}

	var loopErr *runner.HandoffLoopError
	if errors.As(res.Err, &loopErr) {
		if rejected, ok := rc.PopTransition(); ok {
			active = rejected.From
		}
	}

	sess.Capture(rc, res.Messages, active)

	if err := r.opts.Sessions.Save(ctx, sess); err != nil {
		return res, fmt.Errorf("save session %s: %w", sessionID, err)
	}

	r.opts.Logger.Debug("relay.chat.saved", "session", sessionID, "agent", active, "messages", len(res.Messages))

	return res, nil
}

// Reset deletes the session sessionID.
func (r *Relay) Reset(ctx context.Context, sessionID string) error {
	return r.opts.Sessions.Delete(ctx, sessionID)
}

func (r *Relay) getRunner() (*runner.Runner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.runner != nil {
		return r.runner, nil
	}

	rn, err := runner.New(r.agents, r.opts.Models, func(o *runner.Options) {
		o.MaxHandoffs = r.opts.MaxHandoffs
		o.MaxModelCalls = r.opts.MaxModelCalls
		o.HandoffInput = r.opts.HandoffInput
		o.DefaultAgent = r.opts.DefaultAgent
		o.Callbacks = r.opts.Callbacks
		o.Logger = r.opts.Logger
	})
	if err != nil {
		return nil, err
	}

	r.runner = rn

	return rn, nil
}

func (r *Relay) lockSession(id string) func() {
	v, _ := r.sessionLocks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}
