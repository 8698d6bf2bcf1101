package agent

import (
	"fmt"
	"sync"

	"github.com/hupe1980/agentrelay/core"
)

// Registry holds agents keyed by name in registration order. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
	order  []string
}

// NewRegistry returns a registry holding agents. It panics on duplicate
// names; use Register to handle the error.
func NewRegistry(agents ...*Agent) *Registry {
	r := &Registry{agents: make(map[string]*Agent, len(agents))}

	for _, a := range agents {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}

	return r
}

// Register adds an agent. Names must be unique.
func (r *Registry) Register(a *Agent) error {
	if a == nil {
		return fmt.Errorf("%w: nil agent", core.ErrInvalidAgent)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[a.Name()]; exists {
		return fmt.Errorf("%w: agent %q already registered", core.ErrInvalidAgent, a.Name())
	}

	r.agents[a.Name()] = a
	r.order = append(r.order, a.Name())

	return nil
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]

	return a, ok
}

// Names returns agent names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)

	return out
}

// First returns the first registered agent.
func (r *Registry) First() (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return nil, false
	}

	return r.agents[r.order[0]], true
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// Validate checks that every handoff target is registered. Cycles are
// allowed; the runner bounds them at run time.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		for _, target := range r.agents[name].Handoffs() {
			if _, ok := r.agents[target]; !ok {
				return fmt.Errorf("%w: agent %s hands off to %q", core.ErrUnknownAgent, name, target)
			}
		}
	}

	return nil
}
