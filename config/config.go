// Package config loads agent graphs, providers and runner settings from YAML.
//
// A minimal file:
//
//	runner:
//	  max_handoffs: 5
//	  handoff_input: none
//	providers:
//	  - name: default
//	    kind: openai
//	    model: gpt-4o-mini
//	agents:
//	  - name: Triage
//	    instruction: Route the customer to the right team.
//	    handoffs:
//	      - target: Billing
//	  - name: Billing
//	    tools: [lookup_invoice]
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentrelay/runner"
)

// Provider kinds understood by Build.
const (
	KindOpenAI    = "openai"
	KindAnthropic = "anthropic"
	KindGemini    = "gemini"
	KindMock      = "mock"
)

var kinds = map[string]bool{
	KindOpenAI:    true,
	KindAnthropic: true,
	KindGemini:    true,
	KindMock:      true,
}

// File is the root of a configuration file.
type File struct {
	Runner    Runner     `yaml:"runner"`
	Providers []Provider `yaml:"providers"`
	Agents    []Agent    `yaml:"agents"`
}

// Runner holds runner.Options overrides. Nil fields keep the defaults.
type Runner struct {
	MaxHandoffs   *int   `yaml:"max_handoffs"`
	MaxModelCalls *int   `yaml:"max_model_calls"`
	HandoffInput  string `yaml:"handoff_input"`
	DefaultAgent  string `yaml:"default_agent"`
}

// Provider declares one model.Registry entry.
type Provider struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	// Model is the default model id of the provider.
	Model string `yaml:"model"`
	// APIKey is used verbatim. APIKeyEnv names a variable to read it from.
	APIKey      string   `yaml:"api_key"`
	APIKeyEnv   string   `yaml:"api_key_env"`
	BaseURL     string   `yaml:"base_url"`
	MaxTokens   int64    `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
	// Reply is the canned answer of the mock provider.
	Reply string `yaml:"reply"`
}

// Agent declares one agent.
type Agent struct {
	Name          string    `yaml:"name"`
	DisplayName   string    `yaml:"display_name"`
	Description   string    `yaml:"description"`
	Instruction   string    `yaml:"instruction"`
	Provider      string    `yaml:"provider"`
	Model         string    `yaml:"model"`
	Tools         []string  `yaml:"tools"`
	Handoffs      []Handoff `yaml:"handoffs"`
	MaxToolRounds int       `yaml:"max_tool_rounds"`
}

// Handoff declares a transfer target of an agent.
type Handoff struct {
	Target      string `yaml:"target"`
	Description string `yaml:"description"`
}

// Load reads and parses the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return f, nil
}

// Parse decodes YAML strictly. Unknown keys are errors. The result is
// validated.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return &f, nil
}

// Validate checks names, references and provider kinds. All problems are
// reported at once.
func (f *File) Validate() error {
	var errs []error

	providers := make(map[string]bool, len(f.Providers))
	for i, p := range f.Providers {
		switch {
		case p.Name == "":
			errs = append(errs, fmt.Errorf("providers[%d]: name is required", i))
		case providers[p.Name]:
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate provider %q", i, p.Name))
		}

		providers[p.Name] = true

		if !kinds[p.Kind] {
			errs = append(errs, fmt.Errorf("providers[%d]: unknown kind %q", i, p.Kind))
		}
	}

	if len(f.Agents) == 0 {
		errs = append(errs, errors.New("at least one agent is required"))
	}

	agents := make(map[string]bool, len(f.Agents))
	for i, a := range f.Agents {
		switch {
		case a.Name == "":
			errs = append(errs, fmt.Errorf("agents[%d]: name is required", i))
		case agents[a.Name]:
			errs = append(errs, fmt.Errorf("agents[%d]: duplicate agent %q", i, a.Name))
		}

		agents[a.Name] = true

		if a.Provider != "" && !providers[a.Provider] {
			errs = append(errs, fmt.Errorf("agent %s: unknown provider %q", a.Name, a.Provider))
		}

		if a.MaxToolRounds < 0 {
			errs = append(errs, fmt.Errorf("agent %s: max_tool_rounds must not be negative", a.Name))
		}
	}

	for _, a := range f.Agents {
		for _, h := range a.Handoffs {
			if !agents[h.Target] {
				errs = append(errs, fmt.Errorf("agent %s: unknown handoff target %q", a.Name, h.Target))
			}
		}
	}

	if f.Runner.DefaultAgent != "" && !agents[f.Runner.DefaultAgent] {
		errs = append(errs, fmt.Errorf("runner: unknown default agent %q", f.Runner.DefaultAgent))
	}

	if f.Runner.MaxHandoffs != nil && *f.Runner.MaxHandoffs < 0 {
		errs = append(errs, errors.New("runner: max_handoffs must not be negative"))
	}

	if f.Runner.MaxModelCalls != nil && *f.Runner.MaxModelCalls < 0 {
		errs = append(errs, errors.New("runner: max_model_calls must not be negative"))
	}

	if _, err := runner.ParseHandoffInput(f.Runner.HandoffInput); err != nil {
		errs = append(errs, fmt.Errorf("runner: %w", err))
	}

	return errors.Join(errs...)
}
