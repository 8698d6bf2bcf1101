package config

import (
	"context"
	"fmt"
	"os"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentrelay/agent"
	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
	"github.com/hupe1980/agentrelay/model/anthropic"
	"github.com/hupe1980/agentrelay/model/gemini"
	"github.com/hupe1980/agentrelay/model/openai"
	"github.com/hupe1980/agentrelay/runner"
	"github.com/hupe1980/agentrelay/tool"
)

// Built is the result of Build.
type Built struct {
	// Agents in file order.
	Agents []*agent.Agent
	Models *model.Registry
	// RunnerOptions applies the runner section to runner.Options.
	RunnerOptions func(o *runner.Options)
}

// BuildOptions configures Build.
type BuildOptions struct {
	// Getenv resolves api_key_env. Defaults to os.Getenv.
	Getenv func(key string) string
}

// Build creates the agents and the model registry. tools resolves the tool
// names agents refer to.
func (f *File) Build(ctx context.Context, tools map[string]tool.Tool, optFns ...func(o *BuildOptions)) (*Built, error) {
	opts := BuildOptions{Getenv: os.Getenv}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}

	models := model.NewRegistry()
	for _, p := range f.Providers {
		factory, err := providerFactory(ctx, p, opts.Getenv)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", p.Name, err)
		}

		if err := models.Register(p.Name, factory); err != nil {
			return nil, err
		}
	}

	agents := make([]*agent.Agent, 0, len(f.Agents))
	for _, spec := range f.Agents {
		a, err := buildAgent(spec, tools)
		if err != nil {
			return nil, err
		}

		agents = append(agents, a)
	}

	handoffInput, err := runner.ParseHandoffInput(f.Runner.HandoffInput)
	if err != nil {
		return nil, err
	}

	rc := f.Runner

	return &Built{
		Agents: agents,
		Models: models,
		RunnerOptions: func(o *runner.Options) {
			if rc.MaxHandoffs != nil {
				o.MaxHandoffs = *rc.MaxHandoffs
			}

			if rc.MaxModelCalls != nil {
				o.MaxModelCalls = *rc.MaxModelCalls
			}

			if rc.HandoffInput != "" {
				o.HandoffInput = handoffInput
			}

			if rc.DefaultAgent != "" {
				o.DefaultAgent = rc.DefaultAgent
			}
		},
	}, nil
}

func buildAgent(spec Agent, tools map[string]tool.Tool) (*agent.Agent, error) {
	agentTools := make([]tool.Tool, 0, len(spec.Tools))
	for _, name := range spec.Tools {
		t, ok := tools[name]
		if !ok {
			return nil, fmt.Errorf("%w: agent %s: tool %q is not available", core.ErrInvalidAgent, spec.Name, name)
		}

		agentTools = append(agentTools, t)
	}

	handoffs := make([]agent.Handoff, 0, len(spec.Handoffs))
	for _, h := range spec.Handoffs {
		handoffs = append(handoffs, agent.Handoff{Target: h.Target, Description: h.Description})
	}

	return agent.New(spec.Name, func(o *agent.Options) {
		if spec.DisplayName != "" {
			o.DisplayName = spec.DisplayName
		}

		if spec.Instruction != "" {
			o.Instruction = agent.NewInstructionFromText(spec.Instruction)
		}

		if spec.MaxToolRounds > 0 {
			o.MaxToolRounds = spec.MaxToolRounds
		}

		o.Description = spec.Description
		o.Provider = spec.Provider
		o.Model = spec.Model
		o.Tools = agentTools
		o.Handoffs = handoffs
	})
}

func providerFactory(ctx context.Context, p Provider, getenv func(string) string) (model.Factory, error) {
	apiKey := p.APIKey
	if apiKey == "" && p.APIKeyEnv != "" {
		apiKey = getenv(p.APIKeyEnv)
	}

	pick := func(modelID string) string {
		if modelID != "" {
			return modelID
		}

		return p.Model
	}

	switch p.Kind {
	case KindOpenAI:
		return func(modelID string) (model.Model, error) {
			return openai.NewModel(func(o *openai.Options) {
				if id := pick(modelID); id != "" {
					o.Model = id
				}

				if p.Temperature != nil {
					o.Temperature = *p.Temperature
				}

				if p.MaxTokens > 0 {
					o.MaxCompletionTokens = p.MaxTokens
				}

				o.APIKey = apiKey
				o.BaseURL = p.BaseURL
			}), nil
		}, nil
	case KindAnthropic:
		return func(modelID string) (model.Model, error) {
			return anthropic.NewModel(func(o *anthropic.Options) {
				if id := pick(modelID); id != "" {
					o.Model = anthropicsdk.Model(id)
				}

				if p.Temperature != nil {
					o.Temperature = *p.Temperature
				}

				if p.MaxTokens > 0 {
					o.MaxTokens = p.MaxTokens
				}

				o.APIKey = apiKey
				o.BaseURL = p.BaseURL
			}), nil
		}, nil
	case KindGemini:
		return func(modelID string) (model.Model, error) {
			return gemini.NewModel(ctx, func(o *gemini.Options) {
				if id := pick(modelID); id != "" {
					o.Model = id
				}

				if p.Temperature != nil {
					o.Temperature = float32(*p.Temperature)
				}

				if p.MaxTokens > 0 {
					o.MaxOutputTokens = int32(p.MaxTokens)
				}

				o.APIKey = apiKey
				o.HTTPOptions.BaseURL = p.BaseURL
			})
		}, nil
	case KindMock:
		reply := p.Reply
		if reply == "" {
			reply = "OK"
		}

		return func(modelID string) (model.Model, error) {
			m := model.NewMockModel(pick(modelID))
			m.Handler = func(context.Context, model.Request) (*model.Response, error) {
				resp := model.TextResponse(reply).Response
				return resp, nil
			}

			return m, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", p.Kind)
	}
}
