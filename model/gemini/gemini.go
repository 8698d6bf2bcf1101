// Package gemini provides a model.Model backed by the Google Gen AI SDK
// (Gemini API or Vertex AI).
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/model"
)

// EnvGoogleAPIKey is consulted when Options.APIKey is empty.
const EnvGoogleAPIKey = "GOOGLE_API_KEY"

// Options configures the Gemini adapter.
type Options struct {
	Model           string
	APIKey          string
	Temperature     float32
	MaxOutputTokens int32
	// HTTPOptions overrides the transport, e.g. the base URL in tests.
	HTTPOptions genai.HTTPOptions
}

// Model wraps genai.Client behind model.Model.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a Gemini model.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:           "gemini-2.0-flash",
		Temperature:     0.7,
		MaxOutputTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.APIKey == "" {
		opts.APIKey = os.Getenv(EnvGoogleAPIKey)
	}

	if opts.APIKey == "" {
		return nil, fmt.Errorf("either Options.APIKey or %q environment variable must be set", EnvGoogleAPIKey)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      opts.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: opts.HTTPOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Model{client: client, opts: opts}, nil
}

// Generate performs one GenerateContent call.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	modelID := m.opts.Model
	if req.Model != "" {
		modelID = req.Model
	}

	contents, err := buildContents(req.Messages)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(m.opts.Temperature),
		MaxOutputTokens: m.opts.MaxOutputTokens,
	}

	if system := systemText(req); system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(system)}}
	}

	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: buildDeclarations(req.Tools)}}
	}

	resp, err := m.client.Models.GenerateContent(ctx, modelID, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini api error: %w", err)
	}

	return convertResponse(resp)
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "gemini", SupportsTools: true}
}

func systemText(req model.Request) string {
	var parts []string

	if req.Instructions != "" {
		parts = append(parts, req.Instructions)
	}

	for _, c := range req.Messages {
		if c.Role == core.RoleSystem {
			parts = append(parts, c.Text())
		}
	}

	return strings.Join(parts, "\n\n")
}

// buildContents maps the conversation onto user/model turns. Tool results
// are sent as user turns carrying FunctionResponse parts.
func buildContents(messages []core.Content) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(messages))

	for _, c := range messages {
		var role string

		switch c.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			role = genai.RoleModel
		default:
			role = genai.RoleUser
		}

		var parts []*genai.Part

		for _, p := range c.Parts {
			switch part := p.(type) {
			case core.TextPart:
				if part.Text != "" {
					parts = append(parts, genai.NewPartFromText(part.Text))
				}
			case core.FunctionCallPart:
				args := map[string]any{}
				if part.FunctionCall.Arguments != "" {
					if err := json.Unmarshal([]byte(part.FunctionCall.Arguments), &args); err != nil {
						return nil, fmt.Errorf("function call %s: invalid arguments: %w", part.FunctionCall.ID, err)
					}
				}

				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: args,
				}})
			case core.FunctionResponsePart:
				fr := part.FunctionResponse

				response := map[string]any{"output": fr.Response}
				if fr.Error != "" {
					response = map[string]any{"error": fr.Error}
				}

				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       fr.ID,
					Name:     fr.Name,
					Response: response,
				}})
			}
		}

		if len(parts) > 0 {
			contents = append(contents, &genai.Content{Role: role, Parts: parts})
		}
	}

	return contents, nil
}

func buildDeclarations(tools []model.ToolDefinition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))

	for _, t := range tools {
		decl := &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
		}

		if t.Function.Parameters != nil {
			decl.Parameters = convertSchema(t.Function.Parameters)
		}

		decls = append(decls, decl)
	}

	return decls
}

// convertSchema maps a JSON schema map onto genai.Schema. Unknown keywords
// are dropped.
func convertSchema(s map[string]any) *genai.Schema {
	schema := &genai.Schema{}

	if typ, ok := s["type"].(string); ok {
		schema.Type = genai.Type(strings.ToUpper(typ))
	}

	if desc, ok := s["description"].(string); ok {
		schema.Description = desc
	}

	if props, ok := s["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if ps, ok := raw.(map[string]any); ok {
				schema.Properties[name] = convertSchema(ps)
			}
		}
	}

	if items, ok := s["items"].(map[string]any); ok {
		schema.Items = convertSchema(items)
	}

	switch required := s["required"].(type) {
	case []string:
		schema.Required = required
	case []any:
		for _, r := range required {
			if name, ok := r.(string); ok {
				schema.Required = append(schema.Required, name)
			}
		}
	}

	if enum, ok := s["enum"].([]any); ok {
		for _, e := range enum {
			schema.Enum = append(schema.Enum, fmt.Sprint(e))
		}
	}

	return schema
}

func convertResponse(resp *genai.GenerateContentResponse) (*model.Response, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini api error: no candidates returned")
	}

	cand := resp.Candidates[0]

	var parts []core.Part

	for _, p := range cand.Content.Parts {
		switch {
		case p.FunctionCall != nil:
			args, err := json.Marshal(p.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("encode function call args: %w", err)
			}

			parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID:        p.FunctionCall.ID,
				Name:      p.FunctionCall.Name,
				Arguments: string(args),
			}})
		case p.Text != "":
			parts = append(parts, core.TextPart{Text: p.Text})
		}
	}

	out := &model.Response{
		ID:           resp.ResponseID,
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: strings.ToLower(string(cand.FinishReason)),
	}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = core.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	return out, nil
}
