// Package gemini implements the model on the Gemini API.
package gemini

import (
	"context"
	"log/slog"

	"github.com/jmuk/lagos/pkg/ai"
	"github.com/jmuk/lagos/pkg/session"
	"github.com/jmuk/lagos/pkg/tools"
	"google.golang.org/genai"
)

// generator is the part of genai.Models used by Model.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Model is an ai.Model on top of the Gemini generateContent API.
type Model struct {
	models    generator
	modelName string
	config    *genai.GenerateContentConfig
	logger    *slog.Logger
}

func toFunctionDeclaration(d tools.ToolDefinition) *genai.FunctionDeclaration {
	fd := &genai.FunctionDeclaration{
		Name:        d.Name(),
		Description: d.Description(),
	}
	// Gemini rejects object schemas without any property.
	if s := d.RequestSchema(); s != nil && s.Properties != nil && s.Properties.Len() > 0 {
		fd.ParametersJsonSchema = s
	}
	return fd
}

func generateConfig(opts ai.Options) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: opts.MaxOutputTokens,
	}
	if opts.Temperature > 0 {
		config.Temperature = genai.Ptr(opts.Temperature)
	}
	if opts.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(opts.SystemPrompt, genai.RoleUser)
	}
	if len(opts.Tools) > 0 {
		funcs := make([]*genai.FunctionDeclaration, 0, len(opts.Tools))
		for _, d := range opts.Tools {
			funcs = append(funcs, toFunctionDeclaration(d))
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: funcs}}
	}
	return config
}

func toContents(turns []ai.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		c := &genai.Content{Role: string(t.Role)}
		for _, part := range t.Parts {
			p := &genai.Part{}
			switch {
			case part.FunctionCall != nil:
				p.FunctionCall = &genai.FunctionCall{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				}
			case part.FunctionResponse != nil:
				p.FunctionResponse = &genai.FunctionResponse{
					ID:       part.FunctionResponse.ID,
					Name:     part.FunctionResponse.Name,
					Response: part.FunctionResponse.Response,
				}
			default:
				p.Text = part.Text
			}
			c.Parts = append(c.Parts, p)
		}
		contents = append(contents, c)
	}
	return contents
}

func fromResponse(resp *genai.GenerateContentResponse) *ai.Response {
	result := &ai.Response{}
	if resp == nil {
		return result
	}
	for _, c := range resp.Candidates {
		cand := ai.Candidate{FinishReason: string(c.FinishReason)}
		if c.Content != nil {
			for _, part := range c.Content.Parts {
				if part == nil || part.Thought {
					continue
				}
				if part.FunctionCall != nil {
					cand.Parts = append(cand.Parts, ai.Part{FunctionCall: &ai.FunctionCall{
						ID:   part.FunctionCall.ID,
						Name: part.FunctionCall.Name,
						Args: part.FunctionCall.Args,
					}})
				} else if part.Text != "" {
					cand.Parts = append(cand.Parts, ai.Part{Text: part.Text})
				}
			}
		}
		result.Candidates = append(result.Candidates, cand)
	}
	return result
}

// GenerateContent implements ai.Model.
func (m *Model) GenerateContent(ctx context.Context, turns []ai.Turn) (*ai.Response, error) {
	contents := toContents(turns)
	m.logger.Debug("Sending", "model", m.modelName, "contents", len(contents))
	resp, err := m.models.GenerateContent(ctx, m.modelName, contents, m.config)
	if err != nil {
		m.logger.Error("Failed to generate content", "error", err)
		return nil, err
	}
	if resp == nil {
		m.logger.Warn("Received no response")
		return &ai.Response{}, nil
	}
	m.logger.Debug("Received", "candidates", len(resp.Candidates), "usage", resp.UsageMetadata)
	return fromResponse(resp), nil
}

func New(
	ctx context.Context,
	modelName string,
	clientConfig *genai.ClientConfig,
	opts ai.Options,
) (*Model, error) {
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, err
	}
	return newModel(ctx, client.Models, modelName, opts)
}

func newModel(ctx context.Context, models generator, modelName string, opts ai.Options) (*Model, error) {
	logger, err := session.LoggerFromContext(ctx, "ai")
	if err != nil {
		return nil, err
	}
	config := generateConfig(opts)
	logger.Debug("Tool definitions", "tools", config.Tools)
	return &Model{
		models:    models,
		modelName: modelName,
		config:    config,
		logger:    logger.With("backend", "gemini"),
	}, nil
}
