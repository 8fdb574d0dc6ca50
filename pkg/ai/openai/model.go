// Package openai implements the model on OpenAI compatible chat completion APIs.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmuk/lagos/pkg/ai"
	"github.com/jmuk/lagos/pkg/session"
	"github.com/jmuk/lagos/pkg/tools"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"
)

type completer interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type Model struct {
	client    completer
	modelName string
	opts      ai.Options
	tools     []openai.ChatCompletionToolUnionParam
	logger    *slog.Logger
}

func convertToolDef(d tools.ToolDefinition) (openai.ChatCompletionToolUnionParam, error) {
	encoded, err := json.Marshal(d.RequestSchema())
	if err != nil {
		return openai.ChatCompletionToolUnionParam{}, err
	}
	parameters := map[string]any{}
	if err := json.Unmarshal(encoded, &parameters); err != nil {
		return openai.ChatCompletionToolUnionParam{}, err
	}
	return openai.ChatCompletionToolUnionParam{
		OfFunction: &openai.ChatCompletionFunctionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        d.Name(),
				Description: param.NewOpt(d.Description()),
				Parameters:  parameters,
			},
			Type: "function",
		},
	}, nil
}

func toMessages(systemPrompt string, turns []ai.Turn) ([]openai.ChatCompletionMessageParamUnion, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	for _, t := range turns {
		switch t.Role {
		case ai.RoleModel:
			assistant := &openai.ChatCompletionAssistantMessageParam{}
			if text := t.Text(); text != "" {
				assistant.Content.OfString = param.NewOpt(text)
			}
			for _, p := range t.Parts {
				fc := p.FunctionCall
				if fc == nil {
					continue
				}
				args, err := json.Marshal(fc.Args)
				if err != nil {
					return nil, fmt.Errorf("arguments of %s: %w", fc.Name, err)
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: fc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Arguments: string(args),
							Name:      fc.Name,
						},
						Type: "function",
					},
				})
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		default:
			for _, p := range t.Parts {
				if fr := p.FunctionResponse; fr != nil {
					enc, err := json.Marshal(fr.Response)
					if err != nil {
						return nil, fmt.Errorf("response of %s: %w", fr.Name, err)
					}
					messages = append(messages, openai.ToolMessage(string(enc), fr.ID))
				} else if p.Text != "" {
					messages = append(messages, openai.UserMessage(p.Text))
				}
			}
		}
	}
	return messages, nil
}

func fromCompletion(c *openai.ChatCompletion) (*ai.Response, error) {
	resp := &ai.Response{}
	if c == nil {
		return resp, nil
	}
	for _, choice := range c.Choices {
		cand := ai.Candidate{FinishReason: choice.FinishReason}
		if choice.Message.Content != "" {
			cand.Parts = append(cand.Parts, ai.Part{Text: choice.Message.Content})
		}
		for _, tc := range choice.Message.ToolCalls {
			args := map[string]any{}
			if tc.Function.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					return nil, fmt.Errorf("malformed arguments for %s: %w", tc.Function.Name, err)
				}
			}
			id := tc.ID
			if id == "" {
				id = uuid.NewString()
			}
			cand.Parts = append(cand.Parts, ai.Part{FunctionCall: &ai.FunctionCall{
				ID:   id,
				Name: tc.Function.Name,
				Args: args,
			}})
		}
		resp.Candidates = append(resp.Candidates, cand)
	}
	return resp, nil
}

// GenerateContent implements ai.Model.
func (m *Model) GenerateContent(ctx context.Context, turns []ai.Turn) (*ai.Response, error) {
	messages, err := toMessages(m.opts.SystemPrompt, turns)
	if err != nil {
		return nil, err
	}
	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    m.modelName,
		Tools:    m.tools,
	}
	if m.opts.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(m.opts.MaxOutputTokens))
	}
	if m.opts.Temperature > 0 {
		params.Temperature = openai.Float(float64(m.opts.Temperature))
	}
	m.logger.Debug("sending", "model", m.modelName, "messages", len(messages))
	completion, err := m.client.New(ctx, params)
	if err != nil {
		m.logger.Error("Failed to create completion", "error", err)
		return nil, err
	}
	m.logger.Debug("received", "choices", len(completion.Choices), "usage", completion.Usage)
	return fromCompletion(completion)
}

func newModel(ctx context.Context, client completer, modelName string, opts ai.Options) (*Model, error) {
	logger, err := session.LoggerFromContext(ctx, "ai")
	if err != nil {
		return nil, err
	}
	var toolParams []openai.ChatCompletionToolUnionParam
	for _, tdef := range opts.Tools {
		toolParam, err := convertToolDef(tdef)
		if err != nil {
			return nil, err
		}
		toolParams = append(toolParams, toolParam)
	}
	return &Model{
		client:    client,
		modelName: modelName,
		opts:      opts,
		tools:     toolParams,
		logger:    logger.With("backend", "openai"),
	}, nil
}
