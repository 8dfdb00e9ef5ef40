// Package openai talks to any OpenAI-compatible chat endpoint. Mistral and
// Groq expose the same wire format and are reached through their base URL.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"smartshop-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

var defaultBaseURLs = map[string]string{
	"mistral": "https://api.mistral.ai/v1",
	"groq":    "https://api.groq.com/openai/v1",
	"openai":  "https://api.openai.com/v1",
}

type Provider struct {
	name   string
	model  string
	client *goopenai.Client
}

var _ llm.ChatProvider = &Provider{}

// NewProvider builds a client for name. An empty baseURL selects the
// vendor default.
func NewProvider(name, apiKey, baseURL, model string) (*Provider, error) {
	if baseURL == "" {
		var ok bool
		if baseURL, ok = defaultBaseURLs[name]; !ok {
			return nil, fmt.Errorf("no default base url for provider %q", name)
		}
	}
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}

	return &Provider{
		name:   name,
		model:  model,
		client: goopenai.NewClientWithConfig(cfg),
	}, nil
}

// minTemperature is sent in place of 0.
const minTemperature = 0.01

func (p *Provider) Name() string { return p.name }

func (p *Provider) SupportsTools() bool { return true }

func (p *Provider) Complete(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Completion, error) {
	options := llm.ApplyOptions(opts...)

	model := p.model
	if options.Model != "" {
		model = options.Model
	}

	// go-openai omits a zero temperature, which would fall back to the
	// vendor default.
	temperature := float32(options.Temperature)
	if temperature <= 0 {
		temperature = minTemperature
	}

	req := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    toMessages(history),
		Temperature: temperature,
		MaxTokens:   options.MaxTokens,
	}
	if len(options.Tools) > 0 {
		req.Tools = toTools(options.Tools)
		if options.ToolChoice != "" {
			req.ToolChoice = options.ToolChoice
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.ErrEmptyResponse
	}

	msg := resp.Choices[0].Message
	out := &llm.Completion{
		Text:  msg.Content,
		Model: resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if out.Model == "" {
		out.Model = model
	}
	return out, nil
}

func toMessages(history []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		msg := goopenai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, goopenai.ToolCall{
				ID:   tc.ID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func toTools(tools []llm.Tool) []goopenai.Tool {
	out := make([]goopenai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}
