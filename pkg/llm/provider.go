package llm

import (
	"context"
	"errors"
)

var ErrEmptyResponse = errors.New("llm returned no choices")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

const (
	ToolChoiceAuto = "auto"
	ToolChoiceNone = "none"
)

// Message is a chat message in a provider-agnostic format. Assistant messages
// may carry tool calls; tool messages answer one call by ID.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON object
}

// Tool declares a callable function with a JSON schema for its arguments.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the normalized answer of every provider.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
	Model     string
}

func (c *Completion) HasToolCalls() bool {
	return c != nil && len(c.ToolCalls) > 0
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	Tools       []Tool
	ToolChoice  string
}

// ApplyOptions resolves opts over the shared defaults.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{Temperature: 0.7}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithTools(tools []Tool) Option {
	return func(o *Options) {
		o.Tools = tools
	}
}

func WithToolChoice(choice string) Option {
	return func(o *Options) {
		o.ToolChoice = choice
	}
}

// ChatProvider defines the contract for any chat-completion backend.
type ChatProvider interface {
	Complete(ctx context.Context, history []Message, options ...Option) (*Completion, error)

	// Name identifies the backend ("mistral", "groq", "ollama", ...).
	Name() string

	// SupportsTools reports whether the backend honours tool declarations.
	SupportsTools() bool
}

// Generate sends a single user prompt and returns the text answer.
func Generate(ctx context.Context, p ChatProvider, prompt string, options ...Option) (string, error) {
	c, err := p.Complete(ctx, []Message{{Role: RoleUser, Content: prompt}}, options...)
	if err != nil {
		return "", err
	}
	return c.Text, nil
}
