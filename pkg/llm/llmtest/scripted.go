// Package llmtest provides a scripted chat provider for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"smartshop-be/pkg/llm"
)

var ErrScriptExhausted = errors.New("llmtest: no scripted response left")

type Step struct {
	Completion *llm.Completion
	Err        error
}

// Call records one request received by the provider.
type Call struct {
	Messages []llm.Message
	Options  llm.Options
}

// Scripted replays queued steps in order and records every request.
type Scripted struct {
	mu    sync.Mutex
	steps []Step
	calls []Call
	tools bool
	name  string
}

var _ llm.ChatProvider = &Scripted{}

func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: steps, tools: true, name: "scripted"}
}

// WithoutTools makes the provider report no tool support.
func (s *Scripted) WithoutTools() *Scripted {
	s.tools = false
	return s
}

func (s *Scripted) Name() string { return s.name }

func (s *Scripted) SupportsTools() bool { return s.tools }

func (s *Scripted) Complete(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]llm.Message, len(history))
	copy(msgs, history)
	s.calls = append(s.calls, Call{Messages: msgs, Options: *llm.ApplyOptions(opts...)})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.steps) == 0 {
		return nil, ErrScriptExhausted
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.Completion, step.Err
}

func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func Text(text string) Step {
	return Step{Completion: &llm.Completion{Text: text, Model: "scripted-model", Usage: llm.Usage{TotalTokens: 10}}}
}

func Tools(calls ...llm.ToolCall) Step {
	return Step{Completion: &llm.Completion{ToolCalls: calls, Model: "scripted-model", Usage: llm.Usage{TotalTokens: 10}}}
}

func Fail(err error) Step {
	return Step{Err: err}
}
