package agent

import (
	"encoding/json"
	"fmt"

	"smartshop-be/internal/constant"
	"smartshop-be/pkg/agent/tools"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/llm"
	"smartshop-be/pkg/store"
)

// compose builds the request: policy, current product, memory, the pending
// choice directive when asked, then the latest user turn.
func (o *Orchestrator) compose(sess *store.Session, awaiting bool) []llm.Message {
	msgs := []llm.Message{{Role: llm.RoleSystem, Content: constant.SystemPrompt}}
	if p := sess.CurrentProduct; p != nil {
		msgs = append(msgs, llm.Message{
			Role:    llm.RoleSystem,
			Content: fmt.Sprintf(constant.CurrentProductContext, p.Name, p.ID, catalog.FormatPrice(p.Price, p.Currency)),
		})
	}

	entries := sess.Memory.Entries()
	var last *store.Entry
	if n := len(entries); n > 0 && entries[n-1].Role == store.RoleUser {
		last = &entries[n-1]
		entries = entries[:n-1]
	}
	for _, e := range entries {
		msgs = append(msgs, llm.Message{Role: string(e.Role), Content: e.Content})
	}
	if awaiting {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: constant.PendingChoiceDirective})
	}
	if last != nil {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: last.Content})
	}
	return msgs
}

// insertContext places a system message right before the final user turn.
func insertContext(msgs []llm.Message, text string) []llm.Message {
	ctxMsg := llm.Message{Role: llm.RoleSystem, Content: text}
	if n := len(msgs); n > 0 && msgs[n-1].Role == llm.RoleUser {
		out := make([]llm.Message, 0, n+1)
		out = append(out, msgs[:n-1]...)
		return append(out, ctxMsg, msgs[n-1])
	}
	return append(msgs, ctxMsg)
}

// withCallIDs fills in ids some providers leave empty, so every tool message
// can answer its call.
func withCallIDs(calls []llm.ToolCall) []llm.ToolCall {
	out := make([]llm.ToolCall, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = fmt.Sprintf("call_%d", i)
		}
		out[i] = c
	}
	return out
}

func jsonArgs(key, value string) string {
	raw, _ := json.Marshal(map[string]string{key: value})
	return string(raw)
}

func resultsText(out tools.Outcome) string {
	if payload, ok := out.Payload.(map[string]any); ok && !out.Failed() {
		if text, ok := payload["results"].(string); ok {
			return text
		}
	}
	return catalog.RenderContext(nil)
}
