// Package tools declares the functions the LLM may call during a turn and
// dispatches its calls. Handlers never mutate the session: they describe the
// side effects they want in an Outcome, which the caller applies.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"smartshop-be/internal/pkg/logger"
	"smartshop-be/pkg/agent/state"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/commerce"
	"smartshop-be/pkg/llm"
)

const module = "TOOLS"

// Context is the session snapshot handed to every handler of a turn.
type Context struct {
	CurrentProduct *catalog.Product
	Pending        *state.PendingChoice
	Suggestions    []string
}

// Resolution reports what handle_pending_choice did with the choice.
type Resolution struct {
	Token    string       `json:"token"`
	Action   state.Action `json:"action,omitempty"`
	Resolved bool         `json:"resolved"`
}

// Outcome is the result of one tool call. Payload (or Error) is what the LLM
// sees; the other fields are side effects for the caller.
type Outcome struct {
	Name    string
	CallID  string
	Payload any
	Error   string

	// Product becomes the session's current product.
	Product *catalog.Product
	// ImageFound marks Product as the answer to an image request.
	ImageFound bool
	Cart       *commerce.CartResult
	Contact    string
	Resolution *Resolution
	// Message is shown to the customer as is when the turn skips synthesis.
	Message string
}

func (o Outcome) Failed() bool { return o.Error != "" }

// CartAdded reports whether the call put a product in the cart.
func (o Outcome) CartAdded() bool { return o.Cart != nil && o.Cart.Success }

// Content serializes the outcome as the tool message content.
func (o Outcome) Content() string {
	var v any = o.Payload
	if o.Failed() {
		v = map[string]string{"error": o.Error}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(raw)
}

func failure(format string, args ...any) Outcome {
	return Outcome{Error: fmt.Sprintf(format, args...)}
}

type Handler func(ctx context.Context, args map[string]any, tc Context) Outcome

type Spec struct {
	Name        string
	Description string
	Parameters  map[string]any
	Required    []string
	Handler     Handler
}

func (s Spec) Tool() llm.Tool {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	for k, v := range s.Parameters {
		params[k] = v
	}
	if len(s.Required) > 0 {
		params["required"] = s.Required
	}
	return llm.Tool{Name: s.Name, Description: s.Description, Parameters: params}
}

type Registry struct {
	specs  map[string]Spec
	order  []string
	logger logger.ILogger
}

func NewRegistry(log logger.ILogger) *Registry {
	return &Registry{specs: make(map[string]Spec), logger: log}
}

// Register adds or replaces a tool.
func (r *Registry) Register(s Spec) {
	if _, exists := r.specs[s.Name]; !exists {
		r.order = append(r.order, s.Name)
	}
	r.specs[s.Name] = s
}

// Tools returns the declarations sent to the LLM, in registration order.
func (r *Registry) Tools() []llm.Tool {
	out := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name].Tool())
	}
	return out
}

func (r *Registry) Has(name string) bool {
	_, ok := r.specs[name]
	return ok
}

// ParseArguments decodes a tool call's JSON arguments. Malformed or non-object
// input yields an empty map and false.
func ParseArguments(raw string) (map[string]any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, true
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}, false
	}
	return args, true
}

// Dispatch runs one call. Unknown tools and missing required fields come back
// as an Outcome carrying Error; Dispatch never panics on LLM input.
func (r *Registry) Dispatch(ctx context.Context, call llm.ToolCall, tc Context) Outcome {
	out := r.dispatch(ctx, call, tc)
	out.Name, out.CallID = call.Name, call.ID
	if out.Failed() {
		r.logger.Warn(module, "Tool call failed", map[string]interface{}{"tool": call.Name, "error": out.Error})
	}
	return out
}

func (r *Registry) dispatch(ctx context.Context, call llm.ToolCall, tc Context) Outcome {
	spec, ok := r.specs[call.Name]
	if !ok {
		return failure("unknown tool: %s", call.Name)
	}

	args, ok := ParseArguments(call.Arguments)
	if !ok {
		r.logger.Warn(module, "Malformed tool arguments, using empty arguments", map[string]interface{}{
			"tool":      call.Name,
			"arguments": call.Arguments,
		})
	}
	for _, field := range spec.Required {
		if StringArg(args, field) == "" {
			return failure("missing required field: %s", field)
		}
	}
	return spec.Handler(ctx, args, tc)
}

// StringArg returns args[key] as a trimmed string. Numbers are formatted so
// that {"choice": 1} reads as "1".
func StringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return ""
	}
}
