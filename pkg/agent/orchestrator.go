// Package agent runs one conversational turn: pending choices, the
// ambiguity guard, the LLM tool loop and the follow-up heuristics.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"smartshop-be/internal/constant"
	"smartshop-be/internal/pkg/logger"
	"smartshop-be/pkg/agent/intent"
	"smartshop-be/pkg/agent/state"
	"smartshop-be/pkg/agent/suggest"
	"smartshop-be/pkg/agent/tools"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/commerce"
	"smartshop-be/pkg/llm"
	"smartshop-be/pkg/store"

	"golang.org/x/sync/errgroup"
)

const module = "AGENT"

type Config struct {
	Temperature float64
	LLMTimeout  time.Duration
	ToolTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{Temperature: 0.3, LLMTimeout: 30 * time.Second, ToolTimeout: 15 * time.Second}
}

type Orchestrator struct {
	mu       sync.RWMutex
	llm      llm.ChatProvider
	router   *intent.Router
	registry *tools.Registry
	toolkit  *tools.Toolkit
	logger   logger.ILogger
	cfg      Config
	usage    UsageRecorder
	observer Observer
	now      func() time.Time
}

type Option func(*Orchestrator)

func WithUsageRecorder(r UsageRecorder) Option {
	return func(o *Orchestrator) { o.usage = r }
}

func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

func New(
	provider llm.ChatProvider,
	router *intent.Router,
	toolkit *tools.Toolkit,
	log logger.ILogger,
	cfg Config,
	opts ...Option,
) *Orchestrator {
	def := DefaultConfig()
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = def.LLMTimeout
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = def.ToolTimeout
	}
	o := &Orchestrator{
		llm:      provider,
		router:   router,
		registry: tools.NewDefault(toolkit, log),
		toolkit:  toolkit,
		logger:   log,
		cfg:      cfg,
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SetProvider swaps the chat backend. Turns already running finish on the
// provider they started with.
func (o *Orchestrator) SetProvider(p llm.ChatProvider) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.llm = p
}

func (o *Orchestrator) Provider() llm.ChatProvider {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.llm
}

// HandleTurn answers one user message. The caller must hold the session
// lock. It never fails: provider errors become an apology text.
func (o *Orchestrator) HandleTurn(ctx context.Context, sess *store.Session, input string) *TurnResponse {
	start := o.now()
	resp := o.turn(ctx, o.Provider(), sess, strings.TrimSpace(input))
	resp.PendingChoice = sess.State.Pending()
	sess.LastActiveAt = o.now()
	o.observer.ObserveTurn(resp.Type, time.Since(start))
	return resp
}

func (o *Orchestrator) turn(ctx context.Context, p llm.ChatProvider, sess *store.Session, input string) *TurnResponse {
	sel := suggest.ParseSelector(input)

	if sess.State.Awaiting() {
		switch sel.Kind {
		case suggest.SelectorNumber, suggest.SelectorKeyword:
			if action, ok := sess.State.Resolve(sel.Token); ok {
				return o.resolveChoice(ctx, sess, input, action)
			}
			return o.reprompt(sess, input)
		case suggest.SelectorAffirmation:
			return o.reprompt(sess, input)
		default:
			if in, ok := o.router.Lexical(input); ok && in != intent.Chat {
				o.logger.Debug(module, "New topic, dropping pending choice", map[string]interface{}{"session_id": sess.ID, "intent": in})
				sess.State.Clear()
			}
		}
	}

	if sel.Kind == suggest.SelectorAffirmation && len(sess.Suggestions) >= 2 {
		msg := suggest.Clarification(sess.Suggestions)
		sess.Memory.Append(store.RoleUser, input)
		sess.Memory.Append(store.RoleAssistant, msg)
		return &TurnResponse{Type: ResponseText, Message: msg, Suggestions: sess.Suggestions}
	}

	if sel.Kind == suggest.SelectorNumber && !sess.State.Awaiting() {
		if n := sel.Number(); n >= 1 && n <= len(sess.Suggestions) {
			input = sess.Suggestions[n-1]
			sess.Suggestions = nil
		}
	}

	sess.Memory.Append(store.RoleUser, input)

	if in, ok := o.router.Lexical(input); ok && in == intent.RequestContact {
		out := o.registry.Dispatch(ctx, llm.ToolCall{Name: tools.RequestContact}, o.toolContext(sess))
		sess.Suggestions = nil
		return o.finish(sess, &TurnResponse{Type: ResponseContactAgent, Message: out.Contact})
	}

	if !p.SupportsTools() {
		return o.untooledTurn(ctx, p, sess, input)
	}
	return o.toolTurn(ctx, p, sess)
}

// resolveChoice carries out a pending choice without consulting the LLM.
func (o *Orchestrator) resolveChoice(ctx context.Context, sess *store.Session, input string, action state.Action) *TurnResponse {
	sess.Memory.Append(store.RoleUser, input)
	out := o.toolkit.ResolveAction(ctx, action, sess.CurrentProduct)
	o.logger.Info(module, "Pending choice resolved", map[string]interface{}{
		"session_id": sess.ID, "action": action, "failed": out.Failed(),
	})

	if out.Failed() {
		return o.finish(sess, &TurnResponse{Type: ResponseText, Message: constant.ProductNotFoundMessage})
	}
	if fx := o.apply(sess, []tools.Outcome{out}); len(fx.cart) > 0 {
		return o.cartResponse(sess, fx.cart)
	}
	sess.Suggestions = suggest.Extract(out.Message)
	return o.finish(sess, &TurnResponse{Type: ResponseText, Message: out.Message, Suggestions: sess.Suggestions})
}

func (o *Orchestrator) reprompt(sess *store.Session, input string) *TurnResponse {
	msg := suggest.ProductChoicePrompt()
	sess.Memory.Append(store.RoleUser, input)
	return o.finish(sess, &TurnResponse{Type: ResponseText, Message: msg})
}

func (o *Orchestrator) toolTurn(ctx context.Context, p llm.ChatProvider, sess *store.Session) *TurnResponse {
	messages := o.compose(sess, sess.State.Awaiting())

	first, err := o.complete(ctx, p, sess, "tool_selection", messages,
		llm.WithTools(o.registry.Tools()),
		llm.WithToolChoice(llm.ToolChoiceAuto),
	)
	if err != nil {
		return o.apology(sess)
	}
	if !first.HasToolCalls() {
		return o.answer(sess, first.Text, effects{})
	}

	calls := withCallIDs(first.ToolCalls)
	outcomes := o.dispatchAll(ctx, calls, o.toolContext(sess))
	fx := o.apply(sess, outcomes)
	if len(fx.cart) > 0 {
		return o.cartResponse(sess, fx.cart)
	}
	// An unmatched reply to a pending choice gets the same two options back.
	if prompt, ok := unresolvedChoice(outcomes); ok && sess.State.Awaiting() {
		sess.Suggestions = nil
		return o.finish(sess, &TurnResponse{Type: ResponseText, Message: prompt})
	}

	messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: first.Text, ToolCalls: calls})
	for _, out := range outcomes {
		messages = append(messages, llm.Message{Role: llm.RoleTool, Content: out.Content(), ToolCallID: out.CallID, Name: out.Name})
	}
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: constant.SuggestionPrompt})

	second, err := o.complete(ctx, p, sess, "synthesis", messages)
	if err != nil {
		return o.apology(sess)
	}
	return o.answer(sess, second.Text, fx)
}

func unresolvedChoice(outcomes []tools.Outcome) (string, bool) {
	for _, out := range outcomes {
		if out.Resolution != nil && !out.Resolution.Resolved && out.Message != "" {
			return out.Message, true
		}
	}
	return "", false
}

// untooledTurn serves providers without tool calling: the router picks the
// single tool to run, then one call writes the answer.
func (o *Orchestrator) untooledTurn(ctx context.Context, p llm.ChatProvider, sess *store.Session, input string) *TurnResponse {
	d := o.router.Route(ctx, input)
	if d.Usage != nil {
		o.recordUsage(ctx, sess, d.Provider, "intent", d.Model, *d.Usage)
	}

	messages := o.compose(sess, false)
	var fx effects
	tc := o.toolContext(sess)
	switch d.Intent {
	case intent.ProductSearch:
		out := o.registry.Dispatch(ctx, llm.ToolCall{Name: tools.SearchProducts, Arguments: jsonArgs("query", input)}, tc)
		fx = o.apply(sess, []tools.Outcome{out})
		messages = insertContext(messages, fmt.Sprintf(constant.ProductContextTemplate, resultsText(out)))
	case intent.ProductImage:
		out := o.registry.Dispatch(ctx, llm.ToolCall{Name: tools.SearchProductImage, Arguments: jsonArgs("query", input)}, tc)
		fx = o.apply(sess, []tools.Outcome{out})
		if fx.image != nil {
			messages = insertContext(messages, fmt.Sprintf(constant.ImageContextTemplate, fx.image.Name))
		} else {
			messages = insertContext(messages, constant.NoImageContext)
		}
	}

	c, err := o.complete(ctx, p, sess, "synthesis", messages)
	if err != nil {
		return o.apology(sess)
	}
	return o.answer(sess, c.Text, fx)
}

// effects are the session changes collected from a batch of tool calls.
type effects struct {
	image   *catalog.Product
	cart    []tools.Outcome
	contact string
}

// apply writes the side effects of outcomes to the session in call order.
func (o *Orchestrator) apply(sess *store.Session, outcomes []tools.Outcome) effects {
	var fx effects
	for _, out := range outcomes {
		if out.Failed() {
			continue
		}
		if out.Product != nil {
			sess.CurrentProduct = out.Product
		}
		if out.ImageFound {
			fx.image = out.Product
		}
		if out.Resolution != nil && out.Resolution.Resolved {
			sess.State.Resolve(out.Resolution.Token)
		}
		if out.CartAdded() {
			sess.AddToCart(commerce.NewCartItem(out.Cart.Product, o.now()))
			fx.cart = append(fx.cart, out)
		}
		if out.Contact != "" {
			fx.contact = out.Contact
		}
	}
	return fx
}

func (o *Orchestrator) dispatchAll(ctx context.Context, calls []llm.ToolCall, tc tools.Context) []tools.Outcome {
	outcomes := make([]tools.Outcome, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, o.cfg.ToolTimeout)
			defer cancel()
			outcomes[i] = o.registry.Dispatch(cctx, call, tc)
			o.observer.ObserveTool(call.Name, outcomes[i].Failed())
			return nil
		})
	}
	_ = g.Wait()

	o.logger.Debug(module, "Tool calls dispatched", map[string]interface{}{"count": len(calls)})
	return outcomes
}

func (o *Orchestrator) cartResponse(sess *store.Session, added []tools.Outcome) *TurnResponse {
	delta := &CartDelta{}
	var lines []string
	var product *catalog.Product
	for _, out := range added {
		product = out.Cart.Product
		delta.Added = append(delta.Added, commerce.NewCartItem(out.Cart.Product, o.now()))
		lines = append(lines, out.Cart.Message)
		if out.Cart.SuggestContact {
			delta.SuggestContact = true
			delta.ContactQuestion = out.Cart.ContactQuestion
		}
	}
	delta.Message = strings.Join(lines, "\n")
	msg := delta.Message
	if delta.SuggestContact {
		msg += "\n\n" + delta.ContactQuestion
	}
	sess.Suggestions = nil
	return o.finish(sess, &TurnResponse{Type: ResponseAddToCart, Message: msg, Product: product, CartDelta: delta})
}

// answer runs the follow-up heuristics on the final text.
func (o *Orchestrator) answer(sess *store.Session, text string, fx effects) *TurnResponse {
	text = strings.TrimSpace(text)
	resp := &TurnResponse{Type: ResponseText, Message: text}

	if fx.contact != "" {
		resp.Type = ResponseContactAgent
		if !strings.Contains(text, fx.contact) {
			resp.Message = strings.TrimSpace(text + "\n\n" + fx.contact)
		}
	} else if fx.image != nil {
		resp.Type = ResponseProductImage
		resp.Product = fx.image
	}
	if resp.Message == "" {
		resp.Message = constant.EmptyAnswerMessage
	}

	sess.Suggestions = suggest.Extract(resp.Message)
	resp.Suggestions = sess.Suggestions
	if sess.CurrentProduct != nil && suggest.DetectBinaryChoice(resp.Message) {
		sess.State.SetPendingChoice(state.ChoiceProductNextStep, map[string]string{"product_id": sess.CurrentProduct.ID})
	}
	return o.finish(sess, resp)
}

func (o *Orchestrator) finish(sess *store.Session, resp *TurnResponse) *TurnResponse {
	sess.Memory.Append(store.RoleAssistant, resp.Message)
	return resp
}

// apology does not touch memory: the user turn is already recorded and the
// apology is not worth replaying to the model. Earlier suggestions no
// longer follow the last assistant message, so they are dropped.
func (o *Orchestrator) apology(sess *store.Session) *TurnResponse {
	sess.Suggestions = nil
	return &TurnResponse{Type: ResponseText, Message: constant.ApologyMessage}
}

func (o *Orchestrator) complete(ctx context.Context, p llm.ChatProvider, sess *store.Session, purpose string, messages []llm.Message, opts ...llm.Option) (*llm.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.LLMTimeout)
	defer cancel()

	start := time.Now()
	opts = append([]llm.Option{llm.WithTemperature(o.cfg.Temperature)}, opts...)
	c, err := p.Complete(ctx, messages, opts...)
	o.observer.ObserveLLM(p.Name(), time.Since(start), err)
	if err == nil && c == nil {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		o.logger.Error(module, "LLM call failed", map[string]interface{}{
			"session_id": sess.ID,
			"provider":   p.Name(),
			"purpose":    purpose,
			"error":      err.Error(),
		})
		return nil, err
	}
	o.recordUsage(ctx, sess, p.Name(), purpose, c.Model, c.Usage)
	return c, nil
}

func (o *Orchestrator) recordUsage(ctx context.Context, sess *store.Session, provider, purpose, model string, u llm.Usage) {
	if o.usage == nil {
		return
	}
	o.usage.RecordUsage(ctx, UsageRecord{
		SessionID: sess.ID,
		Provider:  provider,
		Model:     model,
		Purpose:   purpose,
		Usage:     u,
		At:        o.now(),
	})
}

func (o *Orchestrator) toolContext(sess *store.Session) tools.Context {
	tc := tools.Context{Pending: sess.State.Pending(), Suggestions: append([]string(nil), sess.Suggestions...)}
	if sess.CurrentProduct != nil {
		p := *sess.CurrentProduct
		tc.CurrentProduct = &p
	}
	return tc
}
