package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smartshop-be/internal/dto"
	"smartshop-be/internal/pkg/logger"
	"smartshop-be/internal/repository/memory"
	"smartshop-be/pkg/agent"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/commerce"
	"smartshop-be/pkg/events"
	"smartshop-be/pkg/llm"
	"smartshop-be/pkg/store"

	"github.com/google/uuid"
)

const (
	chatModule      = "CHAT"
	defaultCurrency = "FCFA"
)

// TurnHandler runs one conversational turn. The caller holds the session lock.
type TurnHandler interface {
	HandleTurn(ctx context.Context, sess *store.Session, input string) *agent.TurnResponse
}

type IChatService interface {
	SendMessage(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	GetCart(ctx context.Context, conversationId string) (*dto.CartResponse, error)
	AddToCart(ctx context.Context, req *dto.AddToCartRequest) (*dto.AddToCartResponse, error)
	ClearCart(ctx context.Context, conversationId string) (*dto.CartResponse, error)
	ResetConversation(ctx context.Context, conversationId string) error
	SubmitFeedback(ctx context.Context, req *dto.FeedbackRequest) (*dto.FeedbackResponse, error)
	Health(ctx context.Context) *dto.HealthResponse
}

// ChatServiceInfo names the backends reported by the health endpoint.
type ChatServiceInfo struct {
	LLMProvider string
	VectorStore string
}

type chatService struct {
	sessions  *memory.SessionRepository
	turns     TurnHandler
	catalog   catalog.Store
	publisher events.Publisher
	logger    logger.ILogger
	info      ChatServiceInfo
}

// NewChatService wires the turn API. publisher may be nil.
func NewChatService(
	sessions *memory.SessionRepository,
	turns TurnHandler,
	catalogStore catalog.Store,
	publisher events.Publisher,
	log logger.ILogger,
	info ChatServiceInfo,
) IChatService {
	return &chatService{
		sessions:  sessions,
		turns:     turns,
		catalog:   catalogStore,
		publisher: publisher,
		logger:    log,
		info:      info,
	}
}

func (s *chatService) SendMessage(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	id := strings.TrimSpace(req.ConversationId)
	if id == "" {
		id = uuid.NewString()
	}

	sess := s.sessions.LoadOrCreate(id)
	sess.Lock()
	resp := s.turns.HandleTurn(ctx, sess, message)
	sess.Unlock()

	s.publishTurnEvents(ctx, id, resp)

	return &dto.ChatResponse{ConversationId: id, TurnResponse: resp}, nil
}

func (s *chatService) publishTurnEvents(ctx context.Context, conversationId string, resp *agent.TurnResponse) {
	switch resp.Type {
	case agent.ResponseAddToCart:
		if resp.CartDelta == nil {
			return
		}
		for _, item := range resp.CartDelta.Added {
			s.publish(ctx, events.New(events.CartItemAdded, cartItemPayload(conversationId, item)))
		}
	case agent.ResponseContactAgent:
		s.publish(ctx, events.New(events.ContactRequested, map[string]interface{}{
			"conversation_id": conversationId,
		}))
	}
}

func cartItemPayload(conversationId string, item commerce.CartItem) map[string]interface{} {
	return map[string]interface{}{
		"conversation_id": conversationId,
		"product_id":      item.ProductID,
		"name":            item.Name,
		"price":           item.Price,
		"currency":        item.Currency,
		"quantity":        item.Quantity,
	}
}

// publish is best effort; a missing or failing bus never fails the request.
func (s *chatService) publish(ctx context.Context, evt events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn(chatModule, "Failed to publish event", map[string]interface{}{
			"type":  evt.EventType(),
			"error": err.Error(),
		})
	}
}

func (s *chatService) GetCart(ctx context.Context, conversationId string) (*dto.CartResponse, error) {
	sess, ok := s.sessions.Get(conversationId)
	if !ok {
		return cartResponse(conversationId, nil), nil
	}
	sess.Lock()
	items := sess.CartSnapshot()
	sess.Unlock()
	return cartResponse(conversationId, items), nil
}

func (s *chatService) AddToCart(ctx context.Context, req *dto.AddToCartRequest) (*dto.AddToCartResponse, error) {
	product, err := s.catalog.FindByID(ctx, req.ProductId)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find product %s: %w", req.ProductId, err)
	}

	result := commerce.AddProductToCart(product)
	if !result.Success {
		return nil, &Error{Status: ErrProductUnavailable.Status, Message: result.Message}
	}

	item := commerce.NewCartItem(product, time.Now())
	sess := s.sessions.LoadOrCreate(req.ConversationId)
	sess.Lock()
	sess.AddToCart(item)
	sess.CurrentProduct = product
	items := sess.CartSnapshot()
	sess.Unlock()

	s.publish(ctx, events.New(events.CartItemAdded, cartItemPayload(req.ConversationId, item)))

	return &dto.AddToCartResponse{
		CartResult: result,
		Cart:       *cartResponse(req.ConversationId, items),
	}, nil
}

func (s *chatService) ClearCart(ctx context.Context, conversationId string) (*dto.CartResponse, error) {
	sess, ok := s.sessions.Get(conversationId)
	if !ok {
		return nil, ErrConversationNotFound
	}
	sess.Lock()
	sess.ClearCart()
	sess.Unlock()
	return cartResponse(conversationId, nil), nil
}

func (s *chatService) ResetConversation(ctx context.Context, conversationId string) error {
	sess, ok := s.sessions.Get(conversationId)
	if !ok {
		return ErrConversationNotFound
	}
	sess.Lock()
	sess.Reset()
	sess.Unlock()
	s.logger.Info(chatModule, "Conversation reset", map[string]interface{}{"conversation_id": conversationId})
	return nil
}

func (s *chatService) SubmitFeedback(ctx context.Context, req *dto.FeedbackRequest) (*dto.FeedbackResponse, error) {
	res := &dto.FeedbackResponse{Id: uuid.NewString(), CreatedAt: time.Now().UTC()}
	s.publish(ctx, events.New(events.FeedbackSubmitted, map[string]interface{}{
		"feedback_id":     res.Id,
		"conversation_id": req.ConversationId,
		"rating":          req.Rating,
		"message_index":   req.MessageIndex,
		"comment":         req.Comment,
	}))
	s.logger.Info(chatModule, "Feedback received", map[string]interface{}{
		"conversation_id": req.ConversationId,
		"rating":          req.Rating,
	})
	return res, nil
}

func (s *chatService) Health(ctx context.Context) *dto.HealthResponse {
	provider := s.info.LLMProvider
	// The orchestrator reports the backend currently in use after a model switch.
	if sw, ok := s.turns.(interface{ Provider() llm.ChatProvider }); ok {
		if p := sw.Provider(); p != nil {
			provider = p.Name()
		}
	}
	return &dto.HealthResponse{
		Status:              "ok",
		ActiveConversations: s.sessions.Count(),
		LLMProvider:         provider,
		VectorStore:         s.info.VectorStore,
	}
}

func cartResponse(conversationId string, items []commerce.CartItem) *dto.CartResponse {
	if items == nil {
		items = []commerce.CartItem{}
	}
	currency := defaultCurrency
	count := 0
	for _, it := range items {
		if it.Currency != "" {
			currency = it.Currency
		}
		count += it.Quantity
	}
	return &dto.CartResponse{
		ConversationId: conversationId,
		Items:          items,
		Total:          commerce.CartTotal(items),
		Currency:       currency,
		Count:          count,
	}
}
