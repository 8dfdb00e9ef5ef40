package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"smartshop-be/internal/dto"
	"smartshop-be/internal/pkg/logger"
	"smartshop-be/internal/repository/memory"
	"smartshop-be/pkg/agent"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/commerce"
	"smartshop-be/pkg/events"
	"smartshop-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedTurns struct {
	mu     sync.Mutex
	inputs []string
	reply  func(sess *store.Session, input string) *agent.TurnResponse
}

func (s *scriptedTurns) HandleTurn(ctx context.Context, sess *store.Session, input string) *agent.TurnResponse {
	s.mu.Lock()
	s.inputs = append(s.inputs, input)
	s.mu.Unlock()
	sess.Memory.Append(store.RoleUser, input)
	if s.reply != nil {
		return s.reply(sess, input)
	}
	return &agent.TurnResponse{Type: agent.ResponseText, Message: "ok"}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

func qty(n int) *int { return &n }

func testCatalog() catalog.Store {
	return catalog.NewStaticStore([]catalog.Product{
		{ID: "p1", Name: "Chemise bleue", Category: "Vêtements", Price: 12000, Currency: "FCFA", InStock: true},
		{ID: "p2", Name: "Sac cuir", Category: "Accessoires", Price: 30000, Currency: "FCFA", InStock: true, StockQuantity: qty(0)},
	})
}

func newChatFixture(turns *scriptedTurns, pub *recordingPublisher) (IChatService, *memory.SessionRepository) {
	repo := memory.NewSessionRepository(time.Minute, 10)
	var publisher events.Publisher
	if pub != nil {
		publisher = pub
	}
	svc := NewChatService(repo, turns, testCatalog(), publisher, logger.NewNopLogger(), ChatServiceInfo{LLMProvider: "mistral", VectorStore: "memory"})
	return svc, repo
}

func TestSendMessageAssignsConversationId(t *testing.T) {
	turns := &scriptedTurns{}
	svc, repo := newChatFixture(turns, nil)

	res, err := svc.SendMessage(context.Background(), &dto.ChatRequest{Message: "  bonjour  "})

	require.NoError(t, err)
	assert.NotEmpty(t, res.ConversationId)
	assert.Equal(t, agent.ResponseText, res.Type)
	assert.Equal(t, []string{"bonjour"}, turns.inputs)
	assert.Equal(t, 1, repo.Count())
}

func TestSendMessageReusesConversation(t *testing.T) {
	turns := &scriptedTurns{}
	svc, repo := newChatFixture(turns, nil)
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, &dto.ChatRequest{Message: "un", ConversationId: "c1"})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, &dto.ChatRequest{Message: "deux", ConversationId: "c1"})
	require.NoError(t, err)

	sess, ok := repo.Get("c1")
	require.True(t, ok)
	assert.Equal(t, 2, sess.Memory.Len())
}

func TestSendMessageEmpty(t *testing.T) {
	svc, _ := newChatFixture(&scriptedTurns{}, nil)

	_, err := svc.SendMessage(context.Background(), &dto.ChatRequest{Message: "   "})

	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendMessageSerializesTurnsOfOneConversation(t *testing.T) {
	var active, maxActive int
	var mu sync.Mutex
	turns := &scriptedTurns{reply: func(sess *store.Session, input string) *agent.TurnResponse {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return &agent.TurnResponse{Type: agent.ResponseText}
	}}
	svc, _ := newChatFixture(turns, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.SendMessage(context.Background(), &dto.ChatRequest{Message: "salut", ConversationId: "same"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
	assert.Len(t, turns.inputs, 8)
}

func TestSendMessagePublishesTurnEvents(t *testing.T) {
	tests := []struct {
		name  string
		resp  *agent.TurnResponse
		types []string
	}{
		{
			name: "cart add",
			resp: &agent.TurnResponse{Type: agent.ResponseAddToCart, CartDelta: &agent.CartDelta{
				Added: []commerce.CartItem{{ProductID: "p1", Name: "Chemise bleue", Quantity: 1}},
			}},
			types: []string{events.CartItemAdded},
		},
		{
			name:  "contact",
			resp:  &agent.TurnResponse{Type: agent.ResponseContactAgent},
			types: []string{events.ContactRequested},
		},
		{
			name:  "plain text",
			resp:  &agent.TurnResponse{Type: agent.ResponseText},
			types: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			turns := &scriptedTurns{reply: func(*store.Session, string) *agent.TurnResponse { return tt.resp }}
			svc, _ := newChatFixture(turns, pub)

			_, err := svc.SendMessage(context.Background(), &dto.ChatRequest{Message: "x", ConversationId: "c1"})

			require.NoError(t, err)
			assert.Equal(t, tt.types, pub.types())
		})
	}
}

func TestPublishFailureDoesNotFailTurn(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats down")}
	turns := &scriptedTurns{reply: func(*store.Session, string) *agent.TurnResponse {
		return &agent.TurnResponse{Type: agent.ResponseContactAgent, Message: "contact"}
	}}
	svc, _ := newChatFixture(turns, pub)

	res, err := svc.SendMessage(context.Background(), &dto.ChatRequest{Message: "x"})

	require.NoError(t, err)
	assert.Equal(t, "contact", res.Message)
}

func TestCartLifecycle(t *testing.T) {
	pub := &recordingPublisher{}
	svc, repo := newChatFixture(&scriptedTurns{}, pub)
	ctx := context.Background()

	empty, err := svc.GetCart(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 0, repo.Count())

	added, err := svc.AddToCart(ctx, &dto.AddToCartRequest{ConversationId: "c1", ProductId: "p1"})
	require.NoError(t, err)
	assert.True(t, added.Success)
	assert.Equal(t, "✅ **Chemise bleue** ajouté au panier.", added.Message)
	assert.Equal(t, commerce.ContactQuestion, added.ContactQuestion)

	_, err = svc.AddToCart(ctx, &dto.AddToCartRequest{ConversationId: "c1", ProductId: "p1"})
	require.NoError(t, err)

	cart, err := svc.GetCart(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 2, cart.Count)
	assert.Equal(t, 24000.0, cart.Total)
	assert.Equal(t, "FCFA", cart.Currency)
	assert.Equal(t, []string{events.CartItemAdded, events.CartItemAdded}, pub.types())

	sess, _ := repo.Get("c1")
	require.NotNil(t, sess.CurrentProduct)
	assert.Equal(t, "p1", sess.CurrentProduct.ID)

	cleared, err := svc.ClearCart(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, cleared.Items)
	assert.Zero(t, cleared.Total)
}

func TestAddToCartErrors(t *testing.T) {
	svc, _ := newChatFixture(&scriptedTurns{}, nil)
	ctx := context.Background()

	_, err := svc.AddToCart(ctx, &dto.AddToCartRequest{ConversationId: "c1", ProductId: "nope"})
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	_, err = svc.AddToCart(ctx, &dto.AddToCartRequest{ConversationId: "c1", ProductId: "p2"})
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 409, svcErr.HTTPStatus())
	assert.Contains(t, svcErr.Message, "Sac cuir")
}

func TestResetConversationKeepsCart(t *testing.T) {
	svc, repo := newChatFixture(&scriptedTurns{}, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.ResetConversation(ctx, "missing"), ErrConversationNotFound)

	_, err := svc.SendMessage(ctx, &dto.ChatRequest{Message: "bonjour", ConversationId: "c1"})
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, &dto.AddToCartRequest{ConversationId: "c1", ProductId: "p1"})
	require.NoError(t, err)

	require.NoError(t, svc.ResetConversation(ctx, "c1"))

	sess, _ := repo.Get("c1")
	assert.Equal(t, 0, sess.Memory.Len())
	assert.Nil(t, sess.CurrentProduct)
	assert.False(t, sess.State.Awaiting())
	assert.Len(t, sess.Cart, 1)
}

func TestSubmitFeedbackPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newChatFixture(&scriptedTurns{}, pub)

	res, err := svc.SubmitFeedback(context.Background(), &dto.FeedbackRequest{ConversationId: "c1", Rating: 4, MessageIndex: 2, Comment: "super"})

	require.NoError(t, err)
	assert.NotEmpty(t, res.Id)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.FeedbackSubmitted, pub.events[0].EventType())
	assert.Equal(t, 4, pub.events[0].Payload()["rating"])
	assert.Equal(t, res.Id, pub.events[0].Payload()["feedback_id"])
}

func TestHealth(t *testing.T) {
	svc, _ := newChatFixture(&scriptedTurns{}, nil)
	_, err := svc.SendMessage(context.Background(), &dto.ChatRequest{Message: "x", ConversationId: "c1"})
	require.NoError(t, err)

	h := svc.Health(context.Background())

	assert.Equal(t, &dto.HealthResponse{Status: "ok", ActiveConversations: 1, LLMProvider: "mistral", VectorStore: "memory"}, h)
}
