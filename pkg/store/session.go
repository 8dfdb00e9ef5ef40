package store

import (
	"sync"
	"time"

	"smartshop-be/pkg/agent/state"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/commerce"
)

// Session is one conversation. Its fields are only touched by the goroutine
// holding the session lock, so turns of one conversation run one at a time.
type Session struct {
	ID             string
	Memory         *Memory
	State          *state.ConversationState
	CurrentProduct *catalog.Product
	Suggestions    []string
	Cart           []commerce.CartItem
	CreatedAt      time.Time
	LastActiveAt   time.Time

	mu sync.Mutex
}

func NewSession(id string, memorySize int) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Memory:       NewMemory(memorySize),
		State:        state.New(),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Reset forgets the dialogue but keeps the cart.
func (s *Session) Reset() {
	s.Memory.Clear()
	s.State.Clear()
	s.CurrentProduct = nil
	s.Suggestions = nil
}

func (s *Session) AddToCart(item commerce.CartItem) {
	s.Cart = commerce.MergeItem(s.Cart, item)
}

func (s *Session) ClearCart() {
	s.Cart = nil
}

// CartSnapshot copies the cart lines.
func (s *Session) CartSnapshot() []commerce.CartItem {
	out := make([]commerce.CartItem, len(s.Cart))
	copy(out, s.Cart)
	return out
}
