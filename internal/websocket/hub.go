package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"smartshop-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	hubModule    = "Hub"
	relayChannel = "smartshop:conversations"
)

type relayMessage struct {
	ConversationID string          `json:"conversation_id"`
	Origin         string          `json:"origin"`
	Message        json.RawMessage `json:"message"`
}

// Hub fans turn responses out to every socket of a conversation. With redis
// configured, deliveries are relayed to the other instances as well.
type Hub struct {
	// conversation id -> sockets (several tabs or devices)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once

	mu sync.RWMutex

	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

// NewHub builds a hub. rdb may be nil for a single instance deployment.
func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ConversationID] = append(h.clients[client.ConversationID], client)
			h.mu.Unlock()
			h.logger.Info(hubModule, "Client registered", map[string]interface{}{"conversation_id": client.ConversationID})

		case client := <-h.unregister:
			h.remove(client)

		case <-h.stop:
			return
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// join registers client. It reports false once the hub is stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stop:
		return false
	}
}

// leave never blocks past Stop: Run is gone and nobody reads unregister.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.clients[client.ConversationID]
	for i, c := range clients {
		if c == client {
			h.clients[client.ConversationID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.ConversationID]) == 0 {
		delete(h.clients, client.ConversationID)
		h.logger.Info(hubModule, "Conversation has no more sockets", map[string]interface{}{"conversation_id": client.ConversationID})
	}
}

// Deliver sends payload to the local sockets of the conversation and relays
// it to the other instances.
func (h *Hub) Deliver(conversationID string, payload []byte) {
	h.deliverLocal(conversationID, payload)

	if h.rdb == nil {
		return
	}
	msg, err := json.Marshal(relayMessage{ConversationID: conversationID, Origin: h.instanceID, Message: payload})
	if err != nil {
		return
	}
	if err := h.rdb.Publish(context.Background(), relayChannel, msg).Err(); err != nil {
		h.logger.Warn(hubModule, "Redis relay publish failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Hub) deliverLocal(conversationID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients[conversationID] {
		select {
		case client.Send <- payload:
		default:
			// The read pump unregisters slow sockets when they drop.
			h.logger.Warn(hubModule, "Client send buffer full, dropping message", map[string]interface{}{"conversation_id": conversationID})
		}
	}
}

// Connections reports how many local sockets follow a conversation.
func (h *Hub) Connections(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[conversationID])
}

func (h *Hub) subscribeToRedis() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-h.stop
		cancel()
	}()

	pubsub := h.rdb.Subscribe(ctx, relayChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var relay relayMessage
		if err := json.Unmarshal([]byte(msg.Payload), &relay); err != nil {
			h.logger.Warn(hubModule, "Redis relay message parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if relay.Origin == h.instanceID {
			continue
		}
		h.deliverLocal(relay.ConversationID, relay.Message)
	}
}
