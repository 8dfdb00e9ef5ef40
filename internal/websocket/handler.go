package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches a socket to a conversation and blocks until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, conversationID string, onMessage MessageHandler) {
	client := &Client{
		Hub:            hub,
		Conn:           c,
		ConversationID: conversationID,
		Send:           make(chan []byte, 64),
		onMessage:      onMessage,
	}
	if !client.Hub.join(client) {
		c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
