package dto

import (
	"time"

	"smartshop-be/pkg/agent"
	"smartshop-be/pkg/commerce"
)

type ChatRequest struct {
	Message        string `json:"message" validate:"required,max=2000"`
	ConversationId string `json:"conversation_id,omitempty" validate:"omitempty,max=128"`
}

type ChatResponse struct {
	ConversationId string `json:"conversation_id"`
	*agent.TurnResponse
}

type CartQuery struct {
	ConversationId string `query:"conversation_id" validate:"required"`
}

type CartResponse struct {
	ConversationId string              `json:"conversation_id"`
	Items          []commerce.CartItem `json:"items"`
	Total          float64             `json:"total"`
	Currency       string              `json:"currency"`
	Count          int                 `json:"count"`
}

type AddToCartRequest struct {
	ConversationId string `json:"conversation_id" validate:"required"`
	ProductId      string `json:"product_id" validate:"required"`
}

type AddToCartResponse struct {
	commerce.CartResult
	Cart CartResponse `json:"cart"`
}

type ResetConversationRequest struct {
	ConversationId string `json:"conversation_id" validate:"required"`
}

type FeedbackRequest struct {
	ConversationId string `json:"conversation_id" validate:"required"`
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	MessageIndex   int    `json:"message_index" validate:"min=0"`
	Comment        string `json:"comment,omitempty" validate:"max=1000"`
}

type FeedbackResponse struct {
	Id        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type HealthResponse struct {
	Status              string `json:"status"`
	ActiveConversations int    `json:"active_conversations"`
	LLMProvider         string `json:"llm_provider"`
	VectorStore         string `json:"vector_store"`
}
