package agent

import (
	"context"
	"time"

	"smartshop-be/pkg/agent/state"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/commerce"
	"smartshop-be/pkg/llm"
)

type ResponseType string

const (
	ResponseText         ResponseType = "text"
	ResponseProductImage ResponseType = "product_image"
	ResponseAddToCart    ResponseType = "add_to_cart"
	ResponseContactAgent ResponseType = "contact_agent"
)

// CartDelta describes the cart lines a turn added.
type CartDelta struct {
	Added           []commerce.CartItem `json:"added"`
	Message         string              `json:"message"`
	SuggestContact  bool                `json:"suggest_contact"`
	ContactQuestion string              `json:"contact_question,omitempty"`
}

type TurnResponse struct {
	Type          ResponseType         `json:"type"`
	Message       string               `json:"message"`
	Product       *catalog.Product     `json:"product,omitempty"`
	CartDelta     *CartDelta           `json:"cart_delta,omitempty"`
	PendingChoice *state.PendingChoice `json:"pending_choice,omitempty"`
	Suggestions   []string             `json:"suggestions,omitempty"`
}

// UsageRecord is the token usage of one LLM call.
type UsageRecord struct {
	SessionID string    `json:"session_id"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Purpose   string    `json:"purpose"`
	Usage     llm.Usage `json:"usage"`
	At        time.Time `json:"at"`
}

type UsageRecorder interface {
	RecordUsage(ctx context.Context, rec UsageRecord)
}

// Observer receives turn, tool and LLM timings.
type Observer interface {
	ObserveTurn(t ResponseType, d time.Duration)
	ObserveTool(name string, failed bool)
	ObserveLLM(provider string, d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveTurn(ResponseType, time.Duration) {}
func (nopObserver) ObserveTool(string, bool)                {}
func (nopObserver) ObserveLLM(string, time.Duration, error) {}
