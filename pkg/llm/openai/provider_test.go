package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"smartshop-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteMapsToolCalls(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"model": "mistral-small-latest",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "abc123XYZ",
						"type": "function",
						"function": {"name": "search_products", "arguments": "{\"query\":\"chemise\"}"}
					}]
				}
			}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 12, "total_tokens": 132}
		}`))
	}))
	defer srv.Close()

	p, err := NewProvider("mistral", "key", srv.URL, "mistral-small-latest")
	require.NoError(t, err)

	tools := []llm.Tool{{
		Name:        "search_products",
		Description: "Recherche de produits",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{"query": map[string]any{"type": "string"}}, "required": []string{"query"}},
	}}
	c, err := p.Complete(context.Background(),
		[]llm.Message{{Role: llm.RoleUser, Content: "je cherche une chemise"}},
		llm.WithTools(tools), llm.WithToolChoice(llm.ToolChoiceAuto), llm.WithTemperature(0.2))
	require.NoError(t, err)

	require.Len(t, c.ToolCalls, 1)
	assert.Equal(t, llm.ToolCall{ID: "abc123XYZ", Name: "search_products", Arguments: `{"query":"chemise"}`}, c.ToolCalls[0])
	assert.Equal(t, 132, c.Usage.TotalTokens)
	assert.Equal(t, "auto", got["tool_choice"])
	assert.Len(t, got["tools"], 1)
}

func TestCompleteTextAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Bonjour !"}}],"usage":{"total_tokens":5}}`))
	}))
	defer srv.Close()

	p, err := NewProvider("groq", "key", srv.URL, "llama-3.1-8b-instant")
	require.NoError(t, err)

	c, err := p.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "salut"}})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour !", c.Text)
	assert.False(t, c.HasToolCalls())
	assert.Equal(t, "llama-3.1-8b-instant", c.Model)
}

func TestCompleteSendsTemperature(t *testing.T) {
	tests := []struct {
		name string
		opts []llm.Option
		want float64
	}{
		{"zero", []llm.Option{llm.WithTemperature(0)}, 0.01},
		{"explicit", []llm.Option{llm.WithTemperature(0.3)}, 0.3},
		{"default", nil, 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"chat"}}]}`))
			}))
			defer srv.Close()

			p, err := NewProvider("mistral", "key", srv.URL, "mistral-small-latest")
			require.NoError(t, err)

			_, err = p.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "bonsoir"}}, tt.opts...)
			require.NoError(t, err)

			require.Contains(t, got, "temperature")
			assert.InDelta(t, tt.want, got["temperature"].(float64), 1e-6)
		})
	}
}

func TestNewProviderUnknownVendor(t *testing.T) {
	_, err := NewProvider("acme", "key", "", "m")
	assert.Error(t, err)
}
