package factory

import (
	"fmt"

	"smartshop-be/pkg/llm"
	"smartshop-be/pkg/llm/huggingface"
	"smartshop-be/pkg/llm/ollama"
	"smartshop-be/pkg/llm/openai"
)

// NewChatProvider selects the chat backend by name. baseURL may be empty to
// use the vendor default.
func NewChatProvider(providerType, modelName, baseURL, apiKey string) (llm.ChatProvider, error) {
	switch providerType {
	case "mistral", "groq", "openai":
		if apiKey == "" {
			return nil, fmt.Errorf("%s provider requires an api key", providerType)
		}
		p, err := openai.NewProvider(providerType, apiKey, baseURL, modelName)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(apiKey, baseURL, modelName), nil
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
