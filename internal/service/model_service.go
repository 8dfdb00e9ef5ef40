package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"smartshop-be/internal/dto"
	"smartshop-be/internal/pkg/logger"
	"smartshop-be/pkg/llm"
)

const modelModule = "MODELS"

// availableModels is the closed list an operator may switch to at runtime.
var availableModels = map[string][]dto.ModelInfo{
	"mistral": {
		{Id: "mistral-tiny", Name: "Mistral Tiny", Provider: "Mistral AI", Speed: "very_fast", Quality: "good", Description: "Le plus rapide et économique"},
		{Id: "open-mistral-7b", Name: "Mistral 7B", Provider: "Mistral AI", Speed: "fast", Quality: "very_good", Description: "Excellent rapport qualité/prix"},
		{Id: "mistral-small-latest", Name: "Mistral Small", Provider: "Mistral AI", Speed: "medium", Quality: "excellent", Description: "Haute qualité, usage actuel"},
		{Id: "mistral-large-latest", Name: "Mistral Large", Provider: "Mistral AI", Speed: "medium", Quality: "outstanding", Description: "Meilleure qualité Mistral"},
	},
	"groq": {
		{Id: "llama-3.1-70b-versatile", Name: "Llama 3.1 70B (Groq)", Provider: "Groq", Speed: "ultra_fast", Quality: "excellent", Description: "Ultra-rapide grâce à Groq LPU"},
		{Id: "llama-3.1-8b-instant", Name: "Llama 3.1 8B (Groq)", Provider: "Groq", Speed: "ultra_fast", Quality: "very_good", Description: "Le plus rapide et économique"},
		{Id: "llama-3.3-70b-versatile", Name: "Llama 3.3 70B (Groq)", Provider: "Groq", Speed: "ultra_fast", Quality: "outstanding", Description: "Dernière version Llama sur Groq"},
		{Id: "mixtral-8x7b-32768", Name: "Mixtral 8x7B (Groq)", Provider: "Groq", Speed: "ultra_fast", Quality: "excellent", Description: "Mixtral ultra-rapide"},
	},
	"huggingface": {
		{Id: "meta-llama/Llama-3.2-3B-Instruct", Name: "Llama 3.2 3B", Provider: "Hugging Face", Speed: "fast", Quality: "good", Description: "Gratuit, léger, auto-hébergé"},
		{Id: "meta-llama/Llama-3.1-8B-Instruct", Name: "Llama 3.1 8B", Provider: "Hugging Face", Speed: "medium", Quality: "very_good", Description: "Gratuit, bonne qualité"},
	},
}

func lookupModel(provider, model string) (dto.ModelInfo, bool) {
	for _, m := range availableModels[provider] {
		if m.Id == model {
			m.CostPer1MTokens = EstimateCost(provider, model, 1_000_000)
			return m, true
		}
	}
	return dto.ModelInfo{}, false
}

// ProviderTarget runs on a chat provider that can be replaced while serving.
type ProviderTarget interface {
	SetProvider(p llm.ChatProvider)
}

// ProviderBuilder creates a chat provider, usually factory.NewChatProvider
// bound to the configured credentials.
type ProviderBuilder func(provider, model string) (llm.ChatProvider, error)

type IModelService interface {
	Models(ctx context.Context) *dto.ModelsResponse
	SwitchModel(ctx context.Context, req *dto.SwitchModelRequest) (*dto.ActiveModelResponse, error)
}

type modelService struct {
	build   ProviderBuilder
	targets []ProviderTarget
	logger  logger.ILogger

	mu     sync.Mutex
	active dto.ActiveModelResponse
}

// NewModelService starts from the provider the process booted with.
func NewModelService(build ProviderBuilder, current llm.ChatProvider, currentModel string, log logger.ILogger, targets ...ProviderTarget) IModelService {
	active := dto.ActiveModelResponse{Model: currentModel, SwitchedAt: time.Now().UTC()}
	if current != nil {
		active.Provider = current.Name()
		active.SupportsTools = current.SupportsTools()
	}
	if info, ok := lookupModel(active.Provider, currentModel); ok {
		active.Name = info.Name
	}
	return &modelService{build: build, targets: targets, logger: log, active: active}
}

func (s *modelService) Models(ctx context.Context) *dto.ModelsResponse {
	providers := make(map[string][]dto.ModelInfo, len(availableModels))
	for provider, models := range availableModels {
		list := make([]dto.ModelInfo, 0, len(models))
		for _, m := range models {
			info, _ := lookupModel(provider, m.Id)
			list = append(list, info)
		}
		providers[provider] = list
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return &dto.ModelsResponse{Active: s.active, Providers: providers}
}

func (s *modelService) SwitchModel(ctx context.Context, req *dto.SwitchModelRequest) (*dto.ActiveModelResponse, error) {
	if _, ok := availableModels[req.Provider]; !ok {
		return nil, &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf("unknown provider: %s", req.Provider)}
	}
	info, ok := lookupModel(req.Provider, req.Model)
	if !ok {
		return nil, &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf("unknown model: %s", req.Model)}
	}

	p, err := s.build(req.Provider, req.Model)
	if err != nil {
		return nil, &Error{Status: http.StatusBadRequest, Message: err.Error()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.targets {
		t.SetProvider(p)
	}
	previous := s.active
	s.active = dto.ActiveModelResponse{
		Provider:      req.Provider,
		Model:         req.Model,
		Name:          info.Name,
		SupportsTools: p.SupportsTools(),
		SwitchedAt:    time.Now().UTC(),
	}

	s.logger.Info(modelModule, "Chat model switched", map[string]interface{}{
		"from_provider": previous.Provider,
		"from_model":    previous.Model,
		"provider":      req.Provider,
		"model":         req.Model,
	})
	res := s.active
	return &res, nil
}
