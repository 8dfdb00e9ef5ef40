package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"smartshop-be/internal/dto"
	"smartshop-be/internal/pkg/logger"
	"smartshop-be/pkg/agent"
	"smartshop-be/pkg/events"
	"smartshop-be/pkg/llm"
	pktNats "smartshop-be/pkg/nats"
)

const (
	usageModule  = "USAGE"
	usageDurable = "usage-aggregator"

	// USD per million tokens for models missing from the table.
	defaultCostPerMillion = 0.25
)

var costPerMillion = map[string]float64{
	"mistral-tiny":            0.14,
	"open-mistral-7b":         0.25,
	"mistral-small-latest":    2.0,
	"mistral-large-latest":    8.0,
	"llama-3.1-70b-versatile": 0.59,
	"llama-3.1-8b-instant":    0.05,
	"llama-3.3-70b-versatile": 0.59,
	"mixtral-8x7b-32768":      0.24,
}

// EstimateCost prices a call. Hugging Face inference is billed at zero.
func EstimateCost(provider, model string, totalTokens int) float64 {
	if provider == "huggingface" {
		return 0
	}
	rate, ok := costPerMillion[model]
	if !ok {
		rate = defaultCostPerMillion
	}
	return float64(totalTokens) / 1_000_000 * rate
}

type IUsageService interface {
	agent.UsageRecorder
	Start() error
	Report() *dto.UsageReportResponse
	// Reset drops every counter and returns when the new window starts.
	Reset() time.Time
}

type usageService struct {
	publisher  events.Publisher
	subscriber *pktNats.Subscriber
	logger     logger.ILogger

	mu     sync.Mutex
	models map[string]*dto.ModelUsage
	since  time.Time
}

// NewUsageService aggregates token usage. With a NATS publisher and
// subscriber, records travel through the LLM_USAGE subject first; without
// them they are aggregated in place.
func NewUsageService(publisher events.Publisher, subscriber *pktNats.Subscriber, log logger.ILogger) IUsageService {
	return &usageService{
		publisher:  publisher,
		subscriber: subscriber,
		logger:     log,
		models:     make(map[string]*dto.ModelUsage),
		since:      time.Now().UTC(),
	}
}

func (s *usageService) Start() error {
	if s.subscriber == nil {
		return nil
	}
	if err := s.subscriber.Subscribe(pktNats.Subject(events.LLMUsage), usageDurable, s.handleEvent); err != nil {
		return fmt.Errorf("subscribe usage: %w", err)
	}
	s.logger.Info(usageModule, "Usage aggregator listening", map[string]interface{}{"subject": pktNats.Subject(events.LLMUsage)})
	return nil
}

func (s *usageService) RecordUsage(ctx context.Context, rec agent.UsageRecord) {
	if s.publisher == nil || s.subscriber == nil {
		s.add(rec.Provider, rec.Model, rec.Usage)
		return
	}
	evt := events.New(events.LLMUsage, map[string]interface{}{
		"session_id":        rec.SessionID,
		"provider":          rec.Provider,
		"model":             rec.Model,
		"purpose":           rec.Purpose,
		"prompt_tokens":     rec.Usage.PromptTokens,
		"completion_tokens": rec.Usage.CompletionTokens,
		"total_tokens":      rec.Usage.TotalTokens,
	})
	evt.OccurredAt = rec.At
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn(usageModule, "Failed to publish usage, aggregating locally", map[string]interface{}{"error": err.Error()})
		s.add(rec.Provider, rec.Model, rec.Usage)
	}
}

func (s *usageService) handleEvent(ctx context.Context, event events.Event) error {
	p := event.Payload()
	provider, _ := p["provider"].(string)
	model, _ := p["model"].(string)
	if model == "" {
		return nil
	}
	s.add(provider, model, llm.Usage{
		PromptTokens:     intField(p, "prompt_tokens"),
		CompletionTokens: intField(p, "completion_tokens"),
		TotalTokens:      intField(p, "total_tokens"),
	})
	return nil
}

func intField(p map[string]interface{}, key string) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func (s *usageService) add(provider, model string, u llm.Usage) {
	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[model]
	if !ok {
		m = &dto.ModelUsage{Model: model, Provider: provider}
		s.models[model] = m
	}
	m.Calls++
	m.PromptTokens += u.PromptTokens
	m.CompletionTokens += u.CompletionTokens
	m.TotalTokens += total
	m.EstimatedCostUSD = EstimateCost(m.Provider, model, m.TotalTokens)
}

func (s *usageService) Report() *dto.UsageReportResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := &dto.UsageReportResponse{Models: make([]dto.ModelUsage, 0, len(s.models)), Since: s.since}
	for _, m := range s.models {
		res.Models = append(res.Models, *m)
		res.TotalCalls += m.Calls
		res.TotalTokens += m.TotalTokens
		res.EstimatedCostUSD += m.EstimatedCostUSD
	}
	sort.Slice(res.Models, func(i, j int) bool { return res.Models[i].Model < res.Models[j].Model })
	return res
}

func (s *usageService) Reset() time.Time {
	s.mu.Lock()
	s.models = make(map[string]*dto.ModelUsage)
	s.since = time.Now().UTC()
	since := s.since
	s.mu.Unlock()

	s.logger.Info(usageModule, "Usage statistics reset", nil)
	return since
}
