// Package metrics exposes turn, tool and LLM call counters for /metrics.
package metrics

import (
	"time"

	"smartshop-be/pkg/agent"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "smartshop"

type Metrics struct {
	turns       *prometheus.CounterVec
	turnLatency *prometheus.HistogramVec
	toolCalls   *prometheus.CounterVec
	llmCalls    *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	sessions    prometheus.GaugeFunc
}

// New registers the collectors on reg. activeSessions may be nil.
func New(reg prometheus.Registerer, activeSessions func() int) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{
		turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by response type.",
		}, []string{"type"}),
		turnLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Wall time of one conversation turn.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"type"}),
		toolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool dispatches by tool and outcome.",
		}, []string{"tool", "outcome"}),
		llmCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Chat completion calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		llmLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "Latency of chat completion calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}
	if activeSessions != nil {
		m.sessions = f.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Conversations currently held in memory.",
		}, func() float64 { return float64(activeSessions()) })
	}
	return m
}

var _ agent.Observer = (*Metrics)(nil)

func (m *Metrics) ObserveTurn(t agent.ResponseType, d time.Duration) {
	m.turns.WithLabelValues(string(t)).Inc()
	m.turnLatency.WithLabelValues(string(t)).Observe(d.Seconds())
}

func (m *Metrics) ObserveTool(name string, failed bool) {
	m.toolCalls.WithLabelValues(name, outcome(failed)).Inc()
}

func (m *Metrics) ObserveLLM(provider string, d time.Duration, err error) {
	m.llmCalls.WithLabelValues(provider, outcome(err != nil)).Inc()
	m.llmLatency.WithLabelValues(provider).Observe(d.Seconds())
}

func outcome(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}
