// Package embedding turns text into vectors. Queries and passages are
// embedded asymmetrically: E5-style models get a "query: " or "passage: "
// prefix, task-aware APIs get the matching task type.
package embedding

import (
	"context"
	"math"
)

type Mode string

const (
	ModeQuery   Mode = "query"
	ModePassage Mode = "passage"
)

type Provider interface {
	Embed(ctx context.Context, text string, mode Mode) ([]float32, error)
	Name() string
}

// Prefix applies the E5 instruction prefix for mode.
func Prefix(mode Mode, text string) string {
	if mode == ModePassage {
		return "passage: " + text
	}
	return "query: " + text
}

// Normalize scales vec to unit length so cosine similarity reduces to a dot
// product. A zero vector is returned unchanged.
func Normalize(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
