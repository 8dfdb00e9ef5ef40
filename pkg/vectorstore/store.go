// Package vectorstore is the contract between retrieval and the vector index.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Metadata keys shared by every backend.
const (
	MetaType       = "type"
	MetaDocumentID = "document_id"

	TypeProduct       = "product"
	TypeDocumentChunk = "document_chunk"
)

type Item struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Filter narrows a query or delete. Empty fields match everything.
type Filter struct {
	Types      []string
	DocumentID string
	// ExcludeIDs drops items by id, whatever their metadata.
	ExcludeIDs []string
}

// Accepts is Matches plus the id exclusion list.
func (f *Filter) Accepts(id string, metadata map[string]any) bool {
	if f == nil {
		return true
	}
	for _, ex := range f.ExcludeIDs {
		if ex == id {
			return false
		}
	}
	return f.Matches(metadata)
}

func (f *Filter) Matches(metadata map[string]any) bool {
	if f == nil {
		return true
	}
	if len(f.Types) > 0 {
		t, _ := metadata[MetaType].(string)
		found := false
		for _, want := range f.Types {
			if t == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DocumentID != "" {
		if id, _ := metadata[MetaDocumentID].(string); id != f.DocumentID {
			return false
		}
	}
	return true
}

type Store interface {
	Upsert(ctx context.Context, items []Item) error
	// Query returns at most topK matches ordered by descending similarity.
	Query(ctx context.Context, vector []float32, topK int, filter *Filter) ([]Match, error)
	Delete(ctx context.Context, filter Filter) (int, error)
	Count(ctx context.Context, filter *Filter) (int, error)
	// List returns every stored item matching filter, without vectors and
	// in no particular order.
	List(ctx context.Context, filter *Filter) ([]Match, error)
}

// CosineSimilarity returns 0 for zero vectors.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
