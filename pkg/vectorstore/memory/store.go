// Package memory is an in-process vector store scanned by brute force.
package memory

import (
	"context"
	"sort"
	"sync"

	"smartshop-be/pkg/vectorstore"
)

type Store struct {
	mu    sync.RWMutex
	items map[string]vectorstore.Item
}

var _ vectorstore.Store = &Store{}

func New() *Store {
	return &Store{items: make(map[string]vectorstore.Item)}
}

func (s *Store) Upsert(ctx context.Context, items []vectorstore.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		vec := make([]float32, len(it.Vector))
		copy(vec, it.Vector)
		meta := make(map[string]any, len(it.Metadata))
		for k, v := range it.Metadata {
			meta[k] = v
		}
		s.items[it.ID] = vectorstore.Item{ID: it.ID, Vector: vec, Metadata: meta}
	}
	return nil
}

func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter *vectorstore.Filter) ([]vectorstore.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accepts := acceptor(filter)
	matches := make([]vectorstore.Match, 0, len(s.items))
	for _, it := range s.items {
		if !accepts(it) {
			continue
		}
		score, err := vectorstore.CosineSimilarity(vector, it.Vector)
		if err != nil {
			return nil, err
		}
		matches = append(matches, vectorstore.Match{ID: it.ID, Score: score, Metadata: it.Metadata})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *Store) Delete(ctx context.Context, filter vectorstore.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	accepts := acceptor(&filter)
	n := 0
	for id, it := range s.items {
		if accepts(it) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) Count(ctx context.Context, filter *vectorstore.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accepts := acceptor(filter)
	n := 0
	for _, it := range s.items {
		if accepts(it) {
			n++
		}
	}
	return n, nil
}

func (s *Store) List(ctx context.Context, filter *vectorstore.Filter) ([]vectorstore.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accepts := acceptor(filter)
	var out []vectorstore.Match
	for _, it := range s.items {
		if accepts(it) {
			out = append(out, vectorstore.Match{ID: it.ID, Metadata: it.Metadata})
		}
	}
	return out, nil
}

// acceptor turns the exclusion list into a set once per scan.
func acceptor(filter *vectorstore.Filter) func(vectorstore.Item) bool {
	if filter == nil {
		return func(vectorstore.Item) bool { return true }
	}
	excluded := make(map[string]struct{}, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = struct{}{}
	}
	return func(it vectorstore.Item) bool {
		if _, skip := excluded[it.ID]; skip {
			return false
		}
		return filter.Matches(it.Metadata)
	}
}
