// Package qdrant is a minimal REST client to a Qdrant collection using
// cosine distance.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"smartshop-be/pkg/vectorstore"

	"github.com/google/uuid"
)

// payloadIDKey keeps the caller's id; Qdrant only accepts uuids or integers.
const payloadIDKey = "item_id"

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

var _ vectorstore.Store = &Store{}

func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

// EnsureCollection creates the collection when it does not exist yet.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil, nil)
	if err == nil && status == http.StatusOK {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{"size": dimension, "distance": "Cosine"},
	}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	for _, field := range []string{vectorstore.MetaType, vectorstore.MetaDocumentID} {
		index := map[string]any{"field_name": field, "field_schema": "keyword"}
		if _, err := s.do(ctx, http.MethodPut, s.collectionURL("/index"), index, nil); err != nil {
			return fmt.Errorf("create payload index %s: %w", field, err)
		}
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, items []vectorstore.Item) error {
	if len(items) == 0 {
		return nil
	}
	points := make([]map[string]any, len(items))
	for i, it := range items {
		payload := make(map[string]any, len(it.Metadata)+1)
		for k, v := range it.Metadata {
			payload[k] = v
		}
		payload[payloadIDKey] = it.ID
		points[i] = map[string]any{"id": pointID(it.ID), "vector": it.Vector, "payload": payload}
	}
	_, err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), map[string]any{"points": points}, nil)
	return err
}

func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter *vectorstore.Filter) ([]vectorstore.Match, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if f := toFilter(filter); f != nil {
		req["filter"] = f
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}

	matches := make([]vectorstore.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		id, _ := r.Payload[payloadIDKey].(string)
		delete(r.Payload, payloadIDKey)
		matches = append(matches, vectorstore.Match{ID: id, Score: r.Score, Metadata: r.Payload})
	}
	return matches, nil
}

func (s *Store) Delete(ctx context.Context, filter vectorstore.Filter) (int, error) {
	n, err := s.Count(ctx, &filter)
	if err != nil {
		return 0, err
	}
	f := toFilter(&filter)
	if f == nil {
		f = map[string]any{}
	}
	body := map[string]any{"filter": f}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/delete?wait=true"), body, nil); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) Count(ctx context.Context, filter *vectorstore.Filter) (int, error) {
	body := map[string]any{"exact": true}
	if f := toFilter(filter); f != nil {
		body["filter"] = f
	}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/count"), body, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

const scrollPage = 256

// List pages through the collection with the scroll API.
func (s *Store) List(ctx context.Context, filter *vectorstore.Filter) ([]vectorstore.Match, error) {
	var out []vectorstore.Match
	var offset any
	for {
		body := map[string]any{"limit": scrollPage, "with_payload": true, "with_vector": false}
		if f := toFilter(filter); f != nil {
			body["filter"] = f
		}
		if offset != nil {
			body["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points []struct {
					Payload map[string]any `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/scroll"), body, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Result.Points {
			id, _ := p.Payload[payloadIDKey].(string)
			delete(p.Payload, payloadIDKey)
			out = append(out, vectorstore.Match{ID: id, Metadata: p.Payload})
		}
		if resp.Result.NextPageOffset == nil || len(resp.Result.Points) == 0 {
			return out, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

func toFilter(f *vectorstore.Filter) map[string]any {
	if f == nil {
		return nil
	}
	var must []map[string]any
	if len(f.Types) > 0 {
		must = append(must, map[string]any{"key": vectorstore.MetaType, "match": map[string]any{"any": f.Types}})
	}
	if f.DocumentID != "" {
		must = append(must, map[string]any{"key": vectorstore.MetaDocumentID, "match": map[string]any{"value": f.DocumentID}})
	}
	out := map[string]any{}
	if len(must) > 0 {
		out["must"] = must
	}
	if len(f.ExcludeIDs) > 0 {
		ids := make([]string, len(f.ExcludeIDs))
		for i, id := range f.ExcludeIDs {
			ids[i] = pointID(id)
		}
		out["must_not"] = []map[string]any{{"has_id": ids}}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s *Store) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Store) do(ctx context.Context, method, url string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("create qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("qdrant %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, string(msg))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
