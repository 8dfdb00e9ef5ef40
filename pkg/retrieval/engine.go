// Package retrieval searches the product catalog and the uploaded documents
// in one vector pass, then applies availability and lexical precision rules.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"smartshop-be/internal/pkg/logger"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/embedding"
	"smartshop-be/pkg/vectorstore"
)

const module = "RETRIEVAL"

type Kind string

const (
	KindProduct       Kind = "product"
	KindDocumentChunk Kind = "document_chunk"
)

type Item struct {
	Kind    Kind                   `json:"kind"`
	ID      string                 `json:"id"`
	Score   float64                `json:"score"`
	Product *catalog.Product       `json:"product,omitempty"`
	Chunk   *catalog.DocumentChunk `json:"chunk,omitempty"`
}

// Result lists products first, then chunks, each by descending score.
type Result struct {
	Items []Item `json:"items"`
}

func (r Result) Empty() bool { return len(r.Items) == 0 }

func (r Result) Products() []catalog.Product {
	var out []catalog.Product
	for _, it := range r.Items {
		if it.Kind == KindProduct {
			out = append(out, *it.Product)
		}
	}
	return out
}

func (r Result) Chunks() []catalog.DocumentChunk {
	var out []catalog.DocumentChunk
	for _, it := range r.Items {
		if it.Kind == KindDocumentChunk {
			out = append(out, *it.Chunk)
		}
	}
	return out
}

type Config struct {
	TopK               int
	ScoreThreshold     float64
	NameFuzzThreshold  int
	ChunkFuzzThreshold int
	EmbedTimeout       time.Duration
	QueryTimeout       time.Duration
}

func DefaultConfig() Config {
	return Config{
		TopK:               3,
		ScoreThreshold:     0.3,
		NameFuzzThreshold:  70,
		ChunkFuzzThreshold: 75,
		EmbedTimeout:       15 * time.Second,
		QueryTimeout:       10 * time.Second,
	}
}

type Engine struct {
	embedder embedding.Provider
	store    vectorstore.Store
	catalog  catalog.Store
	logger   logger.ILogger
	cfg      Config
}

func NewEngine(embedder embedding.Provider, store vectorstore.Store, catalogStore catalog.Store, log logger.ILogger, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.NameFuzzThreshold <= 0 {
		cfg.NameFuzzThreshold = def.NameFuzzThreshold
	}
	if cfg.ChunkFuzzThreshold <= 0 {
		cfg.ChunkFuzzThreshold = def.ChunkFuzzThreshold
	}
	if cfg.EmbedTimeout <= 0 {
		cfg.EmbedTimeout = def.EmbedTimeout
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = def.QueryTimeout
	}
	return &Engine{embedder: embedder, store: store, catalog: catalogStore, logger: log, cfg: cfg}
}

type SearchOptions struct {
	Intent         string
	TopK           int
	ScoreThreshold float64
}

type SearchOption func(*SearchOptions)

func WithIntent(intent string) SearchOption {
	return func(o *SearchOptions) { o.Intent = intent }
}

func WithTopK(k int) SearchOption {
	return func(o *SearchOptions) { o.TopK = k }
}

func WithScoreThreshold(t float64) SearchOption {
	return func(o *SearchOptions) { o.ScoreThreshold = t }
}

func (e *Engine) embedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.EmbedTimeout)
	defer cancel()
	return e.embedder.Embed(ctx, text, embedding.ModeQuery)
}

// Search runs one vector query over both corpora. Each kind keeps at most
// TopK items; unavailable products and malformed records are dropped.
func (e *Engine) Search(ctx context.Context, query string, opts ...SearchOption) (Result, error) {
	o := SearchOptions{TopK: e.cfg.TopK, ScoreThreshold: e.cfg.ScoreThreshold}
	for _, opt := range opts {
		opt(&o)
	}

	text := query
	if o.Intent != "" {
		text = fmt.Sprintf("Intent: %s. %s", o.Intent, query)
	}
	vec, err := e.embedQuery(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("embed query: %w", err)
	}

	qctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()
	matches, err := e.store.Query(qctx, vec, 2*o.TopK, &vectorstore.Filter{
		Types: []string{vectorstore.TypeProduct, vectorstore.TypeDocumentChunk},
	})
	if err != nil {
		return Result{}, fmt.Errorf("query vectors: %w", err)
	}

	products, chunks := e.partition(matches, o.ScoreThreshold)
	sortByScore(products)
	sortByScore(chunks)
	if len(products) > o.TopK {
		products = products[:o.TopK]
	}
	if len(chunks) > o.TopK {
		chunks = chunks[:o.TopK]
	}

	return Result{Items: append(products, chunks...)}, nil
}

func (e *Engine) partition(matches []vectorstore.Match, threshold float64) (products, chunks []Item) {
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if m.Score < threshold {
			continue
		}
		kind, _ := m.Metadata[vectorstore.MetaType].(string)
		switch kind {
		case vectorstore.TypeProduct:
			p, err := decodeProduct(m.Metadata)
			if err != nil {
				e.logger.Warn(module, "Dropping malformed product record", map[string]interface{}{"id": m.ID, "error": err.Error()})
				continue
			}
			key := "p:" + p.ID
			if seen[key] || !p.Offerable() {
				continue
			}
			seen[key] = true
			products = append(products, Item{Kind: KindProduct, ID: p.ID, Score: m.Score, Product: p})
		case vectorstore.TypeDocumentChunk:
			c, err := decodeChunk(m.Metadata)
			if err != nil {
				e.logger.Warn(module, "Dropping malformed document chunk", map[string]interface{}{"id": m.ID, "error": err.Error()})
				continue
			}
			key := "c:" + c.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			chunks = append(chunks, Item{Kind: KindDocumentChunk, ID: c.Key(), Score: m.Score, Chunk: c})
		}
	}
	return products, chunks
}

func sortByScore(items []Item) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
}

// LexicalSearch narrows Search results to items that also match the query
// lexically. Failures are logged and yield an empty result.
func (e *Engine) LexicalSearch(ctx context.Context, query, intent string) Result {
	res, err := e.Search(ctx, query, WithIntent(intent))
	if err != nil {
		e.logger.Error(module, "Search failed", map[string]interface{}{"query": query, "error": err.Error()})
		return Result{}
	}

	kept := res.Items[:0]
	for _, it := range res.Items {
		switch it.Kind {
		case KindProduct:
			if lexicalScore(query, it.Product.Name) >= e.cfg.NameFuzzThreshold ||
				lexicalScore(query, it.Product.Category) >= e.cfg.NameFuzzThreshold {
				kept = append(kept, it)
			}
		case KindDocumentChunk:
			if lexicalScore(query, it.Chunk.Text) >= e.cfg.ChunkFuzzThreshold {
				kept = append(kept, it)
			}
		}
	}
	e.logger.Debug(module, "Lexical filter applied", map[string]interface{}{
		"query": query, "candidates": len(res.Items), "kept": len(kept),
	})
	return Result{Items: kept}
}

// SearchProductsAsText renders LexicalSearch as lines for the LLM. An empty
// string means nothing matched.
func (e *Engine) SearchProductsAsText(ctx context.Context, query string) string {
	return Render(e.LexicalSearch(ctx, query, ""))
}

func Render(r Result) string {
	var parts []string
	if products := r.Products(); len(products) > 0 {
		parts = append(parts, catalog.RenderContext(products))
	}
	for _, c := range r.Chunks() {
		parts = append(parts, fmt.Sprintf("- [%s, extrait %d/%d] %s", c.Filename, c.ChunkIndex+1, c.TotalChunks, c.Text))
	}
	return strings.Join(parts, "\n")
}

// SearchProductImage returns the best offerable product that has an image.
// Without such a vector hit it scans the catalog for any keyword overlap.
func (e *Engine) SearchProductImage(ctx context.Context, query string) (*catalog.Product, bool) {
	res, err := e.Search(ctx, query)
	if err != nil {
		e.logger.Warn(module, "Image search fell back to catalog scan", map[string]interface{}{"query": query, "error": err.Error()})
	}
	for _, p := range res.Products() {
		if p.HasImage() {
			p := p
			return &p, true
		}
	}

	products, err := e.catalog.All(ctx)
	if err != nil {
		e.logger.Error(module, "Catalog scan failed", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	keywords := Keywords(query)
	for _, p := range products {
		if !p.Offerable() || !p.HasImage() {
			continue
		}
		if overlaps(keywords, Keywords(p.Name+" "+p.Category+" "+p.Description)) {
			p := p
			return &p, true
		}
	}
	return nil, false
}

func overlaps(a, b []string) bool {
	set := make(map[string]struct{}, len(b))
	for _, w := range b {
		set[w] = struct{}{}
	}
	for _, w := range a {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

// SimilarProducts lists other offerable products of the same category, then
// tops up with vector neighbours of the product name.
func (e *Engine) SimilarProducts(ctx context.Context, p *catalog.Product, limit int) []catalog.Product {
	if p == nil || limit <= 0 {
		return nil
	}
	var out []catalog.Product
	seen := map[string]bool{p.ID: true}

	if products, err := e.catalog.All(ctx); err == nil {
		for _, c := range products {
			if len(out) == limit {
				return out
			}
			if !seen[c.ID] && c.Offerable() && strings.EqualFold(c.Category, p.Category) {
				seen[c.ID] = true
				out = append(out, c)
			}
		}
	} else {
		e.logger.Warn(module, "Catalog unavailable for similar products", map[string]interface{}{"error": err.Error()})
	}

	res, err := e.Search(ctx, p.Name+" "+p.Category, WithTopK(limit+1))
	if err != nil {
		return out
	}
	for _, c := range res.Products() {
		if len(out) == limit {
			break
		}
		if !seen[c.ID] {
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	return out
}

// FindProduct resolves a product id against the catalog.
func (e *Engine) FindProduct(ctx context.Context, id string) (*catalog.Product, error) {
	return e.catalog.FindByID(ctx, id)
}
