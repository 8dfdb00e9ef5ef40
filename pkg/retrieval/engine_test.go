package retrieval

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode"

	"smartshop-be/internal/pkg/logger"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/embedding"
	"smartshop-be/pkg/vectorstore"
	"smartshop-be/pkg/vectorstore/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder is a bag-of-words embedder: identical words land in the
// same dimension, so cosine similarity tracks word overlap.
type hashEmbedder struct {
	mu    sync.Mutex
	texts []string
}

func (h *hashEmbedder) Name() string { return "hash" }

func (h *hashEmbedder) Embed(ctx context.Context, text string, mode embedding.Mode) ([]float32, error) {
	h.mu.Lock()
	h.texts = append(h.texts, text)
	h.mu.Unlock()

	vec := make([]float32, 128)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		f := fnv.New32a()
		_, _ = f.Write([]byte(w))
		vec[f.Sum32()%128]++
	}
	return vec, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Name() string { return "failing" }

func (failingEmbedder) Embed(context.Context, string, embedding.Mode) ([]float32, error) {
	return nil, errors.New("embedding service down")
}

// stubStore returns canned matches whatever the query vector.
type stubStore struct {
	matches    []vectorstore.Match
	lastTopK   int
	lastFilter *vectorstore.Filter
}

func (s *stubStore) Upsert(context.Context, []vectorstore.Item) error { return nil }

func (s *stubStore) Query(ctx context.Context, v []float32, topK int, f *vectorstore.Filter) ([]vectorstore.Match, error) {
	s.lastTopK, s.lastFilter = topK, f
	return s.matches, nil
}

func (s *stubStore) Delete(context.Context, vectorstore.Filter) (int, error) { return 0, nil }

func (s *stubStore) Count(context.Context, *vectorstore.Filter) (int, error) { return len(s.matches), nil }

func (s *stubStore) List(context.Context, *vectorstore.Filter) ([]vectorstore.Match, error) {
	return s.matches, nil
}

func qty(n int) *int { return &n }

func productMatch(p catalog.Product, score float64) vectorstore.Match {
	return vectorstore.Match{ID: productItemID(p.ID), Score: score, Metadata: productMetadata(p)}
}

func chunkMatch(docID string, idx int, text string, score float64) vectorstore.Match {
	c := catalog.DocumentChunk{DocumentID: docID, ChunkIndex: idx, TotalChunks: 3, Text: text, Filename: docID + ".pdf"}
	return vectorstore.Match{ID: c.Key(), Score: score, Metadata: chunkMetadata(c)}
}

func newTestEngine(emb embedding.Provider, store vectorstore.Store, products []catalog.Product) *Engine {
	return NewEngine(emb, store, catalog.NewStaticStore(products), logger.NewNopLogger(), DefaultConfig())
}

var (
	chemise = catalog.Product{ID: "p1", Name: "Chemise bleue", Category: "Vêtements", Price: 12000, Currency: "FCFA", InStock: true, ImageURL: "https://cdn/p1.jpg"}
	sac     = catalog.Product{ID: "p2", Name: "Sac à main", Category: "Maroquinerie", Price: 25000, Currency: "FCFA", InStock: true}
	robe    = catalog.Product{ID: "p3", Name: "Robe d'été", Category: "Vêtements", Price: 18000, Currency: "FCFA", InStock: true, StockQuantity: qty(2)}
)

func TestSearchOrdersProductsBeforeChunks(t *testing.T) {
	store := &stubStore{matches: []vectorstore.Match{
		chunkMatch("guide", 0, "Guide des tailles", 0.95),
		productMatch(sac, 0.6),
		productMatch(chemise, 0.8),
		chunkMatch("guide", 1, "Entretien du coton", 0.7),
	}}
	res, err := newTestEngine(&hashEmbedder{}, store, nil).Search(context.Background(), "chemise")
	require.NoError(t, err)

	assert.Equal(t, 6, store.lastTopK)
	assert.Equal(t, []string{"product", "document_chunk"}, store.lastFilter.Types)

	require.Len(t, res.Items, 4)
	kinds := []Kind{res.Items[0].Kind, res.Items[1].Kind, res.Items[2].Kind, res.Items[3].Kind}
	assert.Equal(t, []Kind{KindProduct, KindProduct, KindDocumentChunk, KindDocumentChunk}, kinds)
	assert.Equal(t, "p1", res.Items[0].ID)
	for i := 1; i < len(res.Items); i++ {
		if res.Items[i].Kind == res.Items[i-1].Kind {
			assert.GreaterOrEqual(t, res.Items[i-1].Score, res.Items[i].Score)
		}
	}
}

func TestSearchAvailability(t *testing.T) {
	outOfStock := catalog.Product{ID: "x1", Name: "Chemise rouge", Price: 1, InStock: false, ImageURL: "img"}
	soldOut := catalog.Product{ID: "x2", Name: "Chemise verte", Price: 1, InStock: true, StockQuantity: qty(0), ImageURL: "img"}
	store := &stubStore{matches: []vectorstore.Match{
		productMatch(outOfStock, 0.99),
		productMatch(soldOut, 0.98),
		productMatch(chemise, 0.5),
	}}
	res, err := newTestEngine(&hashEmbedder{}, store, nil).Search(context.Background(), "chemise")
	require.NoError(t, err)

	products := res.Products()
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
}

func TestSearchDropsMalformedAndDuplicateRecords(t *testing.T) {
	badPrice := productMatch(sac, 0.9)
	badPrice.Metadata["price"] = "cher"
	noName := productMatch(robe, 0.85)
	noName.Metadata["name"] = ""
	badChunk := vectorstore.Match{ID: "c?", Score: 0.9, Metadata: map[string]any{"type": "document_chunk", "text": "orphan"}}

	store := &stubStore{matches: []vectorstore.Match{
		badPrice, noName, badChunk,
		productMatch(chemise, 0.8),
		productMatch(chemise, 0.7),
	}}
	res, err := newTestEngine(&hashEmbedder{}, store, nil).Search(context.Background(), "chemise")
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "p1", res.Items[0].ID)
	assert.Equal(t, 0.8, res.Items[0].Score)
}

func TestSearchThresholdAndTopK(t *testing.T) {
	store := &stubStore{matches: []vectorstore.Match{
		productMatch(chemise, 0.9),
		productMatch(robe, 0.8),
		productMatch(sac, 0.2),
	}}
	e := newTestEngine(&hashEmbedder{}, store, nil)

	res, err := e.Search(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, res.Products(), 2)

	res, err = e.Search(context.Background(), "x", WithTopK(1), WithScoreThreshold(0))
	require.NoError(t, err)
	assert.Equal(t, 2, store.lastTopK)
	require.Len(t, res.Products(), 1)
	assert.Equal(t, "p1", res.Products()[0].ID)
}

func TestSearchAnnotatesIntent(t *testing.T) {
	emb := &hashEmbedder{}
	_, err := newTestEngine(emb, &stubStore{}, nil).Search(context.Background(), "chemise", WithIntent("product_search"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Intent: product_search. chemise"}, emb.texts)
}

func TestSearchEmbeddingFailure(t *testing.T) {
	e := newTestEngine(failingEmbedder{}, &stubStore{}, nil)

	_, err := e.Search(context.Background(), "chemise")
	assert.Error(t, err)
	assert.True(t, e.LexicalSearch(context.Background(), "chemise", "").Empty())
	assert.Equal(t, "", e.SearchProductsAsText(context.Background(), "chemise"))
}

func TestLexicalSearchFiltersUnrelatedMatches(t *testing.T) {
	store := &stubStore{matches: []vectorstore.Match{
		productMatch(chemise, 0.7),
		productMatch(sac, 0.69),
		chunkMatch("guide", 0, "Nos chemises sont en coton bio.", 0.6),
		chunkMatch("cgv", 0, "Livraison sous 48 heures à Dakar.", 0.55),
	}}
	e := newTestEngine(&hashEmbedder{}, store, nil)

	res := e.LexicalSearch(context.Background(), "je cherche une chemise", "")
	require.Len(t, res.Items, 2)
	assert.Equal(t, "p1", res.Items[0].ID)
	assert.Equal(t, KindDocumentChunk, res.Items[1].Kind)
	assert.Equal(t, "guide", res.Items[1].Chunk.DocumentID)

	text := e.SearchProductsAsText(context.Background(), "je cherche une chemise")
	assert.Contains(t, text, "- Chemise bleue | Vêtements | 12000 FCFA")
	assert.Contains(t, text, "[guide.pdf, extrait 1/3] Nos chemises")
	assert.NotContains(t, text, "Sac")
}

func TestSearchProductImageSkipsProductsWithoutImage(t *testing.T) {
	noImage := catalog.Product{ID: "p9", Name: "Chemise blanche", Category: "Vêtements", Price: 9000, InStock: true}
	store := &stubStore{matches: []vectorstore.Match{
		productMatch(noImage, 0.99),
		productMatch(chemise, 0.6),
	}}
	p, ok := newTestEngine(&hashEmbedder{}, store, nil).SearchProductImage(context.Background(), "chemise")
	require.True(t, ok)
	assert.Equal(t, "p1", p.ID)
}

func TestSearchProductImageNeverReturnsImagelessProduct(t *testing.T) {
	noImage := catalog.Product{ID: "p9", Name: "Chemise blanche", Category: "Vêtements", Price: 9000, InStock: true}
	store := &stubStore{matches: []vectorstore.Match{productMatch(noImage, 0.99)}}

	p, ok := newTestEngine(&hashEmbedder{}, store, []catalog.Product{noImage, sac}).SearchProductImage(context.Background(), "chemise")
	assert.False(t, ok)
	assert.Nil(t, p)
}

func TestSearchProductImageFallsBackToKeywordScan(t *testing.T) {
	e := newTestEngine(failingEmbedder{}, &stubStore{}, []catalog.Product{sac, chemise})

	p, ok := e.SearchProductImage(context.Background(), "montre-moi la chemise")
	require.True(t, ok)
	assert.Equal(t, "p1", p.ID)

	_, ok = e.SearchProductImage(context.Background(), "ordinateur portable")
	assert.False(t, ok)
}

func TestSimilarProducts(t *testing.T) {
	e := newTestEngine(failingEmbedder{}, &stubStore{}, []catalog.Product{chemise, sac, robe})

	similar := e.SimilarProducts(context.Background(), &chemise, 3)
	require.Len(t, similar, 1)
	assert.Equal(t, "p3", similar[0].ID)
}

func TestCatalogScenarioEndToEnd(t *testing.T) {
	emb := &hashEmbedder{}
	store := memory.New()
	products := []catalog.Product{chemise, sac, robe}
	e := newTestEngine(emb, store, products)

	n, err := e.IndexCatalog(context.Background(), append(products, catalog.Product{ID: "", Name: "invalid"}))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	res, err := e.Search(context.Background(), "chemise")
	require.NoError(t, err)
	require.NotEmpty(t, res.Items)
	assert.Equal(t, "p1", res.Items[0].ID)
	assert.Equal(t, KindProduct, res.Items[0].Kind)
}

func TestReindexDropsRemovedProducts(t *testing.T) {
	store := memory.New()
	e := newTestEngine(&hashEmbedder{}, store, nil)
	ctx := context.Background()

	_, err := e.IndexDocument(ctx, DocumentInput{ID: "doc1", Filename: "faq.pdf", Text: "Le sac se nettoie au chiffon."})
	require.NoError(t, err)
	_, err = e.IndexCatalog(ctx, []catalog.Product{chemise, sac})
	require.NoError(t, err)

	n, err := e.IndexCatalog(ctx, []catalog.Product{chemise})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Products: 1, DocumentChunks: 1}, stats)

	res, err := e.Search(ctx, "sac à main")
	require.NoError(t, err)
	for _, p := range res.Products() {
		assert.NotEqual(t, "p2", p.ID)
	}

	n, err = e.IndexCatalog(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	stats, err = e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Products: 0, DocumentChunks: 1}, stats)
}

func TestDocumentsGroupsChunks(t *testing.T) {
	store := memory.New()
	e := newTestEngine(&hashEmbedder{}, store, nil)
	ctx := context.Background()

	long := strings.Repeat("Livraison gratuite dès 20000 FCFA. ", 40)
	_, err := e.IndexDocument(ctx, DocumentInput{ID: "old", Filename: "livraison.pdf", DocumentType: "pdf_document", Text: long, UploadedBy: "admin-1", UploadedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	_, err = e.IndexDocument(ctx, DocumentInput{ID: "new", Filename: "retours.txt", Text: "Retours sous 14 jours.", UploadedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	_, err = e.IndexCatalog(ctx, []catalog.Product{chemise})
	require.NoError(t, err)

	docs, err := e.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "new", docs[0].DocumentID)
	assert.Equal(t, "retours.txt", docs[0].Filename)
	assert.Equal(t, 1, docs[0].Chunks)

	assert.Equal(t, "old", docs[1].DocumentID)
	assert.Equal(t, "pdf_document", docs[1].DocumentType)
	assert.Equal(t, "admin-1", docs[1].UploadedBy)
	assert.Greater(t, docs[1].Chunks, 1)
}

func TestIndexAndDeleteDocument(t *testing.T) {
	store := memory.New()
	e := newTestEngine(&hashEmbedder{}, store, nil)
	ctx := context.Background()

	text := strings.Repeat("Les chemises se lavent à 30 degrés. ", 40)
	n, err := e.IndexDocument(ctx, DocumentInput{ID: "doc1", Filename: "entretien.pdf", Text: text})
	require.NoError(t, err)
	assert.Greater(t, n, 1)

	again, err := e.IndexDocument(ctx, DocumentInput{ID: "doc1", Filename: "entretien.pdf", Text: "Court."})
	require.NoError(t, err)
	assert.Equal(t, 1, again)

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Products: 0, DocumentChunks: 1}, stats)

	deleted, err := e.DeleteDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = e.IndexDocument(ctx, DocumentInput{ID: "doc2", Text: "   "})
	assert.Error(t, err)
}
