package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/embedding"
	"smartshop-be/pkg/utils"
	"smartshop-be/pkg/vectorstore"

	"golang.org/x/sync/errgroup"
)

const (
	chunkSize     = 500
	chunkOverlap  = 100
	embedParallel = 4
	upsertBatch   = 50
)

type DocumentInput struct {
	ID           string
	Filename     string
	DocumentType string
	Text         string
	UploadedBy   string
	UploadedAt   time.Time
}

func (e *Engine) embedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedParallel)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, e.cfg.EmbedTimeout)
			defer cancel()
			vec, err := e.embedder.Embed(cctx, text, embedding.ModePassage)
			if err != nil {
				return fmt.Errorf("embed passage %d: %w", i, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (e *Engine) upsert(ctx context.Context, items []vectorstore.Item) error {
	for start := 0; start < len(items); start += upsertBatch {
		end := start + upsertBatch
		if end > len(items) {
			end = len(items)
		}
		if err := e.store.Upsert(ctx, items[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// IndexCatalog embeds every valid product and removes indexed products that
// are no longer in the list. Invalid products are skipped and logged. It
// returns the number of indexed products.
func (e *Engine) IndexCatalog(ctx context.Context, products []catalog.Product) (int, error) {
	valid := make([]catalog.Product, 0, len(products))
	texts := make([]string, 0, len(products))
	for _, p := range products {
		if err := p.Validate(); err != nil {
			e.logger.Warn(module, "Skipping invalid product", map[string]interface{}{"id": p.ID, "error": err.Error()})
			continue
		}
		valid = append(valid, p)
		texts = append(texts, p.EmbeddingText())
	}

	vectors, err := e.embedPassages(ctx, texts)
	if err != nil {
		return 0, err
	}

	items := make([]vectorstore.Item, len(valid))
	keep := make([]string, len(valid))
	for i, p := range valid {
		keep[i] = productItemID(p.ID)
		items[i] = vectorstore.Item{ID: keep[i], Vector: vectors[i], Metadata: productMetadata(p)}
	}
	if err := e.upsert(ctx, items); err != nil {
		return 0, fmt.Errorf("upsert products: %w", err)
	}

	removed, err := e.store.Delete(ctx, vectorstore.Filter{Types: []string{vectorstore.TypeProduct}, ExcludeIDs: keep})
	if err != nil {
		return 0, fmt.Errorf("drop stale products: %w", err)
	}

	e.logger.Info(module, "Catalog indexed", map[string]interface{}{
		"products": len(items),
		"skipped":  len(products) - len(items),
		"removed":  removed,
	})
	return len(items), nil
}

// IndexDocument splits the document text into overlapping chunks and indexes
// them. Re-indexing a document id replaces its chunks.
func (e *Engine) IndexDocument(ctx context.Context, doc DocumentInput) (int, error) {
	if doc.ID == "" {
		return 0, fmt.Errorf("document id is empty")
	}
	pieces := utils.SplitText(doc.Text, chunkSize, chunkOverlap)
	if len(pieces) == 0 {
		return 0, fmt.Errorf("document %s has no text", doc.ID)
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}

	vectors, err := e.embedPassages(ctx, pieces)
	if err != nil {
		return 0, err
	}

	if _, err := e.store.Delete(ctx, vectorstore.Filter{DocumentID: doc.ID}); err != nil {
		return 0, fmt.Errorf("drop previous chunks: %w", err)
	}

	items := make([]vectorstore.Item, len(pieces))
	for i, text := range pieces {
		c := catalog.DocumentChunk{
			DocumentID:   doc.ID,
			ChunkIndex:   i,
			TotalChunks:  len(pieces),
			Text:         text,
			Filename:     doc.Filename,
			DocumentType: doc.DocumentType,
			UploadedAt:   doc.UploadedAt,
			UploadedBy:   doc.UploadedBy,
		}
		items[i] = vectorstore.Item{ID: c.Key(), Vector: vectors[i], Metadata: chunkMetadata(c)}
	}
	if err := e.upsert(ctx, items); err != nil {
		return 0, fmt.Errorf("upsert chunks: %w", err)
	}

	e.logger.Info(module, "Document indexed", map[string]interface{}{"document_id": doc.ID, "filename": doc.Filename, "chunks": len(items)})
	return len(items), nil
}

func (e *Engine) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	n, err := e.store.Delete(ctx, vectorstore.Filter{DocumentID: documentID, Types: []string{vectorstore.TypeDocumentChunk}})
	if err != nil {
		return 0, fmt.Errorf("delete document %s: %w", documentID, err)
	}
	return n, nil
}

// DocumentSummary is one uploaded document as seen from the index.
type DocumentSummary struct {
	DocumentID   string `json:"document_id"`
	Filename     string `json:"filename"`
	DocumentType string `json:"document_type"`
	UploadedAt   string `json:"uploaded_at,omitempty"`
	UploadedBy   string `json:"uploaded_by,omitempty"`
	Chunks       int    `json:"chunks"`
}

// Documents groups the indexed chunks by document, newest upload first.
func (e *Engine) Documents(ctx context.Context) ([]DocumentSummary, error) {
	matches, err := e.store.List(ctx, &vectorstore.Filter{Types: []string{vectorstore.TypeDocumentChunk}})
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	byID := make(map[string]*DocumentSummary)
	for _, m := range matches {
		id, _ := m.Metadata[vectorstore.MetaDocumentID].(string)
		if id == "" {
			continue
		}
		doc, ok := byID[id]
		if !ok {
			doc = &DocumentSummary{DocumentID: id}
			doc.Filename, _ = m.Metadata["filename"].(string)
			doc.DocumentType, _ = m.Metadata["document_type"].(string)
			doc.UploadedAt, _ = m.Metadata["uploaded_at"].(string)
			doc.UploadedBy, _ = m.Metadata["uploaded_by"].(string)
			byID[id] = doc
		}
		doc.Chunks++
	}

	docs := make([]DocumentSummary, 0, len(byID))
	for _, d := range byID {
		docs = append(docs, *d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UploadedAt != docs[j].UploadedAt {
			return docs[i].UploadedAt > docs[j].UploadedAt
		}
		return docs[i].DocumentID < docs[j].DocumentID
	})
	return docs, nil
}

type Stats struct {
	Products       int `json:"products"`
	DocumentChunks int `json:"document_chunks"`
}

func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	products, err := e.store.Count(ctx, &vectorstore.Filter{Types: []string{vectorstore.TypeProduct}})
	if err != nil {
		return Stats{}, err
	}
	chunks, err := e.store.Count(ctx, &vectorstore.Filter{Types: []string{vectorstore.TypeDocumentChunk}})
	if err != nil {
		return Stats{}, err
	}
	return Stats{Products: products, DocumentChunks: chunks}, nil
}
