package retrieval

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/utils"
	"smartshop-be/pkg/vectorstore"
)

func productItemID(id string) string { return "product_" + id }

func productMetadata(p catalog.Product) map[string]any {
	m := map[string]any{
		vectorstore.MetaType: vectorstore.TypeProduct,
		"product_id":         p.ID,
		"name":               p.Name,
		"category":           p.Category,
		"description":        p.Description,
		"price":              p.Price,
		"currency":           p.Currency,
		"in_stock":           p.InStock,
		"image_url":          p.ImageURL,
	}
	if p.StockQuantity != nil {
		m["stock_quantity"] = *p.StockQuantity
	}
	return m
}

type productMeta struct {
	ProductID     string   `json:"product_id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Description   string   `json:"description"`
	Price         *float64 `json:"price"`
	Currency      string   `json:"currency"`
	InStock       bool     `json:"in_stock"`
	StockQuantity *int     `json:"stock_quantity"`
	ImageURL      string   `json:"image_url"`
}

// decodeProduct rebuilds a product from index metadata. Backends hand back
// metadata with different number types, so it goes through JSON.
func decodeProduct(meta map[string]any) (*catalog.Product, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	var m productMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode product metadata: %w", err)
	}
	if m.Price == nil {
		return nil, errors.New("product metadata has no price")
	}
	p := &catalog.Product{
		ID:            m.ProductID,
		Name:          m.Name,
		Category:      m.Category,
		Description:   m.Description,
		Price:         *m.Price,
		Currency:      m.Currency,
		InStock:       m.InStock,
		StockQuantity: m.StockQuantity,
		ImageURL:      m.ImageURL,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func chunkMetadata(c catalog.DocumentChunk) map[string]any {
	return map[string]any{
		vectorstore.MetaType:       vectorstore.TypeDocumentChunk,
		vectorstore.MetaDocumentID: c.DocumentID,
		"filename":                 c.Filename,
		"document_type":            c.DocumentType,
		"chunk_index":              c.ChunkIndex,
		"total_chunks":             c.TotalChunks,
		"text":                     utils.Truncate(c.Text, catalog.MaxChunkText),
		"uploaded_at":              c.UploadedAt.UTC().Format(time.RFC3339),
		"uploaded_by":              c.UploadedBy,
	}
}

func decodeChunk(meta map[string]any) (*catalog.DocumentChunk, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	var c catalog.DocumentChunk
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode chunk metadata: %w", err)
	}
	if c.DocumentID == "" {
		return nil, errors.New("chunk metadata has no document_id")
	}
	return &c, nil
}
