package catalog

import (
	"fmt"
	"time"
)

// MaxChunkText bounds the chunk text kept in index metadata.
const MaxChunkText = 1000

type DocumentChunk struct {
	DocumentID   string    `json:"document_id"`
	ChunkIndex   int       `json:"chunk_index"`
	TotalChunks  int       `json:"total_chunks"`
	Text         string    `json:"text"`
	Filename     string    `json:"filename"`
	DocumentType string    `json:"document_type,omitempty"`
	UploadedAt   time.Time `json:"uploaded_at,omitempty"`
	UploadedBy   string    `json:"uploaded_by,omitempty"`
}

// Key identifies the chunk inside the vector index.
func (c DocumentChunk) Key() string {
	return fmt.Sprintf("doc_%s_chunk_%d", c.DocumentID, c.ChunkIndex)
}
