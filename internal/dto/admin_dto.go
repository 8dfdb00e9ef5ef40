package dto

import (
	"time"

	"smartshop-be/pkg/retrieval"
)

type ReindexResponse struct {
	JobId string `json:"job_id"`
}

type UploadDocumentRequest struct {
	Filename     string `json:"filename" validate:"required,max=255"`
	Text         string `json:"text" validate:"required"`
	DocumentType string `json:"document_type,omitempty" validate:"max=64"`
	UploadedBy   string `json:"uploaded_by,omitempty" validate:"max=128"`
}

type UploadDocumentResponse struct {
	DocumentId string `json:"document_id"`
	JobId      string `json:"job_id"`
}

type DeleteDocumentResponse struct {
	DocumentId    string `json:"document_id"`
	DeletedChunks int    `json:"deleted_chunks"`
}

type DocumentListResponse struct {
	Documents   []retrieval.DocumentSummary `json:"documents"`
	Total       int                         `json:"total"`
	TotalChunks int                         `json:"total_chunks"`
}

type SearchTestRequest struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"top_k,omitempty" validate:"omitempty,min=1,max=50"`
}

type SearchTestResponse struct {
	Query    string           `json:"query"`
	Items    []retrieval.Item `json:"items"`
	Products int              `json:"products"`
	Chunks   int              `json:"chunks"`
	Context  string           `json:"context"`
}

// Note: log ids are md5 hashes of the raw line, not uuids
type LogQuery struct {
	Level string `query:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=1000"`
}

type ModelUsage struct {
	Model            string  `json:"model"`
	Provider         string  `json:"provider"`
	Calls            int     `json:"calls"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

type UsageReportResponse struct {
	Models           []ModelUsage `json:"models"`
	TotalCalls       int          `json:"total_calls"`
	TotalTokens      int          `json:"total_tokens"`
	EstimatedCostUSD float64      `json:"estimated_cost_usd"`
	Since            time.Time    `json:"since"`
}

type UsageResetResponse struct {
	ResetAt time.Time `json:"reset_at"`
}

type ModelInfo struct {
	Id              string  `json:"id"`
	Name            string  `json:"name"`
	Provider        string  `json:"provider"`
	CostPer1MTokens float64 `json:"cost_per_1m_tokens"`
	Speed           string  `json:"speed"`
	Quality         string  `json:"quality"`
	Description     string  `json:"description"`
}

type ActiveModelResponse struct {
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	Name          string    `json:"name,omitempty"`
	SupportsTools bool      `json:"supports_tools"`
	SwitchedAt    time.Time `json:"switched_at"`
}

type ModelsResponse struct {
	Active    ActiveModelResponse    `json:"active"`
	Providers map[string][]ModelInfo `json:"providers"`
}

type SwitchModelRequest struct {
	Provider string `json:"provider" validate:"required,max=32"`
	Model    string `json:"model" validate:"required,max=128"`
}

const (
	IndexJobCatalog  = "catalog"
	IndexJobDocument = "document"
)

// IndexJobMessage travels on the indexing topic.
type IndexJobMessage struct {
	JobId        string `json:"job_id"`
	Kind         string `json:"kind"`
	DocumentId   string `json:"document_id,omitempty"`
	Filename     string `json:"filename,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	Text         string `json:"text,omitempty"`
	UploadedBy   string `json:"uploaded_by,omitempty"`
}
