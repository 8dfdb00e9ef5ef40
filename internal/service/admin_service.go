package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"smartshop-be/internal/dto"
	"smartshop-be/internal/pkg/logger"
	"smartshop-be/pkg/retrieval"

	"github.com/google/uuid"
)

const defaultLogLimit = 100

// SearchIndex is the part of the retrieval engine the back office drives.
type SearchIndex interface {
	Search(ctx context.Context, query string, opts ...retrieval.SearchOption) (retrieval.Result, error)
	SearchProductsAsText(ctx context.Context, query string) string
	DeleteDocument(ctx context.Context, documentID string) (int, error)
	Documents(ctx context.Context) ([]retrieval.DocumentSummary, error)
	Stats(ctx context.Context) (retrieval.Stats, error)
}

type IAdminService interface {
	ReindexCatalog(ctx context.Context) (*dto.ReindexResponse, error)
	UploadDocument(ctx context.Context, req *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error)
	DeleteDocument(ctx context.Context, documentId string) (*dto.DeleteDocumentResponse, error)
	ListDocuments(ctx context.Context) (*dto.DocumentListResponse, error)
	SearchTest(ctx context.Context, req *dto.SearchTestRequest) (*dto.SearchTestResponse, error)
	Stats(ctx context.Context) (*retrieval.Stats, error)
	Usage(ctx context.Context) *dto.UsageReportResponse
	ResetUsage(ctx context.Context) *dto.UsageResetResponse
	Models(ctx context.Context) (*dto.ModelsResponse, error)
	SwitchModel(ctx context.Context, req *dto.SwitchModelRequest) (*dto.ActiveModelResponse, error)
	Logs(ctx context.Context, q *dto.LogQuery) ([]logger.LogEntry, error)
}

type adminService struct {
	jobs      IPublisherService
	index     SearchIndex
	usage     IUsageService
	models    IModelService
	logReader logger.LogReader
	logger    logger.ILogger
}

// NewAdminService builds the back office. models and logReader may be nil.
func NewAdminService(
	jobs IPublisherService,
	index SearchIndex,
	usage IUsageService,
	models IModelService,
	logReader logger.LogReader,
	log logger.ILogger,
) IAdminService {
	return &adminService{
		jobs:      jobs,
		index:     index,
		usage:     usage,
		models:    models,
		logReader: logReader,
		logger:    log,
	}
}

func (s *adminService) enqueue(ctx context.Context, job dto.IndexJobMessage) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := s.jobs.Publish(ctx, payload); err != nil {
		return fmt.Errorf("enqueue %s job: %w", job.Kind, err)
	}
	s.logger.Info(indexerModule, "Index job queued", map[string]interface{}{
		"job_id":      job.JobId,
		"kind":        job.Kind,
		"document_id": job.DocumentId,
	})
	return nil
}

func (s *adminService) ReindexCatalog(ctx context.Context) (*dto.ReindexResponse, error) {
	job := dto.IndexJobMessage{JobId: uuid.NewString(), Kind: dto.IndexJobCatalog}
	if err := s.enqueue(ctx, job); err != nil {
		return nil, err
	}
	return &dto.ReindexResponse{JobId: job.JobId}, nil
}

func (s *adminService) UploadDocument(ctx context.Context, req *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &Error{Status: http.StatusBadRequest, Message: "document text is empty"}
	}
	docType := req.DocumentType
	if docType == "" {
		docType = "pdf_document"
	}
	job := dto.IndexJobMessage{
		JobId:        uuid.NewString(),
		Kind:         dto.IndexJobDocument,
		DocumentId:   uuid.NewString(),
		Filename:     req.Filename,
		DocumentType: docType,
		Text:         req.Text,
		UploadedBy:   req.UploadedBy,
	}
	if err := s.enqueue(ctx, job); err != nil {
		return nil, err
	}
	return &dto.UploadDocumentResponse{DocumentId: job.DocumentId, JobId: job.JobId}, nil
}

func (s *adminService) DeleteDocument(ctx context.Context, documentId string) (*dto.DeleteDocumentResponse, error) {
	n, err := s.index.DeleteDocument(ctx, documentId)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, &Error{Status: http.StatusNotFound, Message: "document not found"}
	}
	s.logger.Info(indexerModule, "Document deleted", map[string]interface{}{"document_id": documentId, "chunks": n})
	return &dto.DeleteDocumentResponse{DocumentId: documentId, DeletedChunks: n}, nil
}

func (s *adminService) ListDocuments(ctx context.Context) (*dto.DocumentListResponse, error) {
	docs, err := s.index.Documents(ctx)
	if err != nil {
		return nil, err
	}
	res := &dto.DocumentListResponse{Documents: docs, Total: len(docs)}
	if res.Documents == nil {
		res.Documents = []retrieval.DocumentSummary{}
	}
	for _, d := range docs {
		res.TotalChunks += d.Chunks
	}
	return res, nil
}

func (s *adminService) SearchTest(ctx context.Context, req *dto.SearchTestRequest) (*dto.SearchTestResponse, error) {
	var opts []retrieval.SearchOption
	if req.TopK > 0 {
		opts = append(opts, retrieval.WithTopK(req.TopK))
	}
	result, err := s.index.Search(ctx, req.Query, opts...)
	if err != nil {
		return nil, err
	}
	items := result.Items
	if items == nil {
		items = []retrieval.Item{}
	}
	return &dto.SearchTestResponse{
		Query:    req.Query,
		Items:    items,
		Products: len(result.Products()),
		Chunks:   len(result.Chunks()),
		Context:  s.index.SearchProductsAsText(ctx, req.Query),
	}, nil
}

func (s *adminService) Stats(ctx context.Context) (*retrieval.Stats, error) {
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *adminService) Usage(ctx context.Context) *dto.UsageReportResponse {
	return s.usage.Report()
}

func (s *adminService) ResetUsage(ctx context.Context) *dto.UsageResetResponse {
	return &dto.UsageResetResponse{ResetAt: s.usage.Reset()}
}

func (s *adminService) Models(ctx context.Context) (*dto.ModelsResponse, error) {
	if s.models == nil {
		return nil, &Error{Status: http.StatusNotImplemented, Message: "model switching is disabled"}
	}
	return s.models.Models(ctx), nil
}

func (s *adminService) SwitchModel(ctx context.Context, req *dto.SwitchModelRequest) (*dto.ActiveModelResponse, error) {
	if s.models == nil {
		return nil, &Error{Status: http.StatusNotImplemented, Message: "model switching is disabled"}
	}
	return s.models.SwitchModel(ctx, req)
}

func (s *adminService) Logs(ctx context.Context, q *dto.LogQuery) ([]logger.LogEntry, error) {
	if s.logReader == nil {
		return []logger.LogEntry{}, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}
	return s.logReader.RecentLogs(q.Level, limit)
}
