package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartshop-be/internal/dto"
	"smartshop-be/internal/pkg/logger"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/retrieval"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

const indexerModule = "INDEXER"

var errUnknownJob = errors.New("unknown index job kind")

// Indexer writes catalog products and documents into the vector store.
type Indexer interface {
	IndexCatalog(ctx context.Context, products []catalog.Product) (int, error)
	IndexDocument(ctx context.Context, doc retrieval.DocumentInput) (int, error)
}

// reloader is implemented by file backed catalogs.
type reloader interface {
	Reload() error
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	indexer    Indexer
	catalog    catalog.Store
	logger     logger.ILogger
	timeout    time.Duration
	retry      middleware.Retry
}

type ConsumerOption func(*consumerService)

// WithRetry bounds how often a failing job is attempted again before it is
// dropped. The wait doubles after every attempt.
func WithRetry(maxRetries int, initialInterval time.Duration) ConsumerOption {
	return func(cs *consumerService) {
		cs.retry.MaxRetries = maxRetries
		cs.retry.InitialInterval = initialInterval
		if cs.retry.MaxInterval < initialInterval {
			cs.retry.MaxInterval = initialInterval
		}
	}
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	indexer Indexer,
	catalogStore catalog.Store,
	log logger.ILogger,
	opts ...ConsumerOption,
) IConsumerService {
	cs := &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		indexer:    indexer,
		catalog:    catalogStore,
		logger:     log,
		timeout:    5 * time.Minute,
		retry: middleware.Retry{
			MaxRetries:      3,
			InitialInterval: time.Second,
			MaxInterval:     30 * time.Second,
			Multiplier:      2,
			ShouldRetry: func(params middleware.RetryParams) bool {
				return !errors.Is(params.Err, errUnknownJob)
			},
		},
	}
	for _, opt := range opts {
		opt(cs)
	}
	return cs
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var job dto.IndexJobMessage
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		cs.logger.Error(indexerModule, "Failed to unmarshal index job", map[string]interface{}{"error": err.Error()})
		msg.Ack() // poison message, retrying cannot help
		return
	}

	start := time.Now()
	attempts := 0
	indexed := 0
	handler := cs.retry.Middleware(func(_ *message.Message) ([]*message.Message, error) {
		attempts++
		jobCtx, cancel := context.WithTimeout(ctx, cs.timeout)
		defer cancel()
		n, err := cs.run(jobCtx, job)
		if err != nil {
			cs.logger.Warn(indexerModule, "Index job attempt failed", map[string]interface{}{
				"job_id":  job.JobId,
				"kind":    job.Kind,
				"attempt": attempts,
				"error":   err.Error(),
			})
			return nil, err
		}
		indexed = n
		return nil, nil
	})

	// Exhausted jobs are acked and dropped, never nacked.
	if _, err := handler(msg); err != nil {
		cs.logger.Error(indexerModule, "Index job dropped", map[string]interface{}{
			"job_id":   job.JobId,
			"kind":     job.Kind,
			"attempts": attempts,
			"error":    err.Error(),
		})
		msg.Ack()
		return
	}

	cs.logger.Info(indexerModule, "Index job done", map[string]interface{}{
		"job_id":      job.JobId,
		"kind":        job.Kind,
		"document_id": job.DocumentId,
		"indexed":     indexed,
		"attempts":    attempts,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	msg.Ack()
}

func (cs *consumerService) run(ctx context.Context, job dto.IndexJobMessage) (int, error) {
	switch job.Kind {
	case dto.IndexJobCatalog:
		if r, ok := cs.catalog.(reloader); ok {
			if err := r.Reload(); err != nil {
				return 0, fmt.Errorf("reload catalog: %w", err)
			}
		}
		products, err := cs.catalog.All(ctx)
		if err != nil {
			return 0, fmt.Errorf("load catalog: %w", err)
		}
		return cs.indexer.IndexCatalog(ctx, products)
	case dto.IndexJobDocument:
		return cs.indexer.IndexDocument(ctx, retrieval.DocumentInput{
			ID:           job.DocumentId,
			Filename:     job.Filename,
			DocumentType: job.DocumentType,
			Text:         job.Text,
			UploadedBy:   job.UploadedBy,
			UploadedAt:   time.Now().UTC(),
		})
	default:
		return 0, fmt.Errorf("%w %q", errUnknownJob, job.Kind)
	}
}
