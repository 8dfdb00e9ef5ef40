// Package pgvector keeps vectors in postgres next to the catalog tables.
package pgvector

import (
	"context"
	"fmt"
	"time"

	"smartshop-be/pkg/vectorstore"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VectorRecord struct {
	ID         string            `gorm:"column:id;primaryKey"`
	Kind       string            `gorm:"column:kind;index"`
	DocumentID string            `gorm:"column:document_id;index"`
	Embedding  pgvector.Vector   `gorm:"column:embedding;type:vector"`
	Metadata   datatypes.JSONMap `gorm:"column:metadata;type:jsonb"`
	UpdatedAt  time.Time         `gorm:"column:updated_at"`
}

func (VectorRecord) TableName() string {
	return "vector_records"
}

type Store struct {
	db *gorm.DB
}

var _ vectorstore.Store = &Store{}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&VectorRecord{})
}

func (s *Store) scoped(ctx context.Context, filter *vectorstore.Filter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&VectorRecord{})
	if filter == nil {
		return q
	}
	if len(filter.Types) > 0 {
		q = q.Where("kind IN ?", filter.Types)
	}
	if filter.DocumentID != "" {
		q = q.Where("document_id = ?", filter.DocumentID)
	}
	if len(filter.ExcludeIDs) > 0 {
		q = q.Where("id NOT IN ?", filter.ExcludeIDs)
	}
	return q
}

func (s *Store) Upsert(ctx context.Context, items []vectorstore.Item) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now()
	records := make([]VectorRecord, 0, len(items))
	for _, it := range items {
		kind, _ := it.Metadata[vectorstore.MetaType].(string)
		docID, _ := it.Metadata[vectorstore.MetaDocumentID].(string)
		records = append(records, VectorRecord{
			ID:         it.ID,
			Kind:       kind,
			DocumentID: docID,
			Embedding:  pgvector.NewVector(it.Vector),
			Metadata:   datatypes.JSONMap(it.Metadata),
			UpdatedAt:  now,
		})
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		CreateInBatches(records, 100).Error
	if err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	return nil
}

type scoredRow struct {
	ID       string
	Metadata datatypes.JSONMap
	Score    float64
}

func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter *vectorstore.Filter) ([]vectorstore.Match, error) {
	var rows []scoredRow
	err := s.scoped(ctx, filter).
		Select("id, metadata, 1 - (embedding <=> ?) AS score", pgvector.NewVector(vector)).
		Order("score DESC").
		Limit(topK).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}

	matches := make([]vectorstore.Match, len(rows))
	for i, r := range rows {
		matches[i] = vectorstore.Match{ID: r.ID, Score: r.Score, Metadata: map[string]any(r.Metadata)}
	}
	return matches, nil
}

func (s *Store) Delete(ctx context.Context, filter vectorstore.Filter) (int, error) {
	q := s.scoped(ctx, &filter)
	if len(filter.Types) == 0 && filter.DocumentID == "" && len(filter.ExcludeIDs) == 0 {
		q = q.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	res := q.Delete(&VectorRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete vectors: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func (s *Store) Count(ctx context.Context, filter *vectorstore.Filter) (int, error) {
	var n int64
	if err := s.scoped(ctx, filter).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return int(n), nil
}

type listedRow struct {
	ID       string
	Metadata datatypes.JSONMap
}

func (s *Store) List(ctx context.Context, filter *vectorstore.Filter) ([]vectorstore.Match, error) {
	var rows []listedRow
	if err := s.scoped(ctx, filter).Select("id, metadata").Order("id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list vectors: %w", err)
	}
	matches := make([]vectorstore.Match, len(rows))
	for i, r := range rows {
		matches[i] = vectorstore.Match{ID: r.ID, Metadata: map[string]any(r.Metadata)}
	}
	return matches, nil
}
