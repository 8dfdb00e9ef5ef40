package implementation

import (
	"context"
	"errors"

	"smartshop-be/internal/mapper"
	"smartshop-be/internal/model"
	"smartshop-be/internal/repository/contract"
	"smartshop-be/internal/repository/specification"
	"smartshop-be/pkg/catalog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 200

type ProductRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ProductMapper
}

func NewProductRepository(db *gorm.DB) contract.ProductRepository {
	return &ProductRepositoryImpl{
		db:     db,
		mapper: mapper.NewProductMapper(),
	}
}

func (r *ProductRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ProductRepositoryImpl) Upsert(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	models := make([]*model.Product, 0, len(products))
	for i := range products {
		models = append(models, r.mapper.ToModel(&products[i]))
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "category", "description", "price", "currency",
				"in_stock", "stock_quantity", "image_url", "updated_at", "deleted_at",
			}),
		}).
		CreateInBatches(models, upsertBatchSize).Error
}

func (r *ProductRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.Product{}, "id = ?", id).Error
}

func (r *ProductRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*catalog.Product, error) {
	var m model.Product
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ProductRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]catalog.Product, error) {
	var models []*model.Product
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ProductRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Product{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ProductCatalog exposes the products table as the catalog the assistant reads.
type ProductCatalog struct {
	repo contract.ProductRepository
}

func NewProductCatalog(repo contract.ProductRepository) *ProductCatalog {
	return &ProductCatalog{repo: repo}
}

func (c *ProductCatalog) All(ctx context.Context) ([]catalog.Product, error) {
	return c.repo.FindAll(ctx, specification.OrderBy{Field: "created_at"})
}

func (c *ProductCatalog) FindByID(ctx context.Context, id string) (*catalog.Product, error) {
	p, err := c.repo.FindOne(ctx, specification.ByProductID{ID: id})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}
