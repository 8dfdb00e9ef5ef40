package contract

import (
	"context"

	"smartshop-be/internal/repository/specification"
	"smartshop-be/pkg/catalog"
)

type ProductRepository interface {
	Upsert(ctx context.Context, products []catalog.Product) error
	Delete(ctx context.Context, id string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*catalog.Product, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]catalog.Product, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
