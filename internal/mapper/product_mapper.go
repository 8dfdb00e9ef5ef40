package mapper

import (
	"smartshop-be/internal/model"
	"smartshop-be/pkg/catalog"
)

type ProductMapper struct{}

func NewProductMapper() *ProductMapper {
	return &ProductMapper{}
}

func (m *ProductMapper) ToEntity(p *model.Product) *catalog.Product {
	if p == nil {
		return nil
	}
	var qty *int
	if p.StockQuantity != nil {
		q := *p.StockQuantity
		qty = &q
	}
	return &catalog.Product{
		ID:            p.Id,
		Name:          p.Name,
		Category:      p.Category,
		Description:   p.Description,
		Price:         p.Price,
		Currency:      p.Currency,
		InStock:       p.InStock,
		StockQuantity: qty,
		ImageURL:      p.ImageUrl,
	}
}

func (m *ProductMapper) ToModel(p *catalog.Product) *model.Product {
	if p == nil {
		return nil
	}
	return &model.Product{
		Id:            p.ID,
		Name:          p.Name,
		Category:      p.Category,
		Description:   p.Description,
		Price:         p.Price,
		Currency:      p.Currency,
		InStock:       p.InStock,
		StockQuantity: p.StockQuantity,
		ImageUrl:      p.ImageURL,
	}
}

func (m *ProductMapper) ToEntities(models []*model.Product) []catalog.Product {
	out := make([]catalog.Product, 0, len(models))
	for _, p := range models {
		out = append(out, *m.ToEntity(p))
	}
	return out
}
