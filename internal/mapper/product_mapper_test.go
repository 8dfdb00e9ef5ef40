package mapper

import (
	"testing"

	"smartshop-be/pkg/catalog"

	"github.com/stretchr/testify/assert"
)

func TestProductMapperKeepsStockQuantity(t *testing.T) {
	m := NewProductMapper()
	qty := 3
	p := &catalog.Product{ID: "p1", Name: "Chemise", Price: 12000, Currency: "FCFA", InStock: true, StockQuantity: &qty, ImageURL: "https://img/p1.jpg"}

	back := m.ToEntity(m.ToModel(p))

	assert.Equal(t, p, back)
	qty = 0
	assert.Equal(t, 3, *back.StockQuantity)
}

func TestProductMapperNil(t *testing.T) {
	m := NewProductMapper()
	assert.Nil(t, m.ToEntity(nil))
	assert.Nil(t, m.ToModel(nil))
}
