package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qty(n int) *int { return &n }

func TestProductOfferable(t *testing.T) {
	tests := []struct {
		name    string
		product Product
		want    bool
	}{
		{"in stock without quantity", Product{InStock: true}, true},
		{"in stock with quantity", Product{InStock: true, StockQuantity: qty(4)}, true},
		{"in stock with zero quantity", Product{InStock: true, StockQuantity: qty(0)}, false},
		{"out of stock", Product{InStock: false, StockQuantity: qty(10)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.product.Offerable())
		})
	}
}

func TestRenderContext(t *testing.T) {
	out := RenderContext([]Product{{Name: "Chemise bleue", Category: "Vêtements", Price: 12000, Currency: "FCFA", Description: "Coton"}})
	assert.Equal(t, "- Chemise bleue | Vêtements | 12000 FCFA\n  Description: Coton", out)
	assert.Equal(t, "Aucun produit trouvé.", RenderContext(nil))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "12000 FCFA", FormatPrice(12000, "FCFA"))
	assert.Equal(t, "9.99 EUR", FormatPrice(9.99, "EUR"))
	assert.Equal(t, "5", FormatPrice(5, ""))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "products.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"products":[{"id":"p1","name":"Chemise bleue","price":12000,"in_stock":true}]}`), 0o644))

	yamlPath := filepath.Join(dir, "products.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("- id: p2\n  name: Sac\n  price: 5000\n  in_stock: true\n  stock_quantity: 0\n"), 0o644))

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`[{"id":"p3","name":"X","price":-1}]`), 0o644))

	products, err := LoadFile(jsonPath)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)

	products, err = LoadFile(yamlPath)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.NotNil(t, products[0].StockQuantity)
	assert.False(t, products[0].Offerable())

	_, err = LoadFile(badPath)
	assert.Error(t, err)
}

func TestFileStoreFindByID(t *testing.T) {
	store := NewStaticStore([]Product{{ID: "p1", Name: "Chemise bleue"}})

	p, err := store.FindByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Chemise bleue", p.Name)

	_, err = store.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}
