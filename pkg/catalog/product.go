// Package catalog holds the two corpora the assistant retrieves from:
// structured products and free-text document chunks.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrProductNotFound = errors.New("product not found")

type Product struct {
	ID            string  `json:"id" yaml:"id"`
	Name          string  `json:"name" yaml:"name"`
	Category      string  `json:"category" yaml:"category"`
	Description   string  `json:"description" yaml:"description"`
	Price         float64 `json:"price" yaml:"price"`
	Currency      string  `json:"currency" yaml:"currency"`
	InStock       bool    `json:"in_stock" yaml:"in_stock"`
	StockQuantity *int    `json:"stock_quantity,omitempty" yaml:"stock_quantity,omitempty"`
	ImageURL      string  `json:"image_url,omitempty" yaml:"image_url,omitempty"`
}

// Offerable reports whether the product may be proposed to a customer.
func (p Product) Offerable() bool {
	return p.InStock && (p.StockQuantity == nil || *p.StockQuantity > 0)
}

func (p Product) HasImage() bool {
	return strings.TrimSpace(p.ImageURL) != ""
}

// EmbeddingText is the passage indexed for the product.
func (p Product) EmbeddingText() string {
	return fmt.Sprintf("%s. %s. %s", p.Name, p.Description, p.Category)
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("product id is empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product %s: name is empty", p.ID)
	}
	if p.Price < 0 {
		return fmt.Errorf("product %s: negative price", p.ID)
	}
	if p.StockQuantity != nil && *p.StockQuantity < 0 {
		return fmt.Errorf("product %s: negative stock quantity", p.ID)
	}
	return nil
}

func FilterOfferable(products []Product) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Offerable() {
			out = append(out, p)
		}
	}
	return out
}

// FormatPrice renders a price without decimals when it is a whole amount.
func FormatPrice(price float64, currency string) string {
	var amount string
	if price == float64(int64(price)) {
		amount = fmt.Sprintf("%d", int64(price))
	} else {
		amount = fmt.Sprintf("%.2f", price)
	}
	if currency == "" {
		return amount
	}
	return amount + " " + currency
}

// RenderContext renders products as the bullet list handed to the LLM.
func RenderContext(products []Product) string {
	if len(products) == 0 {
		return "Aucun produit trouvé."
	}
	var b strings.Builder
	for i, p := range products {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s | %s | %s", p.Name, p.Category, FormatPrice(p.Price, p.Currency))
		if p.Description != "" {
			fmt.Fprintf(&b, "\n  Description: %s", p.Description)
		}
	}
	return b.String()
}

// Store is the read-only catalog the assistant indexes and looks products up in.
type Store interface {
	All(ctx context.Context) ([]Product, error)
	FindByID(ctx context.Context, id string) (*Product, error)
}
