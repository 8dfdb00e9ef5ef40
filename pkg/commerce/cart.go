// Package commerce renders the cart and contact side effects of a turn.
// Persisting carts is left to the caller.
package commerce

import (
	"fmt"
	"time"

	"smartshop-be/pkg/catalog"
)

const ContactQuestion = "Voulez-vous que je vous donne le numéro d'un commercial pour bloquer votre commande ?"

type CartResult struct {
	Success         bool             `json:"success"`
	Message         string           `json:"message"`
	Error           string           `json:"error,omitempty"`
	Product         *catalog.Product `json:"product_added,omitempty"`
	SuggestContact  bool             `json:"suggest_contact,omitempty"`
	ContactQuestion string           `json:"contact_question,omitempty"`
}

type CartItem struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Quantity  int       `json:"quantity"`
	ImageURL  string    `json:"image_url,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}

// AddProductToCart validates that the product can be sold and builds the
// confirmation shown to the customer.
func AddProductToCart(p *catalog.Product) CartResult {
	if p == nil {
		return CartResult{Success: false, Error: catalog.ErrProductNotFound.Error(), Message: "Produit introuvable."}
	}
	if !p.Offerable() {
		return CartResult{
			Success: false,
			Error:   "product unavailable",
			Message: fmt.Sprintf("Désolé, **%s** n'est plus disponible.", p.Name),
		}
	}
	return CartResult{
		Success:         true,
		Message:         fmt.Sprintf("✅ **%s** ajouté au panier.", p.Name),
		Product:         p,
		SuggestContact:  true,
		ContactQuestion: ContactQuestion,
	}
}

func NewCartItem(p *catalog.Product, at time.Time) CartItem {
	return CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Currency:  p.Currency,
		Quantity:  1,
		ImageURL:  p.ImageURL,
		AddedAt:   at,
	}
}

// MergeItem adds item to items, bumping the quantity of an existing line.
func MergeItem(items []CartItem, item CartItem) []CartItem {
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Quantity += item.Quantity
			return items
		}
	}
	return append(items, item)
}

func CartTotal(items []CartItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}
