package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smartshop-be/internal/pkg/logger"
	"smartshop-be/pkg/agent/state"
	"smartshop-be/pkg/agent/suggest"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/commerce"
	"smartshop-be/pkg/retrieval"
)

const (
	SearchProducts      = "search_products"
	SearchProductImage  = "search_product_image"
	RequestContact      = "request_contact"
	AddProductToCart    = "add_product_to_cart"
	HandlePendingChoice = "handle_pending_choice"
)

// CurrentProductRef lets the LLM point add_product_to_cart at the product
// under discussion without knowing its id.
const CurrentProductRef = "current_product"

const (
	noProductText = "Aucun produit correspondant n'est disponible actuellement."
	noImageText   = "Aucune image disponible pour ce produit."
	similarLimit  = 3
)

// Searcher is the slice of the retrieval engine the tools rely on.
type Searcher interface {
	LexicalSearch(ctx context.Context, query, intent string) retrieval.Result
	SearchProductImage(ctx context.Context, query string) (*catalog.Product, bool)
	SimilarProducts(ctx context.Context, p *catalog.Product, limit int) []catalog.Product
	FindProduct(ctx context.Context, id string) (*catalog.Product, error)
}

// ProductView is the product shape shown to the LLM.
type ProductView struct {
	ID       string  `json:"product_id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
}

func viewOf(p catalog.Product) ProductView {
	return ProductView{ID: p.ID, Name: p.Name, Category: p.Category, Price: p.Price, Currency: p.Currency, ImageURL: p.ImageURL}
}

// Toolkit implements the shop tools on top of a Searcher.
type Toolkit struct {
	searcher Searcher
	contact  commerce.ContactCard
}

func NewToolkit(searcher Searcher, contact commerce.ContactCard) *Toolkit {
	return &Toolkit{searcher: searcher, contact: contact}
}

// NewDefault registers the five shop tools.
func NewDefault(k *Toolkit, log logger.ILogger) *Registry {
	r := NewRegistry(log)
	for _, s := range k.Specs() {
		r.Register(s)
	}
	return r
}

func stringParam(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func (k *Toolkit) Specs() []Spec {
	return []Spec{
		{
			Name:        SearchProducts,
			Description: "Recherche des produits disponibles dans le catalogue et dans les documents de la boutique.",
			Parameters: map[string]any{"properties": map[string]any{
				"query": stringParam("Ce que le client recherche"),
			}},
			Required: []string{"query"},
			Handler:  k.searchProducts,
		},
		{
			Name:        SearchProductImage,
			Description: "Retourne l'image d'un produit si elle est disponible.",
			Parameters: map[string]any{"properties": map[string]any{
				"query": stringParam("Nom ou description du produit"),
			}},
			Required: []string{"query"},
			Handler:  k.searchProductImage,
		},
		{
			Name:        RequestContact,
			Description: "Doit être appelée quand le client demande à parler à un agent ou veut les coordonnées du service commercial.",
			Handler:     k.requestContact,
		},
		{
			Name:        AddProductToCart,
			Description: "Ajoute un produit au panier quand le client confirme l'achat.",
			Parameters: map[string]any{"properties": map[string]any{
				"product_id": stringParam(fmt.Sprintf("Identifiant du produit, ou %q pour le produit en cours", CurrentProductRef)),
			}},
			Required: []string{"product_id"},
			Handler:  k.addProductToCart,
		},
		{
			Name:        HandlePendingChoice,
			Description: "Résout un choix en attente (1, 2, oui, non...).",
			Parameters: map[string]any{"properties": map[string]any{
				"choice": stringParam("Choix exprimé par le client (1, 2, ajouter, voir plus...)"),
			}},
			Required: []string{"choice"},
			Handler:  k.handlePendingChoice,
		},
	}
}

func (k *Toolkit) searchProducts(ctx context.Context, args map[string]any, tc Context) Outcome {
	query := StringArg(args, "query")
	res := k.searcher.LexicalSearch(ctx, query, "product_search")
	if res.Empty() {
		return Outcome{Payload: map[string]any{"query": query, "count": 0, "results": noProductText}}
	}

	products := res.Products()
	views := make([]ProductView, len(products))
	for i, p := range products {
		views[i] = viewOf(p)
	}
	out := Outcome{Payload: map[string]any{
		"query":    query,
		"count":    len(res.Items),
		"results":  retrieval.Render(res),
		"products": views,
	}}
	if len(products) == 1 {
		p := products[0]
		out.Product = &p
	}
	return out
}

func (k *Toolkit) searchProductImage(ctx context.Context, args map[string]any, tc Context) Outcome {
	p, ok := k.searcher.SearchProductImage(ctx, StringArg(args, "query"))
	if !ok {
		return Outcome{Payload: map[string]any{"found": false, "message": noImageText}}
	}
	return Outcome{
		Payload:    map[string]any{"found": true, "product": viewOf(*p)},
		Product:    p,
		ImageFound: true,
	}
}

func (k *Toolkit) requestContact(ctx context.Context, args map[string]any, tc Context) Outcome {
	text := k.contact.Format()
	return Outcome{Payload: map[string]any{"contact": text}, Contact: text, Message: text}
}

func (k *Toolkit) addProductToCart(ctx context.Context, args map[string]any, tc Context) Outcome {
	id := StringArg(args, "product_id")
	if id == CurrentProductRef || (tc.CurrentProduct != nil && id == tc.CurrentProduct.ID) {
		return k.addToCart(tc.CurrentProduct)
	}

	p, err := k.searcher.FindProduct(ctx, id)
	if err != nil && !errors.Is(err, catalog.ErrProductNotFound) {
		return failure("catalog lookup failed: %v", err)
	}
	return k.addToCart(p)
}

func (k *Toolkit) addToCart(p *catalog.Product) Outcome {
	if p == nil {
		return failure("%s", catalog.ErrProductNotFound)
	}
	res := commerce.AddProductToCart(p)
	out := Outcome{Payload: res, Cart: &res, Message: res.Message}
	if res.Success {
		out.Product = p
	}
	return out
}

func (k *Toolkit) handlePendingChoice(ctx context.Context, args map[string]any, tc Context) Outcome {
	if tc.Pending == nil {
		return failure("no pending choice")
	}
	choice := StringArg(args, "choice")
	token := choice
	if sel := suggest.ParseSelector(choice); sel.Kind == suggest.SelectorNumber || sel.Kind == suggest.SelectorKeyword {
		token = sel.Token
	}

	action, ok := tc.Pending.Lookup(token)
	if !ok {
		prompt := suggest.ProductChoicePrompt()
		return Outcome{
			Payload:    map[string]any{"resolved": false, "message": prompt},
			Resolution: &Resolution{Token: token},
			Message:    prompt,
		}
	}
	out := k.ResolveAction(ctx, action, tc.CurrentProduct)
	out.Resolution = &Resolution{Token: token, Action: action, Resolved: true}
	return out
}

// ResolveAction carries out a resolved pending choice for the current product.
func (k *Toolkit) ResolveAction(ctx context.Context, action state.Action, current *catalog.Product) Outcome {
	switch action {
	case state.ActionAddToCart:
		return k.addToCart(current)
	case state.ActionSeeMore:
		if current == nil {
			return failure("%s", catalog.ErrProductNotFound)
		}
		similar := k.searcher.SimilarProducts(ctx, current, similarLimit)
		views := make([]ProductView, len(similar))
		for i, p := range similar {
			views[i] = viewOf(p)
		}
		text := SimilarText(current, similar)
		return Outcome{
			Payload: map[string]any{"action": action, "products": views, "results": text},
			Message: text,
		}
	default:
		return failure("unsupported action: %s", action)
	}
}

// SimilarText renders the see-more answer shown to the customer.
func SimilarText(current *catalog.Product, similar []catalog.Product) string {
	if len(similar) == 0 {
		return fmt.Sprintf("Je n'ai pas d'autre produit similaire à **%s** pour le moment.", current.Name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Voici d'autres produits similaires à **%s** :\n", current.Name)
	b.WriteString(catalog.RenderContext(similar))
	return b.String()
}
