package tools

import (
	"context"
	"encoding/json"
	"testing"

	"smartshop-be/internal/pkg/logger"
	"smartshop-be/pkg/agent/state"
	"smartshop-be/pkg/catalog"
	"smartshop-be/pkg/commerce"
	"smartshop-be/pkg/llm"
	"smartshop-be/pkg/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	products []catalog.Product
	queries  []string
}

func (f *fakeSearcher) LexicalSearch(ctx context.Context, query, intent string) retrieval.Result {
	f.queries = append(f.queries, query)
	var res retrieval.Result
	for _, p := range f.products {
		if p.Offerable() && retrieval.PartialRatio(query, p.Name) >= 70 {
			p := p
			res.Items = append(res.Items, retrieval.Item{Kind: retrieval.KindProduct, ID: p.ID, Score: 0.9, Product: &p})
		}
	}
	return res
}

func (f *fakeSearcher) SearchProductImage(ctx context.Context, query string) (*catalog.Product, bool) {
	for _, p := range f.products {
		if p.HasImage() && retrieval.PartialRatio(query, p.Name) >= 70 {
			p := p
			return &p, true
		}
	}
	return nil, false
}

func (f *fakeSearcher) SimilarProducts(ctx context.Context, p *catalog.Product, limit int) []catalog.Product {
	var out []catalog.Product
	for _, c := range f.products {
		if c.ID != p.ID && c.Offerable() && c.Category == p.Category && len(out) < limit {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeSearcher) FindProduct(ctx context.Context, id string) (*catalog.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

var (
	chemise = catalog.Product{ID: "p1", Name: "Chemise bleue", Category: "Vêtements", Price: 12000, Currency: "FCFA", InStock: true, ImageURL: "https://cdn/p1.jpg"}
	robe    = catalog.Product{ID: "p3", Name: "Robe d'été", Category: "Vêtements", Price: 18000, Currency: "FCFA", InStock: true}
	epuise  = catalog.Product{ID: "p4", Name: "Veste en jean", Category: "Vêtements", Price: 30000, Currency: "FCFA", InStock: false}
)

func newRegistry() (*Registry, *fakeSearcher) {
	s := &fakeSearcher{products: []catalog.Product{chemise, robe, epuise}}
	k := NewToolkit(s, commerce.ContactCard{Name: "Awa", Phone: "+221 77 000 00 00", Rating: 4})
	return NewDefault(k, logger.NewNopLogger()), s
}

func call(name, args string) llm.ToolCall {
	return llm.ToolCall{ID: "call_" + name, Name: name, Arguments: args}
}

func TestToolsDeclaration(t *testing.T) {
	r, _ := newRegistry()
	tools := r.Tools()

	names := make([]string, len(tools))
	for i, tl := range tools {
		names[i] = tl.Name
	}
	assert.Equal(t, []string{SearchProducts, SearchProductImage, RequestContact, AddProductToCart, HandlePendingChoice}, names)
	assert.Equal(t, []string{"query"}, tools[0].Parameters["required"])
	assert.NotContains(t, tools[2].Parameters, "required")
	assert.Equal(t, "object", tools[2].Parameters["type"])
}

func TestDispatchErrors(t *testing.T) {
	r, s := newRegistry()

	tests := []struct {
		name string
		call llm.ToolCall
		want string
	}{
		{"unknown tool", call("delete_catalog", `{}`), "unknown tool: delete_catalog"},
		{"missing field", call(SearchProducts, `{}`), "missing required field: query"},
		{"blank field", call(SearchProducts, `{"query": "  "}`), "missing required field: query"},
		{"malformed json degrades to empty args", call(AddProductToCart, `{"product_id": `), "missing required field: product_id"},
		{"no pending choice", call(HandlePendingChoice, `{"choice":"1"}`), "no pending choice"},
		{"absent current product", call(AddProductToCart, `{"product_id":"current_product"}`), "product not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Dispatch(context.Background(), tt.call, Context{})
			require.True(t, out.Failed())
			assert.Equal(t, tt.want, out.Error)
			assert.Equal(t, tt.call.ID, out.CallID)

			var payload map[string]string
			require.NoError(t, json.Unmarshal([]byte(out.Content()), &payload))
			assert.Equal(t, tt.want, payload["error"])
		})
	}
	assert.Empty(t, s.queries)
}

func TestSearchProducts(t *testing.T) {
	r, _ := newRegistry()

	out := r.Dispatch(context.Background(), call(SearchProducts, `{"query":"chemise"}`), Context{})
	require.False(t, out.Failed())
	require.NotNil(t, out.Product)
	assert.Equal(t, "p1", out.Product.ID)
	assert.Contains(t, out.Content(), "Chemise bleue | Vêtements | 12000 FCFA")
	assert.Contains(t, out.Content(), `"product_id":"p1"`)

	out = r.Dispatch(context.Background(), call(SearchProducts, `{"query":"veste en jean"}`), Context{})
	assert.Nil(t, out.Product)
	assert.Contains(t, out.Content(), `"count":0`)
}

func TestSearchProductImage(t *testing.T) {
	r, _ := newRegistry()

	out := r.Dispatch(context.Background(), call(SearchProductImage, `{"query":"chemise bleue"}`), Context{})
	assert.True(t, out.ImageFound)
	assert.Equal(t, "https://cdn/p1.jpg", out.Product.ImageURL)

	out = r.Dispatch(context.Background(), call(SearchProductImage, `{"query":"robe d'été"}`), Context{})
	assert.False(t, out.ImageFound)
	assert.Nil(t, out.Product)
	assert.Contains(t, out.Content(), `"found":false`)
}

func TestRequestContact(t *testing.T) {
	r, _ := newRegistry()

	out := r.Dispatch(context.Background(), call(RequestContact, ``), Context{})
	require.False(t, out.Failed())
	assert.Contains(t, out.Contact, "Awa ★★★★☆")
	assert.Contains(t, out.Contact, "+221 77 000 00 00")
}

func TestAddProductToCart(t *testing.T) {
	r, _ := newRegistry()
	current := chemise

	tests := []struct {
		name    string
		args    string
		tc      Context
		added   bool
		message string
	}{
		{"by id", `{"product_id":"p3"}`, Context{}, true, "✅ **Robe d'été** ajouté au panier."},
		{"current product ref", `{"product_id":"current_product"}`, Context{CurrentProduct: &current}, true, "✅ **Chemise bleue** ajouté au panier."},
		{"unavailable", `{"product_id":"p4"}`, Context{}, false, "Désolé, **Veste en jean** n'est plus disponible."},
		{"unknown id", `{"product_id":"nope"}`, Context{}, false, "Produit introuvable."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Dispatch(context.Background(), call(AddProductToCart, tt.args), tt.tc)
			require.NotNil(t, out.Cart)
			assert.Equal(t, tt.added, out.CartAdded())
			assert.Equal(t, tt.message, out.Cart.Message)
		})
	}
}

func TestHandlePendingChoice(t *testing.T) {
	r, _ := newRegistry()
	current := chemise
	st := state.New()
	st.SetPendingChoice(state.ChoiceProductNextStep, nil)
	tc := Context{CurrentProduct: &current, Pending: st.Pending()}

	out := r.Dispatch(context.Background(), call(HandlePendingChoice, `{"choice":1}`), tc)
	require.NotNil(t, out.Resolution)
	assert.True(t, out.Resolution.Resolved)
	assert.Equal(t, state.ActionAddToCart, out.Resolution.Action)
	assert.True(t, out.CartAdded())

	out = r.Dispatch(context.Background(), call(HandlePendingChoice, `{"choice":"voir plus"}`), tc)
	assert.Equal(t, state.ActionSeeMore, out.Resolution.Action)
	assert.Contains(t, out.Content(), "Robe d'été")
	assert.NotContains(t, out.Content(), "Veste en jean")

	out = r.Dispatch(context.Background(), call(HandlePendingChoice, `{"choice":"peut-être"}`), tc)
	assert.False(t, out.Resolution.Resolved)
	assert.False(t, out.Failed())
	assert.True(t, st.Awaiting())
}

func TestSimilarText(t *testing.T) {
	assert.Equal(t, "Je n'ai pas d'autre produit similaire à **Chemise bleue** pour le moment.", SimilarText(&chemise, nil))
	assert.Contains(t, SimilarText(&chemise, []catalog.Product{robe}), "- Robe d'été | Vêtements | 18000 FCFA")
}
