// Package intent classifies a user utterance into one of the closed set of
// shop intents. Keyword sets are checked first; only unmatched utterances
// reach the LLM.
package intent

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"smartshop-be/internal/pkg/logger"
	"smartshop-be/pkg/llm"
)

const module = "INTENT"

type Intent string

const (
	ProductSearch  Intent = "product_search"
	ProductImage   Intent = "product_image"
	RequestContact Intent = "request_contact"
	Chat           Intent = "chat"
)

// KeywordSet binds keywords to an intent. Single words match any word of the
// utterance they prefix ("produit" matches "produits"); phrases match as
// substrings of the normalized utterance.
type KeywordSet struct {
	Intent   Intent
	Keywords []string
}

// DefaultKeywordSets are checked in order: contact, product search, image.
func DefaultKeywordSets() []KeywordSet {
	return []KeywordSet{
		{Intent: RequestContact, Keywords: []string{
			"agent", "conseiller", "conseillère", "contact", "téléphone", "telephone",
			"whatsapp", "numéro", "numero", "appel", "joindre", "humain", "parler à quelqu",
			"service client", "service commercial", "advisor", "phone",
		}},
		{Intent: ProductSearch, Keywords: []string{
			"acheter", "achat", "prix", "tarif", "combien", "commande", "commander",
			"produit", "article", "catalogue", "disponible", "recommande", "cherche",
			"vendez", "avez-vous", "avez vous", "stock", "price", "buy",
		}},
		{Intent: ProductImage, Keywords: []string{
			"photo", "image", "montre", "montrez", "à quoi ressemble", "a quoi ressemble",
			"voir le produit", "picture", "show me", "look like",
		}},
	}
}

// Decision is the outcome of Route. Usage is set when the LLM was consulted.
type Decision struct {
	Intent   Intent
	Lexical  bool
	Usage    *llm.Usage
	Provider string
	Model    string
}

type Router struct {
	sets    []KeywordSet
	mu      sync.RWMutex
	llm     llm.ChatProvider
	logger  logger.ILogger
	timeout time.Duration
}

type Option func(*Router)

func WithKeywordSets(sets []KeywordSet) Option {
	return func(r *Router) { r.sets = sets }
}

func WithTimeout(d time.Duration) Option {
	return func(r *Router) { r.timeout = d }
}

// NewRouter builds a router. classifier may be nil, in which case unmatched
// utterances are classified as chat.
func NewRouter(classifier llm.ChatProvider, log logger.ILogger, opts ...Option) *Router {
	r := &Router{
		sets:    DefaultKeywordSets(),
		llm:     classifier,
		logger:  log,
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetProvider replaces the classifier. nil disables LLM classification.
func (r *Router) SetProvider(classifier llm.ChatProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm = classifier
}

func (r *Router) classifier() llm.ChatProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.llm
}

// Lexical returns the first keyword set matching text.
func (r *Router) Lexical(text string) (Intent, bool) {
	norm := normalize(text)
	words := strings.Fields(norm)
	for _, set := range r.sets {
		for _, kw := range set.Keywords {
			if matches(norm, words, kw) {
				return set.Intent, true
			}
		}
	}
	return "", false
}

// Route classifies text. LLM failures and answers outside
// {product_search, chat} degrade to chat.
func (r *Router) Route(ctx context.Context, text string) Decision {
	if in, ok := r.Lexical(text); ok {
		return Decision{Intent: in, Lexical: true}
	}
	classifier := r.classifier()
	if classifier == nil {
		return Decision{Intent: Chat}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	c, err := classifier.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: classifierPrompt},
		{Role: llm.RoleUser, Content: text},
	}, llm.WithTemperature(0), llm.WithMaxTokens(10))
	if err != nil {
		r.logger.Warn(module, "LLM classification failed, using chat", map[string]interface{}{
			"provider": classifier.Name(),
			"error":    err.Error(),
		})
		return Decision{Intent: Chat}
	}

	d := Decision{Intent: Coerce(c.Text), Usage: &c.Usage, Provider: classifier.Name(), Model: c.Model}
	r.logger.Debug(module, "LLM classification", map[string]interface{}{"raw": c.Text, "intent": d.Intent})
	return d
}

// Coerce maps a raw classifier answer onto {product_search, chat}.
func Coerce(raw string) Intent {
	label := strings.Trim(strings.ToLower(strings.TrimSpace(raw)), "\"'`.")
	if label == string(ProductSearch) {
		return ProductSearch
	}
	return Chat
}

const classifierPrompt = `Classifie le message du client d'une boutique en ligne.
Réponds uniquement par un seul mot parmi :
product_search (le client cherche, compare ou veut acheter un produit)
chat (salutation, remerciement, question générale)`

func normalize(text string) string {
	lower := strings.ToLower(text)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return ' '
	}, lower)
}

func matches(norm string, words []string, kw string) bool {
	kw = strings.ToLower(kw)
	if strings.ContainsAny(kw, " ") {
		return strings.Contains(" "+strings.Join(strings.Fields(norm), " ")+" ", " "+kw)
	}
	for _, w := range words {
		if strings.HasPrefix(w, kw) {
			return true
		}
		// "montre-moi", "avez-vous"
		if strings.Contains(w, "-") && !strings.Contains(kw, "-") {
			for _, part := range strings.Split(w, "-") {
				if strings.HasPrefix(part, kw) {
					return true
				}
			}
		}
	}
	return false
}
