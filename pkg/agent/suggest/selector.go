package suggest

import (
	"strconv"
	"strings"
)

type SelectorKind int

const (
	SelectorNone SelectorKind = iota
	SelectorNumber
	SelectorKeyword
	SelectorAffirmation
)

// Selector is a bare reply picking an option. Token holds the option number
// for SelectorNumber and SelectorKeyword.
type Selector struct {
	Kind  SelectorKind
	Token string
}

func (s Selector) Bare() bool { return s.Kind != SelectorNone }

// Number returns the selected option number, or 0.
func (s Selector) Number() int {
	n, err := strconv.Atoi(s.Token)
	if err != nil {
		return 0
	}
	return n
}

var keywordTokens = map[string]string{
	"ajouter": "1", "ajoute": "1", "ajoute-le": "1", "ajouter au panier": "1", "au panier": "1",
	"panier": "1", "acheter": "1", "je l'achète": "1", "prendre": "1", "je prends": "1",
	"je le prends": "1", "le premier": "1", "premier": "1", "option 1": "1", "le 1": "1",

	"voir": "2", "voir plus": "2", "autres": "2", "d'autres": "2", "similaires": "2",
	"voir d'autres": "2", "voir d'autres produits": "2", "autres produits": "2",
	"produits similaires": "2", "le deuxième": "2", "deuxième": "2", "le second": "2",
	"option 2": "2", "le 2": "2",
}

var affirmations = map[string]bool{
	"oui": true, "ok": true, "okay": true, "d'accord": true, "daccord": true, "dac": true,
	"ouais": true, "yes": true, "yep": true, "bien sûr": true, "volontiers": true,
	"parfait": true, "super": true, "vas-y": true, "allez-y": true, "go": true,
	"ça marche": true, "ca marche": true, "avec plaisir": true, "oui merci": true,
	"oui stp": true, "oui svp": true, "oui s'il vous plaît": true, "pourquoi pas": true,
}

func normalizeReply(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.ReplaceAll(s, "’", "'")
	s = strings.Trim(s, " .!?,;:🙂😊👍")
	return strings.Join(strings.Fields(s), " ")
}

// ParseSelector recognises a digit, a keycap emoji, a synonym of one of the
// two product options, or a generic affirmation. Anything longer is not a
// selector.
func ParseSelector(input string) Selector {
	s := normalizeReply(input)
	if s == "" {
		return Selector{}
	}

	digits := strings.TrimSuffix(strings.TrimSuffix(s, keycapSuffix), variationSel)
	if n, err := strconv.Atoi(digits); err == nil && n > 0 && n < 100 {
		return Selector{Kind: SelectorNumber, Token: strconv.Itoa(n)}
	}
	if tok, ok := keywordTokens[s]; ok {
		return Selector{Kind: SelectorKeyword, Token: tok}
	}
	if affirmations[s] {
		return Selector{Kind: SelectorAffirmation}
	}
	return Selector{}
}

func IsAffirmation(input string) bool {
	return ParseSelector(input).Kind == SelectorAffirmation
}
