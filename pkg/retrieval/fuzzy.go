package retrieval

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// PartialRatio scores, from 0 to 100, how well the shorter string matches
// its best-aligned window in the longer one. Comparison is case-insensitive.
func PartialRatio(a, b string) int {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	needle := string(short)
	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		d := levenshtein.ComputeDistance(needle, string(long[i:i+len(short)]))
		score := 100 - (100*d+len(short)/2)/len(short)
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

var stopwords = map[string]struct{}{
	"avec": {}, "dans": {}, "pour": {}, "vous": {}, "votre": {}, "vos": {}, "une": {}, "des": {},
	"les": {}, "est": {}, "qui": {}, "que": {}, "quoi": {}, "sur": {}, "par": {}, "pas": {},
	"avez": {}, "vendez": {}, "cherche": {}, "chercher": {}, "recherche": {}, "voudrais": {},
	"veux": {}, "besoin": {}, "acheter": {}, "montre": {}, "montrer": {}, "moi": {}, "photo": {},
	"image": {}, "prix": {}, "combien": {}, "coute": {}, "coûte": {}, "disponible": {},
	"bonjour": {}, "merci": {}, "svp": {}, "plait": {}, "plaît": {}, "the": {}, "and": {},
	"oui": {}, "non": {}, "accord": {}, "show": {}, "picture": {}, "have": {}, "you": {},
}

// Keywords splits text into lowercase content words of three runes or more.
func Keywords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := words[:0]
	for _, w := range words {
		if len([]rune(w)) < 3 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// lexicalScore compares the whole query and each of its keywords against
// field and keeps the best score.
func lexicalScore(query, field string) int {
	if strings.TrimSpace(field) == "" {
		return 0
	}
	best := PartialRatio(query, field)
	for _, kw := range Keywords(query) {
		if s := PartialRatio(kw, field); s > best {
			best = s
		}
	}
	return best
}
