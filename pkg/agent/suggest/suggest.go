// Package suggest reads follow-up options out of the assistant's free text and
// recognises the short replies a customer gives to them. Everything here is
// deterministic string work.
package suggest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxSuggestions = 3
	maxLabelRunes  = 80
)

const (
	keycapSuffix = "\u20e3"
	variationSel = "\ufe0f"
)

// Keycap renders n (1..9) as a keycap emoji such as 1️⃣.
func Keycap(n int) string {
	return strconv.Itoa(n) + variationSel + keycapSuffix
}

var (
	numberedLine = regexp.MustCompile(`^\s*(?:[-*]\s*)?(?:\*\*)?([1-9])(?:\*\*)?\s*[.)]\s+(.+)$`)
	leadIn       = regexp.MustCompile(`(?i)\b\p{L}+-vous\s+|\bvous\s+\p{L}+ez\s+`)
	orSplit      = regexp.MustCompile(`(?i)\s+ou\s+|,\s*`)
	sentenceEnd  = regexp.MustCompile(`[^.!?\n]*\?`)
)

// Extract returns up to three suggestion labels. Layers are tried in order and
// the first one producing labels wins: numbered markers, an "X ou Y"
// question, several questions, then fixed phrases.
func Extract(text string) []string {
	for _, layer := range []func(string) []string{numbered, disjunction, questions, phrases} {
		if labels := layer(text); len(labels) > 0 {
			return limit(labels)
		}
	}
	return nil
}

func limit(labels []string) []string {
	out := make([]string, 0, MaxSuggestions)
	seen := make(map[string]bool)
	for _, l := range labels {
		l = cleanLabel(l)
		key := strings.ToLower(l)
		if l == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

func cleanLabel(l string) string {
	l = strings.ReplaceAll(l, "**", "")
	l = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(l), "?!.:;,"))
	if utf8.RuneCountInString(l) > maxLabelRunes {
		l = strings.TrimSpace(string([]rune(l)[:maxLabelRunes]))
	}
	return capitalize(l)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// numberedItems returns the list items of text keyed by their number, from
// keycap markers and from "1." / "1)" lines.
func numberedItems(text string) (keycaps map[int]string, lines map[int]string) {
	keycaps = make(map[int]string)
	lines = make(map[int]string)
	for _, line := range strings.Split(text, "\n") {
		for n := 1; n <= 9; n++ {
			marker := Keycap(n)
			idx := strings.Index(line, marker)
			if idx < 0 {
				marker = strconv.Itoa(n) + keycapSuffix
				idx = strings.Index(line, marker)
			}
			if idx < 0 {
				continue
			}
			rest := line[idx+len(marker):]
			if next := nextKeycap(rest); next >= 0 {
				rest = rest[:next]
			}
			if _, dup := keycaps[n]; !dup {
				keycaps[n] = strings.TrimSpace(rest)
			}
		}
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			if _, dup := lines[n]; !dup {
				lines[n] = strings.TrimSpace(m[2])
			}
		}
	}
	return keycaps, lines
}

func nextKeycap(s string) int {
	idx := strings.Index(s, keycapSuffix)
	if idx < 1 {
		return -1
	}
	start := idx - 1
	if strings.HasSuffix(s[:idx], variationSel) {
		start = idx - len(variationSel) - 1
	}
	if start < 0 || s[start] < '1' || s[start] > '9' {
		return -1
	}
	return start
}

func ordered(items map[int]string) []string {
	var out []string
	for n := 1; n <= 9; n++ {
		if v, ok := items[n]; ok {
			out = append(out, v)
		}
	}
	return out
}

func numbered(text string) []string {
	keycaps, lines := numberedItems(text)
	if len(keycaps) > 0 {
		return ordered(keycaps)
	}
	if len(lines) >= 2 {
		return ordered(lines)
	}
	return nil
}

// disjunction splits the first question holding " ou " into its alternatives.
func disjunction(text string) []string {
	for _, q := range sentenceEnd.FindAllString(text, -1) {
		parts := splitOr(q)
		if len(parts) >= 2 {
			return parts
		}
	}
	return nil
}

func splitOr(question string) []string {
	q := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(question), "?"))
	if !strings.Contains(strings.ToLower(q), " ou ") {
		return nil
	}
	// keep what follows the last "souhaitez-vous" style lead-in
	if locs := leadIn.FindAllStringIndex(q, -1); len(locs) > 0 {
		q = q[locs[len(locs)-1][1]:]
	}
	var parts []string
	for _, p := range orSplit.Split(q, -1) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func questions(text string) []string {
	qs := sentenceEnd.FindAllString(text, -1)
	if len(qs) < 2 {
		return nil
	}
	return qs
}

var fixedPhrases = []struct {
	needles []string
	label   string
}{
	{[]string{"ajouter au panier", "l'ajouter", "ajouter ce produit"}, "Ajouter au panier"},
	{[]string{"produits similaires", "d'autres produits", "autres modèles", "autres articles"}, "Voir d'autres produits"},
	{[]string{"photo", "image"}, "Voir la photo"},
	{[]string{"conseiller", "contacter", "service commercial"}, "Parler à un conseiller"},
}

func phrases(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, fp := range fixedPhrases {
		for _, n := range fp.needles {
			if strings.Contains(lower, n) {
				out = append(out, fp.label)
				break
			}
		}
	}
	return out
}

// DetectBinaryChoice reports whether text offers exactly two next actions:
// keycaps 1️⃣ and 2️⃣ without a third, exactly two numbered lines, or a single
// question with exactly two "ou" alternatives.
func DetectBinaryChoice(text string) bool {
	keycaps, lines := numberedItems(text)
	if len(keycaps) > 0 {
		_, one := keycaps[1]
		_, two := keycaps[2]
		return one && two && len(keycaps) == 2
	}
	if len(lines) > 0 {
		_, one := lines[1]
		_, two := lines[2]
		return one && two && len(lines) == 2
	}
	qs := sentenceEnd.FindAllString(text, -1)
	if len(qs) != 1 {
		return false
	}
	return len(splitOr(qs[0])) == 2
}

// Clarification lists the options as keycap-numbered lines.
func Clarification(options []string) string {
	var b strings.Builder
	b.WriteString("Parfait 🙂 Que souhaitez-vous faire ?")
	for i, o := range options {
		fmt.Fprintf(&b, "\n%s %s", Keycap(i+1), o)
	}
	return b.String()
}

var productChoiceOptions = []string{
	"Ajouter le produit au panier",
	"Voir d'autres produits similaires",
}

// ProductChoicePrompt re-asks the add-to-cart / see-more choice.
func ProductChoicePrompt() string {
	return Clarification(productChoiceOptions)
}
