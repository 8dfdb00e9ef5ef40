package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "keycap markers win",
			text: "La **Chemise bleue** coûte 12000 FCFA. Souhaitez-vous la voir ou l'acheter ?\n1️⃣ Ajouter au panier\n2️⃣ Voir d'autres chemises",
			want: []string{"Ajouter au panier", "Voir d'autres chemises"},
		},
		{
			name: "keycaps on one line",
			text: "Que préférez-vous ? 1️⃣ **Ajouter au panier** 2️⃣ Voir plus 3️⃣ Parler à un conseiller",
			want: []string{"Ajouter au panier", "Voir plus", "Parler à un conseiller"},
		},
		{
			name: "numbered lines",
			text: "Voici nos produits :\n1. Chemise bleue\n2. Robe d'été\n3. Sac à main\n4. Ceinture",
			want: []string{"Chemise bleue", "Robe d'été", "Sac à main"},
		},
		{
			name: "either or question",
			text: "La chemise coûte 12000 FCFA. Souhaitez-vous l'ajouter au panier ou voir d'autres modèles ?",
			want: []string{"L'ajouter au panier", "Voir d'autres modèles"},
		},
		{
			name: "three alternatives",
			text: "Préférez-vous la taille S, M ou L ?",
			want: []string{"La taille S", "M", "L"},
		},
		{
			name: "several questions",
			text: "Quelle taille portez-vous ? Avez-vous une couleur préférée ?",
			want: []string{"Quelle taille portez-vous", "Avez-vous une couleur préférée"},
		},
		{
			name: "fixed phrases",
			text: "Je peux aussi vous montrer une photo ou vous proposer des produits similaires.",
			want: []string{"Voir d'autres produits", "Voir la photo"},
		},
		{
			name: "nothing",
			text: "Merci pour votre visite, à bientôt.",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestDetectBinaryChoice(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"two keycaps", "Que souhaitez-vous ?\n1️⃣ Ajouter au panier\n2️⃣ Voir d'autres produits", true},
		{"three keycaps", "1️⃣ Ajouter\n2️⃣ Voir\n3️⃣ Contacter", false},
		{"two numbered lines", "Options :\n1. Ajouter au panier\n2) Voir plus", true},
		{"either or", "Souhaitez-vous l'ajouter au panier ou voir d'autres modèles ?", true},
		{"triple either or", "Préférez-vous la taille S, M ou L ?", false},
		{"stray numerals", "La chemise coûte 12000 FCFA, livrée en 1 à 2 jours.", false},
		{"two questions", "L'ajouter ou non ? Une autre couleur ?", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectBinaryChoice(tt.text))
		})
	}
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		input string
		kind  SelectorKind
		token string
	}{
		{"1", SelectorNumber, "1"},
		{" 2 ", SelectorNumber, "2"},
		{"1️⃣", SelectorNumber, "1"},
		{"2.", SelectorNumber, "2"},
		{"Ajouter au panier", SelectorKeyword, "1"},
		{"je le prends !", SelectorKeyword, "1"},
		{"voir plus", SelectorKeyword, "2"},
		{"Similaires", SelectorKeyword, "2"},
		{"Oui", SelectorAffirmation, ""},
		{"d’accord", SelectorAffirmation, ""},
		{"ok 👍", SelectorAffirmation, ""},
		{"je cherche une robe", SelectorNone, ""},
		{"0", SelectorNone, ""},
		{"", SelectorNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseSelector(tt.input)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.token, got.Token)
		})
	}
	assert.Equal(t, 2, ParseSelector("2").Number())
	assert.True(t, IsAffirmation("oui"))
	assert.False(t, IsAffirmation("1"))
}

func TestProductChoicePrompt(t *testing.T) {
	assert.Equal(t,
		"Parfait 🙂 Que souhaitez-vous faire ?\n1️⃣ Ajouter le produit au panier\n2️⃣ Voir d'autres produits similaires",
		ProductChoicePrompt())
}
