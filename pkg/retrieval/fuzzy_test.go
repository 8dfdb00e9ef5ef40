package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartialRatio(t *testing.T) {
	tests := []struct {
		a, b string
		min  int
		max  int
	}{
		{"chemise", "Chemise bleue", 100, 100},
		{"Chemise bleue", "chemise", 100, 100},
		{"chemize", "Chemise bleue", 80, 90},
		{"pantalon", "Chemise bleue", 0, 50},
		{"", "Chemise", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			got := PartialRatio(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"chemise", "bleue"}, Keywords("Je cherche une chemise bleue, svp"))
	assert.Empty(t, Keywords("oui ok"))
}

func TestLexicalScoreUsesKeywords(t *testing.T) {
	assert.Equal(t, 100, lexicalScore("je cherche une chemise", "Chemise bleue"))
	assert.Less(t, lexicalScore("je cherche une chemise", "Sac à main en cuir"), 70)
}
