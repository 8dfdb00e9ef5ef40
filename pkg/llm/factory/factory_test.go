package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatProvider(t *testing.T) {
	tests := []struct {
		provider string
		apiKey   string
		wantErr  bool
		tools    bool
	}{
		{"mistral", "k", false, true},
		{"groq", "k", false, true},
		{"groq", "", true, false},
		{"ollama", "", false, true},
		{"huggingface", "k", false, false},
		{"unknown", "k", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"/"+tt.apiKey, func(t *testing.T) {
			p, err := NewChatProvider(tt.provider, "model", "", tt.apiKey)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, p.Name())
			assert.Equal(t, tt.tools, p.SupportsTools())
		})
	}
}
