package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefix(t *testing.T) {
	assert.Equal(t, "query: chemise", Prefix(ModeQuery, "chemise"))
	assert.Equal(t, "passage: chemise", Prefix(ModePassage, "chemise"))
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))
}

func TestOllamaProviderPrefixesAndNormalizes(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompt = req.Prompt
		_, _ = w.Write([]byte(`{"embedding":[0,2,0]}`))
	}))
	defer srv.Close()

	vec, err := NewOllamaProvider(srv.URL, "e5").Embed(context.Background(), "Chemise bleue", ModePassage)
	require.NoError(t, err)
	assert.Equal(t, "passage: Chemise bleue", prompt)
	assert.Equal(t, []float32{0, 1, 0}, vec)
}

func TestOpenAIProviderRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	vec, err := NewOpenAIProvider(srv.URL, "k", "m").Embed(context.Background(), "x", ModeQuery)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestOpenAIProviderClientErrorIsFinal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider(srv.URL, "bad", "m").Embed(context.Background(), "x", ModeQuery)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestVectorCodecRoundTrip(t *testing.T) {
	in := []float32{0.25, -1, float32(math.Pi)}
	out, ok := decodeVector(encodeVector(in))
	require.True(t, ok)
	assert.Equal(t, in, out)

	_, ok = decodeVector([]byte{1, 2, 3})
	assert.False(t, ok)
}
