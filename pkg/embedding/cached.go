package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedProvider memoizes embeddings in redis. Cache failures fall through
// to the wrapped provider.
type CachedProvider struct {
	next   Provider
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewCachedProvider(next Provider, client *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: "emb:" + next.Name() + ":",
	}
}

func (c *CachedProvider) Name() string { return c.next.Name() }

func (c *CachedProvider) key(text string, mode Mode) string {
	sum := sha256.Sum256([]byte(string(mode) + "\x00" + text))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *CachedProvider) Embed(ctx context.Context, text string, mode Mode) ([]float32, error) {
	key := c.key(text, mode)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		if vec, ok := decodeVector(raw); ok {
			return vec, nil
		}
	}

	vec, err := c.next.Embed(ctx, text, mode)
	if err != nil {
		return nil, err
	}
	// A failed write only costs a recomputation later.
	_ = c.client.Set(ctx, key, encodeVector(vec), c.ttl).Err()
	return vec, nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(raw []byte) ([]float32, bool) {
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil, false
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return vec, true
}

// String is used in logs.
func (c *CachedProvider) String() string {
	return fmt.Sprintf("cached(%s, ttl=%s)", c.next.Name(), c.ttl)
}
