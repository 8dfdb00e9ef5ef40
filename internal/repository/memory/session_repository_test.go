package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateReturnsSameSession(t *testing.T) {
	repo := NewSessionRepository(time.Minute, 4)

	first := repo.LoadOrCreate("c1")
	second := repo.LoadOrCreate("c1")

	assert.Same(t, first, second)
	assert.Equal(t, 4, first.Memory.Capacity())
	assert.Equal(t, 1, repo.Count())
}

func TestLoadOrCreateConcurrent(t *testing.T) {
	repo := NewSessionRepository(time.Minute, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[any]struct{}{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := repo.LoadOrCreate("shared")
			mu.Lock()
			seen[s] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1)
	assert.Equal(t, 1, repo.Count())
}

func TestSessionExpires(t *testing.T) {
	repo := NewSessionRepository(20*time.Millisecond, 0)
	repo.LoadOrCreate("c1")

	time.Sleep(40 * time.Millisecond)

	_, ok := repo.Get("c1")
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	repo := NewSessionRepository(time.Minute, 0)
	s := repo.LoadOrCreate("c1")
	require.NotNil(t, s)

	repo.Delete("c1")

	_, ok := repo.Get("c1")
	assert.False(t, ok)
	assert.Equal(t, 0, repo.Count())
}
