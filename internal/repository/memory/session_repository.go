package memory

import (
	"time"

	"smartshop-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps conversations in process memory. Idle sessions
// expire after the configured TTL.
type SessionRepository struct {
	cache      *cache.Cache
	memorySize int
}

func NewSessionRepository(ttl time.Duration, memorySize int) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if memorySize <= 0 {
		memorySize = store.DefaultMemorySize
	}
	return &SessionRepository{
		cache:      cache.New(ttl, 10*time.Minute),
		memorySize: memorySize,
	}
}

// LoadOrCreate returns the session for id, creating it on first use.
// Concurrent first requests for one id all receive the same session.
func (r *SessionRepository) LoadOrCreate(id string) *store.Session {
	if s, ok := r.Get(id); ok {
		return s
	}
	fresh := store.NewSession(id, r.memorySize)
	if err := r.cache.Add(id, fresh, cache.DefaultExpiration); err != nil {
		if s, ok := r.Get(id); ok {
			return s
		}
		r.cache.Set(id, fresh, cache.DefaultExpiration)
	}
	return fresh
}

func (r *SessionRepository) Save(session *store.Session) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

// Get refreshes the expiry of the session it returns.
func (r *SessionRepository) Get(id string) (*store.Session, bool) {
	x, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	s := x.(*store.Session)
	r.cache.Set(id, s, cache.DefaultExpiration)
	return s, true
}

func (r *SessionRepository) Delete(id string) {
	r.cache.Delete(id)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
