package store

import (
	"fmt"
	"sync"
	"time"
)

// CachedStore memoizes Load. An entry is reused only while the file's size
// and modification time are unchanged and it is younger than the TTL.
// The returned slice is shared between callers and must not be modified.
type CachedStore struct {
	store *Store
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	valid    bool
	obs      []Observation
	size     int64
	modTime  time.Time
	loadedAt time.Time
}

func NewCachedStore(s *Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		store: s,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *CachedStore) Load() ([]Observation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size, modTime, err := c.store.stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat store: %w", err)
	}

	if c.valid && size == c.size && modTime.Equal(c.modTime) && c.now().Sub(c.loadedAt) < c.ttl {
		return c.obs, nil
	}

	obs, err := c.store.Load()
	if err != nil {
		c.valid = false
		return nil, err
	}

	c.obs = obs
	c.size = size
	c.modTime = modTime
	c.loadedAt = c.now()
	c.valid = true
	return obs, nil
}
