package ssocache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process memory with per-entry expiry
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (s *MemoryStore) Get(id string) ([]byte, error) {
	v, ok := s.c.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	data := v.([]byte)
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Put(id string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.c.Set(id, append([]byte(nil), data...), ttl)
	return nil
}

func (s *MemoryStore) Delete(id string) error {
	s.c.Delete(id)
	return nil
}

// Len returns the number of unexpired entries
func (s *MemoryStore) Len() int {
	return s.c.ItemCount()
}
