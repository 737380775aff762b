package memory

import (
	"context"
	"sync"
)

// UsedStore is an in-memory fingerprint set. It is not durable across runs;
// production configurations use the file or Redis store.
type UsedStore struct {
	mu  sync.RWMutex
	set map[string]struct{}
}

func NewUsedStore() *UsedStore {
	return &UsedStore{set: make(map[string]struct{})}
}

func (s *UsedStore) Load(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.set))
	for fp := range s.set {
		out[fp] = struct{}{}
	}
	return out, nil
}

func (s *UsedStore) Add(_ context.Context, fingerprints ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fp := range fingerprints {
		s.set[fp] = struct{}{}
	}
	return nil
}
