package store

import (
	"context"
	"sync"

	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
)

// MemoryStore is a process-local Store, used by tests and one-shot runs.
type MemoryStore struct {
	mu     sync.RWMutex
	owners map[string]map[saft.Kind]*bucket
}

type bucket struct {
	keys  []string
	items map[string]saft.Entity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{owners: make(map[string]map[saft.Kind]*bucket)}
}

func (s *MemoryStore) Save(_ context.Context, owner string, entities ...saft.Entity) error {
	if err := checkSave(owner, entities); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kinds, ok := s.owners[owner]
	if !ok {
		kinds = make(map[saft.Kind]*bucket)
		s.owners[owner] = kinds
	}
	for _, e := range entities {
		b, ok := kinds[e.Kind()]
		if !ok {
			b = &bucket{items: make(map[string]saft.Entity)}
			kinds[e.Kind()] = b
		}
		if _, exists := b.items[e.Key()]; !exists {
			b.keys = append(b.keys, e.Key())
		}
		b.items[e.Key()] = e
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, owner string, kind saft.Kind) ([]saft.Entity, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.owners[owner][kind]
	if !ok {
		return nil, nil
	}
	out := make([]saft.Entity, 0, len(b.keys))
	for _, k := range b.keys {
		out = append(out, b.items[k])
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
