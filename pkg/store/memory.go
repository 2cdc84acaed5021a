package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store for tests and ephemeral runs.
type MemStore struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{collections: make(map[string]map[string][]byte)}
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) FindOne(ctx context.Context, collection, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.collections[collection][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, key)
	}
	return append([]byte(nil), value...), nil
}

func (s *MemStore) Find(ctx context.Context, collection, prefix string, filter Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []Record
	for key, value := range s.collections[collection] {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if filter != nil && !filter(value) {
			continue
		}
		records = append(records, Record{Key: key, Value: append([]byte(nil), value...)})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

func (s *MemStore) UpsertIfAbsent(ctx context.Context, collection, key string, value []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string][]byte)
		s.collections[collection] = coll
	}
	if _, exists := coll[key]; exists {
		return false, nil
	}
	coll[key] = append([]byte(nil), value...)
	return true, nil
}
