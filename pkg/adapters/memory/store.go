package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
	"github.com/google/uuid"
)

type entry struct {
	value []byte
	etag  string
}

// Store implements ports.Storage in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]entry
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]entry),
	}
}

// Read returns copies of the stored items so callers cannot mutate the store.
func (s *Store) Read(ctx context.Context, keys []string) (map[string]ports.StoreItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]ports.StoreItem, len(keys))
	for _, k := range keys {
		e, ok := s.data[k]
		if !ok {
			continue
		}
		out[k] = ports.StoreItem{Value: clone(e.value), ETag: e.etag}
	}
	return out, nil
}

// Write applies every change whose etag matches, under a single lock.
func (s *Store) Write(ctx context.Context, changes map[string]ports.StoreItem) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	written := make(map[string]string, len(changes))
	var conflicts []string
	for k, item := range changes {
		current, exists := s.data[k]
		if !ports.Matches(item.ETag, current.etag, exists) {
			conflicts = append(conflicts, k)
			continue
		}
		etag := uuid.NewString()
		s.data[k] = entry{value: clone(item.Value), etag: etag}
		written[k] = etag
	}

	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return written, &ports.ConflictError{Keys: conflicts}
	}
	return written, nil
}

// Delete removes keys.
func (s *Store) Delete(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// List returns the stored keys with the given prefix, sorted.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
