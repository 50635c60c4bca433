package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
	"github.com/google/uuid"
)

// Store implements ports.Storage using the local filesystem.
// Each key is one JSON file holding the value and its etag. Values are
// read back byte for byte.
// The compare-and-swap is guarded by an in-process mutex, so a directory
// must not be shared by several processes writing concurrently.
type Store struct {
	BasePath string
	mu       sync.Mutex
}

// envelope keeps compact JSON values readable on disk. Anything that would
// not marshal back unchanged is stored as base64 in Data.
type envelope struct {
	ETag  string          `json:"etag"`
	Value json.RawMessage `json:"value,omitempty"`
	Data  []byte          `json:"data,omitempty"`
}

func (e envelope) bytes() []byte {
	if e.Data != nil {
		return e.Data
	}
	return []byte(e.Value)
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".botbuilder/state".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".botbuilder", "state")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.BasePath, url.PathEscape(key)+".json")
}

// Read loads every existing key.
func (s *Store) Read(ctx context.Context, keys []string) (map[string]ports.StoreItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]ports.StoreItem, len(keys))
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		env, ok, err := s.load(k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = ports.StoreItem{Value: env.bytes(), ETag: env.ETag}
		}
	}
	return out, nil
}

// Write persists each matching change atomically.
func (s *Store) Write(ctx context.Context, changes map[string]ports.StoreItem) (map[string]string, error) {
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure state directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	written := make(map[string]string, len(changes))
	var conflicts []string
	for k, item := range changes {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		current, exists, err := s.load(k)
		if err != nil {
			return written, err
		}
		if !ports.Matches(item.ETag, current.ETag, exists) {
			conflicts = append(conflicts, k)
			continue
		}

		env := envelope{ETag: uuid.NewString()}
		if verbatim(item.Value) {
			env.Value = json.RawMessage(item.Value)
		} else {
			env.Data = append([]byte{}, item.Value...)
		}
		if err := s.save(k, env); err != nil {
			return written, err
		}
		written[k] = env.ETag
	}

	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return written, &ports.ConflictError{Keys: conflicts}
	}
	return written, nil
}

// Delete removes the files of keys.
func (s *Store) Delete(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		err := os.Remove(s.path(k))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete state file: %w", err)
		}
	}
	return nil
}

// List returns the stored keys with the given prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list state files: %w", err)
	}

	keys := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// verbatim reports whether value survives embedding as a raw JSON field.
// Marshal compacts and HTML-escapes raw messages.
func verbatim(value []byte) bool {
	if len(value) == 0 || !json.Valid(value) {
		return false
	}
	out, err := json.Marshal(json.RawMessage(value))
	return err == nil && bytes.Equal(out, value)
}

func (s *Store) load(key string) (envelope, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return envelope{}, false, nil
		}
		return envelope{}, false, fmt.Errorf("failed to read state file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, false, fmt.Errorf("failed to unmarshal state file %s: %w", key, err)
	}
	return env, true, nil
}

// save writes to a temporary file first, syncs, and renames it over the destination.
func (s *Store) save(key string, env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	dest := s.path(key)
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove existing state file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
