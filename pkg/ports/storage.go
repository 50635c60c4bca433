package ports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// ETagNew is the creation sentinel: the write succeeds only if the key is absent.
	ETagNew = ""
	// ETagAny makes a write unconditional.
	ETagAny = "*"
)

// ErrConflict is matched by every per-key compare-and-swap failure.
var ErrConflict = errors.New("etag conflict")

// StoreItem is an opaque value plus its version token.
// The token is compared, never interpreted.
type StoreItem struct {
	Value []byte `json:"value"`
	ETag  string `json:"etag"`
}

// Storage is the key/value contract the engine persists scopes through.
type Storage interface {
	// Read returns the items present among keys. Absent keys are omitted.
	Read(ctx context.Context, keys []string) (map[string]StoreItem, error)

	// Write applies each change if its ETag matches the stored version
	// (ETagNew for "must not exist", ETagAny for unconditional).
	// It returns the new version of every key that was written. Keys are
	// independent: a conflict on one key does not roll back the others, and
	// is reported as a *ConflictError.
	Write(ctx context.Context, changes map[string]StoreItem) (map[string]string, error)

	// Delete removes keys. Deleting an absent key is not an error.
	Delete(ctx context.Context, keys []string) error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// ConflictError lists the keys whose version token did not match.
type ConflictError struct {
	Keys []string
}

func (e *ConflictError) Error() string {
	keys := append([]string(nil), e.Keys...)
	sort.Strings(keys)
	return fmt.Sprintf("etag conflict on %s", strings.Join(keys, ", "))
}

// Is lets errors.Is(err, ErrConflict) match.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Matches reports whether a write guarded by expected may replace an item
// whose current version is current (exists=false when the key is absent).
// Backends share it so the sentinel rules stay identical.
func Matches(expected, current string, exists bool) bool {
	switch expected {
	case ETagAny:
		return true
	case ETagNew:
		return !exists
	default:
		return exists && expected == current
	}
}
