package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
)

// bag is one persisted map scope (conversation or user).
type bag struct {
	key    string
	data   map[string]any
	etag   string
	loaded bool
	dirty  bool
}

// TurnState is the read-through view of every scope for one turn.
// It is owned by a single turn and is not safe for concurrent use.
//
// Scopes are read from storage on first access. Writes mark a scope dirty;
// Save persists dirty scopes with the etag captured at load time. The turn
// scope lives only in memory.
type TurnState struct {
	storage ports.Storage
	keys    Keys

	turn         map[string]any
	conversation *bag
	user         *bag

	stack       *domain.Stack
	stackETag   string
	stackRaw    []byte
	stackLoaded bool
	stackReset  bool
}

// New creates the state view for one activity.
func New(storage ports.Storage, activity domain.Activity) *TurnState {
	keys := KeysFor(activity)
	return &TurnState{
		storage:      storage,
		keys:         keys,
		turn:         make(map[string]any),
		conversation: &bag{key: keys.Conversation},
		user:         &bag{key: keys.User},
	}
}

// Keys returns the storage keys backing this state.
func (s *TurnState) Keys() Keys {
	return s.keys
}

// Turn returns the turn scope map.
func (s *TurnState) Turn() map[string]any {
	return s.turn
}

func (s *TurnState) loadBag(ctx context.Context, b *bag) error {
	if b.loaded {
		return nil
	}
	items, err := s.storage.Read(ctx, []string{b.key})
	if err != nil {
		return fmt.Errorf("read %s: %w", b.key, err)
	}
	b.data = make(map[string]any)
	b.etag = ports.ETagNew
	if item, ok := items[b.key]; ok {
		if err := decode(item.Value, &b.data); err != nil {
			return fmt.Errorf("decode %s: %w", b.key, err)
		}
		if b.data == nil {
			b.data = make(map[string]any)
		}
		b.etag = item.ETag
	}
	b.loaded = true
	return nil
}

// Stack returns the dialog stack, loading it on first access.
// The returned stack is live: mutations are persisted by Save.
func (s *TurnState) Stack(ctx context.Context) (*domain.Stack, error) {
	if s.stackLoaded {
		return s.stack, nil
	}
	items, err := s.storage.Read(ctx, []string{s.keys.Dialog})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.keys.Dialog, err)
	}
	stack := &domain.Stack{}
	s.stackETag = ports.ETagNew
	if item, ok := items[s.keys.Dialog]; ok {
		if err := decode(item.Value, stack); err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.keys.Dialog, err)
		}
		s.stackETag = item.ETag
		s.stackRaw = item.Value
	}
	s.stack = stack
	s.stackLoaded = true
	return s.stack, nil
}

// ResetStack empties the dialog stack. The empty stack is persisted even if
// nothing else changed.
func (s *TurnState) ResetStack(ctx context.Context) error {
	stack, err := s.Stack(ctx)
	if err != nil {
		return err
	}
	for !stack.Empty() {
		stack.Pop()
	}
	s.stackReset = true
	return nil
}

// scopeMap resolves the backing map of a scope, loading it if needed.
func (s *TurnState) scopeMap(ctx context.Context, scope string) (map[string]any, *bag, error) {
	switch scope {
	case ScopeTurn:
		return s.turn, nil, nil
	case ScopeConversation:
		if err := s.loadBag(ctx, s.conversation); err != nil {
			return nil, nil, err
		}
		return s.conversation.data, s.conversation, nil
	case ScopeUser:
		if err := s.loadBag(ctx, s.user); err != nil {
			return nil, nil, err
		}
		return s.user.data, s.user, nil
	case ScopeDialog:
		stack, err := s.Stack(ctx)
		if err != nil {
			return nil, nil, err
		}
		frame := stack.Active()
		if frame == nil {
			return nil, nil, fmt.Errorf("%w: no active dialog", domain.ErrInvalidPath)
		}
		if frame.Locals == nil {
			frame.Locals = make(map[string]any)
		}
		return frame.Locals, nil, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown scope %q", domain.ErrInvalidPath, scope)
}

// Get reads the value at path, e.g. "user.name".
// A path naming only a scope returns the whole scope map.
func (s *TurnState) Get(ctx context.Context, path string) (any, bool, error) {
	scope, segments, err := SplitPath(path)
	if err != nil {
		return nil, false, err
	}
	m, _, err := s.scopeMap(ctx, scope)
	if err != nil {
		return nil, false, err
	}
	v, ok := lookup(m, segments)
	return v, ok, nil
}

// Set writes value at path, creating intermediate objects.
func (s *TurnState) Set(ctx context.Context, path string, value any) error {
	scope, segments, err := SplitPath(path)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return fmt.Errorf("%w: %q names a scope, not a property", domain.ErrInvalidPath, path)
	}
	m, b, err := s.scopeMap(ctx, scope)
	if err != nil {
		return err
	}
	if err := assign(m, segments, value); err != nil {
		return err
	}
	if b != nil {
		b.dirty = true
	}
	return nil
}

// Delete removes the value at path. Deleting a missing property is a no-op.
func (s *TurnState) Delete(ctx context.Context, path string) error {
	scope, segments, err := SplitPath(path)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return fmt.Errorf("%w: %q names a scope, not a property", domain.ErrInvalidPath, path)
	}
	m, b, err := s.scopeMap(ctx, scope)
	if err != nil {
		return err
	}
	if remove(m, segments) && b != nil {
		b.dirty = true
	}
	return nil
}

// Scopes loads every scope and returns them keyed by scope name, for use by
// recognizers, templates and expressions. Callers must not mutate the maps.
func (s *TurnState) Scopes(ctx context.Context) (ports.Scopes, error) {
	conv, _, err := s.scopeMap(ctx, ScopeConversation)
	if err != nil {
		return nil, err
	}
	user, _, err := s.scopeMap(ctx, ScopeUser)
	if err != nil {
		return nil, err
	}
	stack, err := s.Stack(ctx)
	if err != nil {
		return nil, err
	}
	dialog := map[string]any{}
	if f := stack.Active(); f != nil && f.Locals != nil {
		dialog = f.Locals
	}
	return ports.Scopes{
		ScopeTurn:         s.turn,
		ScopeDialog:       dialog,
		ScopeConversation: conv,
		ScopeUser:         user,
	}, nil
}

// Save writes every changed scope with compare-and-swap. A version
// mismatch fails with domain.ErrStorageConflict. The turn scope is never
// written.
func (s *TurnState) Save(ctx context.Context) error {
	changes := make(map[string]ports.StoreItem)

	for _, b := range []*bag{s.conversation, s.user} {
		if !b.dirty {
			continue
		}
		data, err := json.Marshal(b.data)
		if err != nil {
			return fmt.Errorf("encode %s: %w", b.key, err)
		}
		changes[b.key] = ports.StoreItem{Value: data, ETag: b.etag}
	}

	var stackData []byte
	if s.stackLoaded {
		data, err := json.Marshal(s.stack)
		if err != nil {
			return fmt.Errorf("encode %s: %w", s.keys.Dialog, err)
		}
		if s.stackReset || !bytes.Equal(data, s.stackRaw) {
			stackData = data
			changes[s.keys.Dialog] = ports.StoreItem{Value: data, ETag: s.stackETag}
		}
	}

	if len(changes) == 0 {
		return nil
	}

	etags, err := s.storage.Write(ctx, changes)
	for key, etag := range etags {
		switch key {
		case s.conversation.key:
			s.conversation.etag, s.conversation.dirty = etag, false
		case s.user.key:
			s.user.etag, s.user.dirty = etag, false
		case s.keys.Dialog:
			s.stackETag, s.stackRaw, s.stackReset = etag, stackData, false
		}
	}
	if err != nil {
		if errors.Is(err, ports.ErrConflict) {
			return fmt.Errorf("%w: %w", domain.ErrStorageConflict, err)
		}
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Dirty lists the storage keys Save would write.
func (s *TurnState) Dirty() []string {
	var keys []string
	if s.conversation.dirty {
		keys = append(keys, s.conversation.key)
	}
	if s.user.dirty {
		keys = append(keys, s.user.key)
	}
	if s.stackLoaded {
		data, err := json.Marshal(s.stack)
		if err != nil || s.stackReset || !bytes.Equal(data, s.stackRaw) {
			keys = append(keys, s.keys.Dialog)
		}
	}
	sort.Strings(keys)
	return keys
}

// decode unmarshals JSON keeping numbers as json.Number so integers survive
// a round trip unchanged.
func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
