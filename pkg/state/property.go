package state

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Property is a typed accessor for one property path.
//
//	name := state.NewProperty[string]("user.name")
//	v, ok, err := name.Get(ctx, ts)
type Property[T any] struct {
	Path string
}

// NewProperty creates a typed accessor for path.
func NewProperty[T any](path string) Property[T] {
	return Property[T]{Path: path}
}

// Get reads and decodes the property. Missing properties return the zero
// value and false.
func (p Property[T]) Get(ctx context.Context, s *TurnState) (T, bool, error) {
	var out T
	raw, ok, err := s.Get(ctx, p.Path)
	if err != nil || !ok || raw == nil {
		return out, false, err
	}
	if typed, ok := raw.(T); ok {
		return typed, true, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return out, false, err
	}
	if err := decoder.Decode(raw); err != nil {
		return out, false, fmt.Errorf("decode %s: %w", p.Path, err)
	}
	return out, true, nil
}

// GetOr reads the property, returning def when it is missing.
func (p Property[T]) GetOr(ctx context.Context, s *TurnState, def T) (T, error) {
	v, ok, err := p.Get(ctx, s)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// Set writes the property.
func (p Property[T]) Set(ctx context.Context, s *TurnState, v T) error {
	return s.Set(ctx, p.Path, v)
}

// Delete removes the property.
func (p Property[T]) Delete(ctx context.Context, s *TurnState) error {
	return s.Delete(ctx, p.Path)
}
