package middleware

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
)

// Mask replaces masked values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.Storage
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks, on Read, the values of
// object keys matching the patterns. Writes pass through unchanged, so the
// masked view is meant for inspection and export, not for running turns.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.Storage) ports.Storage {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Read(ctx context.Context, keys []string) (map[string]ports.StoreItem, error) {
	items, err := m.next.Read(ctx, keys)
	if err != nil {
		return nil, err
	}
	for key, item := range items {
		var doc any
		if err := json.Unmarshal(item.Value, &doc); err != nil {
			continue
		}
		if !mask(doc, m.patterns) {
			continue
		}
		masked, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		items[key] = ports.StoreItem{Value: masked, ETag: item.ETag}
	}
	return items, nil
}

func (m *piiMiddleware) Write(ctx context.Context, changes map[string]ports.StoreItem) (map[string]string, error) {
	return m.next.Write(ctx, changes)
}

func (m *piiMiddleware) Delete(ctx context.Context, keys []string) error {
	return m.next.Delete(ctx, keys)
}

func (m *piiMiddleware) List(ctx context.Context, prefix string) ([]string, error) {
	return list(ctx, m.next, prefix)
}

// mask walks objects and arrays, reporting whether anything was masked.
func mask(v any, patterns []*regexp.Regexp) bool {
	changed := false
	switch t := v.(type) {
	case map[string]any:
		for k, sub := range t {
			matched := false
			for _, p := range patterns {
				if p.MatchString(k) {
					matched = true
					break
				}
			}
			if matched {
				t[k] = Mask
				changed = true
				continue
			}
			if mask(sub, patterns) {
				changed = true
			}
		}
	case []any:
		for _, sub := range t {
			if mask(sub, patterns) {
				changed = true
			}
		}
	}
	return changed
}
