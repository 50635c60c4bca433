package runtime

import (
	"fmt"
	"sort"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// Registry is an immutable set of dialogs keyed by id.
type Registry struct {
	dialogs map[string]*domain.Dialog
}

// NewRegistry validates and registers dialogs. Ids must be unique.
func NewRegistry(dialogs ...domain.Dialog) (*Registry, error) {
	r := &Registry{dialogs: make(map[string]*domain.Dialog, len(dialogs))}
	for i := range dialogs {
		d := dialogs[i]
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.dialogs[d.ID]; dup {
			return nil, fmt.Errorf("dialog %s registered twice", d.ID)
		}
		r.dialogs[d.ID] = &d
	}
	return r, nil
}

// Dialog implements ports.DialogRegistry.
func (r *Registry) Dialog(id string) (*domain.Dialog, bool) {
	d, ok := r.dialogs[id]
	return d, ok
}

// Dialogs implements ports.DialogRegistry.
func (r *Registry) Dialogs() []string {
	ids := make([]string, 0, len(r.dialogs))
	for id := range r.dialogs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
