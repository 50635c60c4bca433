package dsl

import (
	"fmt"

	"github.com/edboykin-insight/botbuilder-dotnet/internal/runtime"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// Builder manages the dialog set construction.
type Builder struct {
	order   []string
	dialogs map[string]*DialogBuilder
}

// New creates a new dialog set builder.
func New() *Builder {
	return &Builder{
		dialogs: make(map[string]*DialogBuilder),
	}
}

// Dialog creates a new dialog in the set.
// If the dialog already exists, it returns the existing builder.
// The first dialog added is the root.
func (b *Builder) Dialog(id string) *DialogBuilder {
	if db, ok := b.dialogs[id]; ok {
		return db
	}
	db := &DialogBuilder{id: id, builder: b}
	b.dialogs[id] = db
	b.order = append(b.order, id)
	return db
}

// Root returns the id of the first dialog added.
func (b *Builder) Root() string {
	if len(b.order) == 0 {
		return ""
	}
	return b.order[0]
}

// Build compiles the dialogs in declaration order and validates them,
// including references between dialogs.
func (b *Builder) Build() ([]domain.Dialog, error) {
	dialogs := make([]domain.Dialog, 0, len(b.order))
	for _, id := range b.order {
		dialogs = append(dialogs, b.dialogs[id].Build())
	}

	reg, err := runtime.NewRegistry(dialogs...)
	if err != nil {
		return nil, fmt.Errorf("failed to build dialogs: %w", err)
	}
	for _, d := range dialogs {
		for _, rule := range d.Rules {
			if err := checkTargets(reg, d.ID, rule.Steps); err != nil {
				return nil, err
			}
		}
	}
	return dialogs, nil
}

// Registry builds the dialogs into a registry.
func (b *Builder) Registry() (*runtime.Registry, error) {
	dialogs, err := b.Build()
	if err != nil {
		return nil, err
	}
	return runtime.NewRegistry(dialogs...)
}

func checkTargets(reg *runtime.Registry, from string, steps []domain.Step) error {
	for _, s := range steps {
		switch s.Kind {
		case domain.StepCallDialog, domain.StepGotoDialog:
			if _, ok := reg.Dialog(s.Dialog.Target); !ok {
				return &runtime.UnknownDialogError{Dialog: s.Dialog.Target, From: from}
			}
		case domain.StepBranch:
			if err := checkTargets(reg, from, s.Branch.Then); err != nil {
				return err
			}
			if err := checkTargets(reg, from, s.Branch.Else); err != nil {
				return err
			}
		}
	}
	return nil
}
