package ports

import (
	"context"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// Scopes is the read-only union of visible scopes handed to capabilities,
// keyed by scope name ("turn", "dialog", "conversation", "user").
type Scopes map[string]any

// Recognizer turns raw user text into ranked intents and entities.
type Recognizer interface {
	Recognize(ctx context.Context, text string, scopes Scopes) (domain.RecognizerResult, error)
}

// Templates renders a template reference against the visible scopes.
type Templates interface {
	Render(ctx context.Context, ref string, scopes Scopes) (string, error)
}

// Expressions evaluates an expression against the visible scopes.
// Malformed input fails with an error wrapping domain.ErrExpression.
type Expressions interface {
	Evaluate(ctx context.Context, expr string, scopes Scopes) (any, error)
}

// Validator parses prompt input. Rejected input returns an error wrapping
// domain.ErrValidation.
type Validator func(ctx context.Context, input string) (any, error)

// DialogRegistry resolves dialog identities.
type DialogRegistry interface {
	Dialog(id string) (*domain.Dialog, bool)
	Dialogs() []string
}
