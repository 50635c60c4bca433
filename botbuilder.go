package botbuilder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edboykin-insight/botbuilder-dotnet/internal/logging"
	"github.com/edboykin-insight/botbuilder-dotnet/internal/runtime"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/session"
)

// Bot is the high-level entry point of the library.
// It wraps the internal runtime and serializes turns per conversation.
type Bot struct {
	runtime  *runtime.Engine
	storage  ports.Storage
	sessions *session.Manager

	dialogs     []domain.Dialog
	registry    ports.DialogRegistry
	root        string
	runtimeOpts []runtime.Option
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Bot.
type Option func(*Bot)

// WithDialogs registers dialogs. The first one is the root unless
// WithRootDialog says otherwise.
func WithDialogs(dialogs ...domain.Dialog) Option {
	return func(b *Bot) {
		b.dialogs = append(b.dialogs, dialogs...)
	}
}

// WithDialogRegistry uses an existing registry instead of WithDialogs.
func WithDialogRegistry(r ports.DialogRegistry) Option {
	return func(b *Bot) {
		b.registry = r
	}
}

// WithRootDialog names the dialog every conversation starts in.
func WithRootDialog(id string) Option {
	return func(b *Bot) {
		b.root = id
	}
}

// WithRecognizer sets the intent recognizer.
func WithRecognizer(r ports.Recognizer) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithRecognizer(r))
	}
}

// WithTemplates replaces the default text/template renderer.
func WithTemplates(t ports.Templates) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithTemplates(t))
	}
}

// WithExpressions replaces the default Starlark evaluator.
func WithExpressions(x ports.Expressions) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithExpressions(x))
	}
}

// WithValidator registers a named prompt validator.
func WithValidator(name string, v ports.Validator) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithValidator(name, v))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithLifecycleHooks(hooks))
	}
}

// WithStrictRecognition makes input that no rule handles fail the turn with
// domain.ErrRecognitionFailure. By default such turns return a result with
// Unhandled set.
func WithStrictRecognition(strict bool) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithStrictRecognition(strict))
	}
}

// WithMaxSteps bounds the steps a single turn may execute.
func WithMaxSteps(n int) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithMaxSteps(n))
	}
}

// WithSessionManager sets the manager used to serialize turns, e.g. one
// configured with a distributed locker.
func WithSessionManager(m *session.Manager) Option {
	return func(b *Bot) {
		b.sessions = m
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// New creates a Bot persisting its state in storage.
func New(storage ports.Storage, opts ...Option) (*Bot, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	b := &Bot{storage: storage}
	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = logging.NewNop()
	}

	if b.registry == nil {
		if len(b.dialogs) == 0 {
			return nil, fmt.Errorf("at least one dialog is required")
		}
		reg, err := runtime.NewRegistry(b.dialogs...)
		if err != nil {
			return nil, err
		}
		b.registry = reg
	}
	if b.root == "" {
		if len(b.dialogs) == 0 {
			return nil, fmt.Errorf("root dialog is required with a custom registry")
		}
		b.root = b.dialogs[0].ID
	}

	if b.sessions == nil {
		b.sessions = session.NewManager(storage, session.WithLogger(b.logger))
	}

	runtimeOpts := append([]runtime.Option{runtime.WithLogger(b.logger)}, b.runtimeOpts...)
	eng, err := runtime.NewEngine(b.registry, b.root, runtimeOpts...)
	if err != nil {
		return nil, err
	}
	b.runtime = eng
	return b, nil
}

// OnTurn processes one inbound activity. Turns of the same conversation are
// serialized; distinct conversations run in parallel.
//
// The result lists the outbound messages in order. On error nothing from the
// turn has been persisted and the activity may be redelivered.
func (b *Bot) OnTurn(ctx context.Context, act domain.Activity) (*domain.TurnResult, error) {
	if act.ChannelID == "" || act.ConversationID == "" {
		return nil, fmt.Errorf("activity requires a channel and a conversation id")
	}

	var res *domain.TurnResult
	err := b.sessions.WithLock(ctx, act.ConversationKey(), func(ctx context.Context) error {
		var err error
		res, err = b.runtime.Turn(ctx, b.storage, act)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Dialogs lists the registered dialog ids.
func (b *Bot) Dialogs() []string {
	return b.registry.Dialogs()
}

// Dialog returns a registered dialog.
func (b *Bot) Dialog(id string) (*domain.Dialog, bool) {
	return b.registry.Dialog(id)
}

// Root returns the root dialog id.
func (b *Bot) Root() string {
	return b.root
}

// Sessions returns the manager serializing this bot's turns.
func (b *Bot) Sessions() *session.Manager {
	return b.sessions
}

// Storage returns the backing store.
func (b *Bot) Storage() ports.Storage {
	return b.storage
}
