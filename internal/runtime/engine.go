package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edboykin-insight/botbuilder-dotnet/internal/logging"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/expressions"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/state"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/templates"
)

// DefaultMaxSteps bounds the steps executed by a single turn.
const DefaultMaxSteps = 1000

// Engine interprets dialogs one turn at a time. It holds no per-conversation
// state and is safe for concurrent use; callers serialize turns of the same
// conversation.
type Engine struct {
	dialogs     ports.DialogRegistry
	root        string
	recognizer  ports.Recognizer
	templates   ports.Templates
	expressions ports.Expressions
	validators  map[string]ports.Validator
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	strict      bool
	maxSteps    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecognizer sets the intent recognizer. Without one every message
// recognizes as domain.NoneIntent.
func WithRecognizer(r ports.Recognizer) Option {
	return func(e *Engine) {
		e.recognizer = r
	}
}

// WithTemplates replaces the default text/template renderer.
func WithTemplates(t ports.Templates) Option {
	return func(e *Engine) {
		e.templates = t
	}
}

// WithExpressions replaces the default Starlark evaluator.
func WithExpressions(x ports.Expressions) Option {
	return func(e *Engine) {
		e.expressions = x
	}
}

// WithValidator registers a prompt validator, replacing a built-in of the same name.
func WithValidator(name string, v ports.Validator) Option {
	return func(e *Engine) {
		e.validators[name] = v
	}
}

// WithLifecycleHooks adds observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStrictRecognition makes unmatched input a turn error instead of an
// unhandled result.
func WithStrictRecognition(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// NewEngine creates an engine rooted at the dialog named root.
func NewEngine(dialogs ports.DialogRegistry, root string, opts ...Option) (*Engine, error) {
	e := &Engine{
		dialogs:     dialogs,
		root:        root,
		templates:   templates.New(),
		expressions: expressions.New(),
		validators:  builtinValidators(),
		logger:      logging.NewNop(),
		maxSteps:    DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}

	if _, ok := dialogs.Dialog(root); !ok {
		return nil, &UnknownDialogError{Dialog: root}
	}
	return e, nil
}

// Root returns the root dialog id.
func (e *Engine) Root() string {
	return e.root
}

// Dialogs returns the registry the engine interprets.
func (e *Engine) Dialogs() ports.DialogRegistry {
	return e.dialogs
}

// Turn processes one inbound activity against storage.
//
// Scopes are loaded on demand, the dialog stack is advanced until the plan
// drains or a step suspends, and changed scopes are saved with
// compare-and-swap. If the turn fails or ctx is canceled nothing is saved.
func (e *Engine) Turn(ctx context.Context, storage ports.Storage, act domain.Activity) (res *domain.TurnResult, err error) {
	start := time.Now()
	base := domain.EventBase{ConversationID: act.ConversationKey()}

	if e.hooks.OnTurnStart != nil {
		ev := &domain.TurnEvent{EventBase: base}
		ev.Timestamp, ev.Type = start, domain.EventTurnStart
		e.hooks.OnTurnStart(ctx, ev)
	}
	defer func() {
		if e.hooks.OnTurnEnd != nil {
			ev := &domain.TurnEvent{EventBase: base, Duration: time.Since(start), Err: err}
			ev.Timestamp, ev.Type = time.Now(), domain.EventTurnEnd
			if res != nil {
				ev.Messages = len(res.Messages)
			}
			e.hooks.OnTurnEnd(ctx, ev)
		}
	}()

	ts := state.New(storage, act)
	r, err := e.newTurn(ctx, ts, act)
	if err != nil {
		return nil, err
	}

	if err := r.run(ctx); err != nil {
		e.logger.Debug("turn failed", "conversation_id", act.ConversationKey(), "err", err)
		return nil, err
	}

	if r.unhandled && !r.changed() {
		e.logger.Debug("input not handled", "conversation_id", act.ConversationKey(), "text", act.Text, "name", act.Name)
		if e.strict {
			return nil, fmt.Errorf("%w: dialog %s", domain.ErrRecognitionFailure, r.stack.Active().Dialog)
		}
		return r.finish(), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ts.Save(ctx); err != nil {
		if errors.Is(err, domain.ErrStorageConflict) {
			e.logger.Warn("state changed concurrently", "conversation_id", act.ConversationKey(), "err", err)
		}
		return nil, err
	}
	return r.finish(), nil
}

// newTurn seeds the turn scope and makes sure a root frame exists.
func (e *Engine) newTurn(ctx context.Context, ts *state.TurnState, act domain.Activity) (*turn, error) {
	stack, err := ts.Stack(ctx)
	if err != nil {
		return nil, err
	}

	r := &turn{
		e:      e,
		ts:     ts,
		stack:  stack,
		act:    act,
		input:  act.HasInput(),
		result: &domain.TurnResult{},
	}

	ts.Turn()["activity"] = activityMap(act)
	ts.Turn()["text"] = act.Text

	if stack.Empty() {
		stack.Push(domain.NewFrame(e.root))
		r.emitStack(ctx, domain.EventDialogPush, e.root)
	}
	return r, nil
}

func (e *Engine) dialog(id, from string) (*domain.Dialog, error) {
	d, ok := e.dialogs.Dialog(id)
	if !ok {
		return nil, &UnknownDialogError{Dialog: id, From: from}
	}
	return d, nil
}

func activityMap(a domain.Activity) map[string]any {
	typ := a.Type
	if typ == "" {
		typ = domain.ActivityMessage
	}
	return map[string]any{
		"id":              a.ID,
		"type":            string(typ),
		"channel_id":      a.ChannelID,
		"conversation_id": a.ConversationID,
		"user_id":         a.UserID,
		"text":            a.Text,
		"name":            a.Name,
		"value":           a.Value,
	}
}
