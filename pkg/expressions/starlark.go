// Package expressions evaluates conditions and values with Starlark.
//
// Each scope is a global: "user.name == None", "int(turn.text) > 3",
// "conversation.count + 1". Missing properties read as None.
package expressions

import (
	"context"
	"fmt"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Starlark implements ports.Expressions.
type Starlark struct {
	maxSteps uint64
	builtins starlark.StringDict
}

// Option configures the evaluator.
type Option func(*Starlark)

// WithMaxSteps bounds the computation of a single expression.
func WithMaxSteps(n uint64) Option {
	return func(s *Starlark) {
		s.maxSteps = n
	}
}

// WithBuiltin exposes a predeclared value to every expression.
func WithBuiltin(name string, v starlark.Value) Option {
	return func(s *Starlark) {
		s.builtins[name] = v
	}
}

// New creates an evaluator.
func New(opts ...Option) *Starlark {
	s := &Starlark{
		maxSteps: 100_000,
		builtins: starlark.StringDict{
			"has": starlark.NewBuiltin("has", has),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// has(obj, "key") reports whether an object carries a property.
func has(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		obj starlark.Value
		key string
	)
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &obj, &key); err != nil {
		return nil, err
	}
	switch o := obj.(type) {
	case *object:
		_, ok := o.m[key]
		return starlark.Bool(ok), nil
	case *starlark.Dict:
		_, ok, err := o.Get(starlark.String(key))
		return starlark.Bool(ok), err
	}
	return starlark.False, nil
}

// Evaluate implements ports.Expressions.
func (s *Starlark) Evaluate(ctx context.Context, expr string, scopes ports.Scopes) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	env := make(starlark.StringDict, len(s.builtins)+len(scopes))
	for k, v := range s.builtins {
		env[k] = v
	}
	for name, scope := range scopes {
		v, err := toValue(name, scope)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrExpression, err)
		}
		env[name] = v
	}

	thread := &starlark.Thread{Name: "expr"}
	thread.SetMaxExecutionSteps(s.maxSteps)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	val, err := starlark.EvalOptions(&syntax.FileOptions{}, thread, "expr", expr, env)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %q: %v", domain.ErrExpression, expr, err)
	}

	out, err := fromValue(val)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", domain.ErrExpression, expr, err)
	}
	return out, nil
}
