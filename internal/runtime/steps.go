package runtime

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// execute runs the front step of frame for the first time.
// It reports whether the step suspended the plan.
func (r *turn) execute(ctx context.Context, frame *domain.Frame, step domain.Step) (bool, error) {
	r.executed++
	r.emitStep(ctx, r.e.hooks.OnStep, domain.EventStep, frame, step.Kind)
	r.e.logger.Debug("executing step", "dialog", frame.Dialog, "step", step.Kind, "depth", r.stack.Depth())

	switch step.Kind {
	case domain.StepSendText:
		text, err := r.render(ctx, step.Text.Template)
		if err != nil {
			return false, err
		}
		r.emit(frame, step.Kind, text)
		frame.PopFront()

	case domain.StepPrompt:
		text, err := r.render(ctx, step.Prompt.Prompt)
		if err != nil {
			return false, err
		}
		r.emit(frame, step.Kind, text)
		frame.Resume = &domain.ResumeMarker{Kind: step.Kind, Attempts: 1}
		r.emitStep(ctx, r.e.hooks.OnSuspend, domain.EventSuspend, frame, step.Kind)
		return true, nil

	case domain.StepWaitForInput:
		frame.Resume = &domain.ResumeMarker{Kind: step.Kind}
		r.emitStep(ctx, r.e.hooks.OnSuspend, domain.EventSuspend, frame, step.Kind)
		return true, nil

	case domain.StepBranch:
		ok, err := r.evalBool(ctx, frame, step.Branch.Condition)
		if err != nil {
			return false, err
		}
		frame.PopFront()
		if ok {
			frame.PrependPlan(step.Branch.Then)
		} else {
			frame.PrependPlan(step.Branch.Else)
		}

	case domain.StepCallDialog:
		if _, err := r.e.dialog(step.Dialog.Target, frame.Dialog); err != nil {
			return false, err
		}
		frame.PopFront()
		child := domain.NewFrame(step.Dialog.Target)
		child.ResultProperty = step.Dialog.ResultProperty
		r.stack.Push(child)
		r.emitStack(ctx, domain.EventDialogPush, child.Dialog)

	case domain.StepGotoDialog:
		if _, err := r.e.dialog(step.Dialog.Target, frame.Dialog); err != nil {
			return false, err
		}
		next := domain.NewFrame(step.Dialog.Target)
		next.ResultProperty = frame.ResultProperty
		r.stack.Replace(next)
		r.emitStack(ctx, domain.EventDialogPop, frame.Dialog)
		r.emitStack(ctx, domain.EventDialogPush, next.Dialog)

	case domain.StepEndDialog:
		var (
			value    any
			hasValue bool
		)
		if step.End != nil && step.End.Value != "" {
			v, err := r.eval(ctx, frame, step.End.Value)
			if err != nil {
				return false, err
			}
			value, hasValue = v, true
		}
		frame.PopFront()
		if err := r.endDialog(ctx, frame, value, hasValue); err != nil {
			return false, err
		}

	case domain.StepSetProperty:
		v, err := r.eval(ctx, frame, step.Property.Value)
		if err != nil {
			return false, err
		}
		if err := r.ts.Set(ctx, step.Property.Path, v); err != nil {
			return false, fmt.Errorf("dialog %s: %w", frame.Dialog, err)
		}
		frame.PopFront()

	case domain.StepDeleteProperty:
		if err := r.ts.Delete(ctx, step.Property.Path); err != nil {
			return false, fmt.Errorf("dialog %s: %w", frame.Dialog, err)
		}
		frame.PopFront()

	default:
		return false, fmt.Errorf("dialog %s: unknown step kind %q", frame.Dialog, step.Kind)
	}
	return false, nil
}

// resume hands the pending input to the suspended front step.
func (r *turn) resume(ctx context.Context, frame *domain.Frame, step domain.Step) error {
	r.executed++
	r.e.logger.Debug("resuming step", "dialog", frame.Dialog, "step", step.Kind)

	switch step.Kind {
	case domain.StepWaitForInput:
		frame.PopFront()
		return nil
	case domain.StepPrompt:
		return r.resumePrompt(ctx, frame, step.Prompt)
	}
	return fmt.Errorf("dialog %s: step %q cannot be resumed", frame.Dialog, step.Kind)
}

func (r *turn) resumePrompt(ctx context.Context, frame *domain.Frame, p *domain.PromptPayload) error {
	value, err := r.validate(ctx, p, r.act.Text)
	if err == nil {
		if err := r.ts.Set(ctx, p.Property, value); err != nil {
			return fmt.Errorf("dialog %s: %w", frame.Dialog, err)
		}
		frame.PopFront()
		return nil
	}
	if !errors.Is(err, domain.ErrValidation) {
		return err
	}

	attempts := frame.Resume.Attempts
	if p.MaxAttempts > 0 && attempts >= p.MaxAttempts {
		r.e.logger.Debug("prompt gave up", "dialog", frame.Dialog, "property", p.Property, "attempts", attempts)
		frame.PopFront()
		return nil
	}

	ref := p.Prompt
	switch {
	case p.Invalid != "":
		ref = p.Invalid
	case p.Retry != "":
		ref = p.Retry
	}
	text, err := r.render(ctx, ref)
	if err != nil {
		return err
	}
	r.emit(frame, domain.StepPrompt, text)
	frame.Resume.Attempts = attempts + 1
	r.emitStep(ctx, r.e.hooks.OnSuspend, domain.EventSuspend, frame, domain.StepPrompt)
	return nil
}

// validate applies the prompt's pattern and then its validator.
func (r *turn) validate(ctx context.Context, p *domain.PromptPayload, input string) (any, error) {
	if p.Pattern != "" {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: bad pattern: %w", p.Property, err)
		}
		m := re.FindStringSubmatch(input)
		if m == nil {
			return nil, invalid("%q does not match %s", input, p.Pattern)
		}
		input = m[0]
		if len(m) > 1 {
			input = m[1]
		}
	}

	name := p.Validator
	if name == "" {
		name = ValidatorText
	}
	v, ok := r.e.validators[name]
	if !ok {
		return nil, fmt.Errorf("prompt %s: unknown validator %q", p.Property, name)
	}
	return v(ctx, input)
}

// endDialog pops frame. The caller's result property receives value, and an
// emptied stack ends the conversation's dialog.
func (r *turn) endDialog(ctx context.Context, frame *domain.Frame, value any, hasValue bool) error {
	r.stack.Pop()
	r.emitStack(ctx, domain.EventDialogPop, frame.Dialog)

	if r.stack.Empty() {
		r.result.Ended = true
		r.input = false
		return r.ts.ResetStack(ctx)
	}

	if hasValue && frame.ResultProperty != "" {
		if err := r.ts.Set(ctx, frame.ResultProperty, value); err != nil {
			return fmt.Errorf("dialog %s result: %w", frame.Dialog, err)
		}
	}
	return nil
}

func (r *turn) render(ctx context.Context, ref string) (string, error) {
	scopes, err := r.ts.Scopes(ctx)
	if err != nil {
		return "", err
	}
	return r.e.templates.Render(ctx, ref, scopes)
}

func (r *turn) eval(ctx context.Context, frame *domain.Frame, expr string) (any, error) {
	scopes, err := r.ts.Scopes(ctx)
	if err != nil {
		return nil, err
	}
	v, err := r.e.expressions.Evaluate(ctx, expr, scopes)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ExpressionError{Dialog: frame.Dialog, Expr: expr, Err: err}
	}
	return v, nil
}

func (r *turn) evalBool(ctx context.Context, frame *domain.Frame, expr string) (bool, error) {
	v, err := r.eval(ctx, frame, expr)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ExpressionError{Dialog: frame.Dialog, Expr: expr, Err: fmt.Errorf("result %v (%T) is not a boolean", v, v)}
	}
	return b, nil
}
