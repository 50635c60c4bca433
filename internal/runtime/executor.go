package runtime

import (
	"context"
	"time"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/state"
)

// turn is the working set of one Engine.Turn call.
type turn struct {
	e      *Engine
	ts     *state.TurnState
	stack  *domain.Stack
	act    domain.Activity
	result *domain.TurnResult

	// input is true until a rule or a suspended step consumes the activity.
	input      bool
	recognized *domain.RecognizerResult

	executed  int
	fired     int
	unhandled bool
}

// changed reports whether the turn did anything worth persisting.
func (r *turn) changed() bool {
	return r.executed > 0 || r.fired > 0
}

func (r *turn) finish() *domain.TurnResult {
	res := r.result
	res.Unhandled = r.unhandled
	if f := r.stack.Active(); f != nil {
		res.ActiveDialog = f.Dialog
		res.Suspended = f.Resume != nil
	}
	if res.Messages == nil {
		res.Messages = []domain.Message{}
	}
	return res
}

// run drives the stack until the active plan drains or suspends.
func (r *turn) run(ctx context.Context) error {
	if err := r.interrupt(ctx); err != nil {
		return err
	}

	for iterations := 0; ; iterations++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if iterations >= r.e.maxSteps {
			return &StepLimitError{Limit: r.e.maxSteps}
		}

		frame := r.stack.Active()
		if frame == nil {
			return nil
		}
		dialog, err := r.e.dialog(frame.Dialog, "")
		if err != nil {
			return err
		}

		if !frame.Started {
			frame.Started = true
			if _, err := r.fireEvent(ctx, frame, dialog, domain.EventBeginDialog); err != nil {
				return err
			}
			continue
		}

		step, ok := frame.Front()
		if !ok {
			if r.input {
				handled, err := r.trigger(ctx, frame, dialog)
				if err != nil {
					return err
				}
				if !handled {
					r.input = false
					r.unhandled = true
					return nil
				}
				continue
			}
			if dialog.AutoEnd {
				if err := r.endDialog(ctx, frame, nil, false); err != nil {
					return err
				}
				continue
			}
			return nil
		}

		if frame.Resume != nil {
			if !r.input || !r.act.IsMessage() {
				return nil
			}
			r.input = false
			if err := r.resume(ctx, frame, step); err != nil {
				return err
			}
			continue
		}

		suspended, err := r.execute(ctx, frame, step)
		if err != nil {
			return err
		}
		if suspended {
			return nil
		}
	}
}

func (r *turn) emitStep(ctx context.Context, hook func(context.Context, *domain.StepEvent), typ domain.EventType, frame *domain.Frame, kind domain.StepKind) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ, ConversationID: r.act.ConversationKey()},
		Dialog:    frame.Dialog,
		Kind:      kind,
		Depth:     r.stack.Depth(),
	})
}

func (r *turn) emitStack(ctx context.Context, typ domain.EventType, dialog string) {
	hook := r.e.hooks.OnDialogPush
	if typ == domain.EventDialogPop {
		hook = r.e.hooks.OnDialogPop
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ, ConversationID: r.act.ConversationKey()},
		Dialog:    dialog,
		Depth:     r.stack.Depth(),
	})
}

func (r *turn) emit(frame *domain.Frame, kind domain.StepKind, text string) {
	r.result.Messages = append(r.result.Messages, domain.Message{
		Text:   text,
		Dialog: frame.Dialog,
		Step:   kind,
	})
}
