package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// recognize runs the recognizer at most once per turn and publishes the
// result as turn.recognized.
func (r *turn) recognize(ctx context.Context) (domain.RecognizerResult, error) {
	if r.recognized != nil {
		return *r.recognized, nil
	}

	res := domain.RecognizerResult{Text: r.act.Text}
	if r.e.recognizer != nil {
		scopes, err := r.ts.Scopes(ctx)
		if err != nil {
			return res, err
		}
		res, err = r.e.recognizer.Recognize(ctx, r.act.Text, scopes)
		if err != nil {
			return res, fmt.Errorf("recognize: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}

	r.recognized = &res
	r.ts.Turn()["recognized"] = res.AsMap()
	return res, nil
}

// interrupt lets an intent rule of the active frame take over a suspended
// plan. A replacing rule discards the plan and consumes the input; an
// appending rule extends the plan and leaves the input to the suspended step.
func (r *turn) interrupt(ctx context.Context) error {
	frame := r.stack.Active()
	if frame == nil || !frame.Started || len(frame.Plan) == 0 || !r.input || !r.act.IsMessage() {
		return nil
	}
	dialog, err := r.e.dialog(frame.Dialog, "")
	if err != nil {
		return err
	}

	rule, err := r.matchIntent(ctx, frame, dialog, false)
	if err != nil || rule == nil {
		return err
	}

	r.e.logger.Debug("interrupting plan", "dialog", frame.Dialog, "intent", rule.Name, "mode", rule.EffectiveMode())
	if rule.EffectiveMode() == domain.ModeReplace {
		r.input = false
	}
	r.fire(ctx, frame, rule)
	return nil
}

// trigger selects a rule for the pending input of an idle frame.
// It reports false when nothing matched.
func (r *turn) trigger(ctx context.Context, frame *domain.Frame, dialog *domain.Dialog) (bool, error) {
	if !r.act.IsMessage() {
		fired, err := r.fireEvent(ctx, frame, dialog, r.act.Name)
		if fired {
			r.input = false
		}
		return fired, err
	}

	rule, err := r.matchIntent(ctx, frame, dialog, true)
	if err != nil || rule == nil {
		return false, err
	}
	r.input = false
	r.fire(ctx, frame, rule)
	return true, nil
}

// matchIntent returns the first intent rule naming the top intent, or the
// fallback rule when withFallback is set.
func (r *turn) matchIntent(ctx context.Context, frame *domain.Frame, dialog *domain.Dialog, withFallback bool) (*domain.Rule, error) {
	res, err := r.recognize(ctx)
	if err != nil {
		return nil, err
	}
	top := res.TopIntent().Name

	var fallback *domain.Rule
	for _, rule := range dialog.OrderedRules() {
		switch rule.Match {
		case domain.MatchIntent:
			if rule.Name != top {
				continue
			}
		case domain.MatchFallback:
			if withFallback && fallback == nil {
				ok, err := r.conditionHolds(ctx, frame, rule)
				if err != nil {
					return nil, err
				}
				if ok {
					fallback = &rule
				}
			}
			continue
		default:
			continue
		}

		ok, err := r.conditionHolds(ctx, frame, rule)
		if err != nil {
			return nil, err
		}
		if ok {
			return &rule, nil
		}
	}
	return fallback, nil
}

// fireEvent fires the first event rule named name.
func (r *turn) fireEvent(ctx context.Context, frame *domain.Frame, dialog *domain.Dialog, name string) (bool, error) {
	for _, rule := range dialog.OrderedRules() {
		if rule.Match != domain.MatchEvent || rule.Name != name {
			continue
		}
		ok, err := r.conditionHolds(ctx, frame, rule)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		r.fire(ctx, frame, &rule)
		return true, nil
	}
	return false, nil
}

func (r *turn) conditionHolds(ctx context.Context, frame *domain.Frame, rule domain.Rule) (bool, error) {
	if rule.Condition == "" {
		return true, nil
	}
	return r.evalBool(ctx, frame, rule.Condition)
}

// fire installs the rule's steps into the frame's plan.
func (r *turn) fire(ctx context.Context, frame *domain.Frame, rule *domain.Rule) {
	mode := rule.EffectiveMode()
	if mode == domain.ModeAppend {
		frame.AppendPlan(rule.Steps)
	} else {
		frame.ReplacePlan(rule.Steps)
	}
	r.fired++

	r.e.logger.Debug("rule fired", "dialog", frame.Dialog, "match", rule.Match, "name", rule.Name, "mode", mode)
	if r.e.hooks.OnRuleFired != nil {
		r.e.hooks.OnRuleFired(ctx, &domain.RuleEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRuleFired, ConversationID: r.act.ConversationKey()},
			Dialog:    frame.Dialog,
			Match:     rule.Match,
			Name:      rule.Name,
			Mode:      mode,
		})
	}
}
