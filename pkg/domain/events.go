package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurnStart  EventType = "turn_start"
	EventTurnEnd    EventType = "turn_end"
	EventRuleFired  EventType = "rule_fired"
	EventStep       EventType = "step"
	EventSuspend    EventType = "suspend"
	EventDialogPush EventType = "dialog_push"
	EventDialogPop  EventType = "dialog_pop"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp      time.Time `json:"timestamp"`
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
}

// TurnEvent marks the start or end of a turn.
type TurnEvent struct {
	EventBase
	Duration time.Duration `json:"duration,omitempty"`
	Messages int           `json:"messages,omitempty"`
	Err      error         `json:"-"`
}

// RuleEvent describes a rule that populated a plan.
type RuleEvent struct {
	EventBase
	Dialog string    `json:"dialog"`
	Match  MatchKind `json:"match"`
	Name   string    `json:"name,omitempty"`
	Mode   Mode      `json:"mode"`
}

// StepEvent describes a step execution, suspension, or stack change.
type StepEvent struct {
	EventBase
	Dialog string   `json:"dialog"`
	Kind   StepKind `json:"kind,omitempty"`
	Depth  int      `json:"depth"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every field is optional.
type LifecycleHooks struct {
	OnTurnStart  func(context.Context, *TurnEvent)
	OnTurnEnd    func(context.Context, *TurnEvent)
	OnRuleFired  func(context.Context, *RuleEvent)
	OnStep       func(context.Context, *StepEvent)
	OnSuspend    func(context.Context, *StepEvent)
	OnDialogPush func(context.Context, *StepEvent)
	OnDialogPop  func(context.Context, *StepEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTurnStart:  chainTurn(h.OnTurnStart, other.OnTurnStart),
		OnTurnEnd:    chainTurn(h.OnTurnEnd, other.OnTurnEnd),
		OnRuleFired:  chainRule(h.OnRuleFired, other.OnRuleFired),
		OnStep:       chainStep(h.OnStep, other.OnStep),
		OnSuspend:    chainStep(h.OnSuspend, other.OnSuspend),
		OnDialogPush: chainStep(h.OnDialogPush, other.OnDialogPush),
		OnDialogPop:  chainStep(h.OnDialogPop, other.OnDialogPop),
	}
}

func chainTurn(a, b func(context.Context, *TurnEvent)) func(context.Context, *TurnEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *TurnEvent) { a(ctx, e); b(ctx, e) }
}

func chainRule(a, b func(context.Context, *RuleEvent)) func(context.Context, *RuleEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *RuleEvent) { a(ctx, e); b(ctx, e) }
}

func chainStep(a, b func(context.Context, *StepEvent)) func(context.Context, *StepEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *StepEvent) { a(ctx, e); b(ctx, e) }
}
