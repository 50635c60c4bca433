package domain

import (
	"fmt"
	"sort"
)

// MatchKind defines what a Rule listens to.
type MatchKind string

const (
	// MatchIntent fires when the top recognized intent equals Rule.Name.
	MatchIntent MatchKind = "intent"
	// MatchEvent fires on a lifecycle or channel event named Rule.Name.
	MatchEvent MatchKind = "event"
	// MatchFallback fires on message input no intent rule claimed.
	MatchFallback MatchKind = "fallback"
)

// Mode defines how a firing rule treats an existing plan.
type Mode string

const (
	// ModeReplace discards pending steps and installs the rule's steps.
	ModeReplace Mode = "replace"
	// ModeAppend adds the rule's steps after the pending ones.
	ModeAppend Mode = "append"
)

// EventBeginDialog is raised once for every new frame before it sees input.
const EventBeginDialog = "beginDialog"

// Rule is a declarative trigger. Rules are immutable after registration.
type Rule struct {
	Match    MatchKind `json:"match" yaml:"match"`
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Mode     Mode      `json:"mode,omitempty" yaml:"mode,omitempty"`
	Priority int       `json:"priority,omitempty" yaml:"priority,omitempty"`

	// Condition is an optional expression that must be true for the rule to fire.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`

	Steps []Step `json:"steps" yaml:"steps"`
}

// OnIntent declares a replacing intent rule.
func OnIntent(name string, steps ...Step) Rule {
	return Rule{Match: MatchIntent, Name: name, Mode: ModeReplace, Steps: steps}
}

// OnEvent declares an event rule, typically for EventBeginDialog.
func OnEvent(name string, steps ...Step) Rule {
	return Rule{Match: MatchEvent, Name: name, Mode: ModeReplace, Steps: steps}
}

// OnFallback declares the rule used when no intent rule matches.
func OnFallback(steps ...Step) Rule {
	return Rule{Match: MatchFallback, Mode: ModeReplace, Steps: steps}
}

// Appending returns a copy of the rule in append mode.
func (r Rule) Appending() Rule {
	r.Mode = ModeAppend
	return r
}

// WithPriority returns a copy of the rule with the given priority.
// Lower values are evaluated first.
func (r Rule) WithPriority(p int) Rule {
	r.Priority = p
	return r
}

// When returns a copy of the rule gated by condition.
func (r Rule) When(condition string) Rule {
	r.Condition = condition
	return r
}

// EffectiveMode defaults an unset mode to ModeReplace.
func (r Rule) EffectiveMode() Mode {
	if r.Mode == "" {
		return ModeReplace
	}
	return r.Mode
}

// Validate checks the rule's shape and steps.
func (r Rule) Validate() error {
	switch r.Match {
	case MatchIntent, MatchEvent:
		if r.Name == "" {
			return fmt.Errorf("%s rule requires a name", r.Match)
		}
	case MatchFallback:
	default:
		return fmt.Errorf("unknown rule match %q", r.Match)
	}
	switch r.EffectiveMode() {
	case ModeReplace, ModeAppend:
	default:
		return fmt.Errorf("unknown rule mode %q", r.Mode)
	}
	for i, s := range r.Steps {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// Dialog is a named set of trigger rules.
type Dialog struct {
	ID    string `json:"id" yaml:"id"`
	Rules []Rule `json:"rules" yaml:"rules"`

	// AutoEnd pops the frame as soon as its plan drains.
	AutoEnd bool `json:"auto_end,omitempty" yaml:"auto_end,omitempty"`
}

// OrderedRules returns the rules sorted by priority, keeping declaration
// order among equal priorities.
func (d *Dialog) OrderedRules() []Rule {
	out := make([]Rule, len(d.Rules))
	copy(out, d.Rules)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// Validate checks the dialog's own shape. Cross-dialog references are
// checked by the registry.
func (d *Dialog) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("dialog requires an id")
	}
	fallbacks := 0
	for i, r := range d.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("dialog %s rule %d: %w", d.ID, i, err)
		}
		if r.Match == MatchFallback {
			fallbacks++
		}
	}
	if fallbacks > 1 {
		return fmt.Errorf("dialog %s declares %d fallback rules", d.ID, fallbacks)
	}
	return nil
}
