package domain

import (
	"fmt"
)

// StepKind is the tag of the Step union.
type StepKind string

const (
	// StepSendText renders a template and emits one message (soft step).
	StepSendText StepKind = "send_text"
	// StepPrompt emits a question and suspends until valid input arrives (hard step).
	StepPrompt StepKind = "prompt"
	// StepWaitForInput suspends once and advances on the next turn.
	StepWaitForInput StepKind = "wait_for_input"
	// StepBranch splices one of two step lists into the current plan.
	StepBranch StepKind = "branch"
	// StepCallDialog pushes a child frame.
	StepCallDialog StepKind = "call_dialog"
	// StepGotoDialog replaces the current frame in place.
	StepGotoDialog StepKind = "goto_dialog"
	// StepEndDialog pops the current frame.
	StepEndDialog StepKind = "end_dialog"
	// StepSetProperty writes an evaluated expression into a scope.
	StepSetProperty StepKind = "set_property"
	// StepDeleteProperty removes a property from a scope.
	StepDeleteProperty StepKind = "delete_property"
)

// Step is one instruction of a Plan.
// Exactly one payload field matching Kind is set; steps without parameters
// (WaitForInput) carry none.
type Step struct {
	Kind StepKind `json:"kind" yaml:"kind"`

	Text     *TextPayload     `json:"text,omitempty" yaml:"text,omitempty"`
	Prompt   *PromptPayload   `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Branch   *BranchPayload   `json:"branch,omitempty" yaml:"branch,omitempty"`
	Dialog   *DialogPayload   `json:"dialog,omitempty" yaml:"dialog,omitempty"`
	End      *EndPayload      `json:"end,omitempty" yaml:"end,omitempty"`
	Property *PropertyPayload `json:"property,omitempty" yaml:"property,omitempty"`
}

// TextPayload parameterizes SendText.
type TextPayload struct {
	Template string `json:"template" yaml:"template"`
}

// PromptPayload parameterizes Prompt.
type PromptPayload struct {
	Prompt  string `json:"prompt" yaml:"prompt" mapstructure:"prompt"`
	Retry   string `json:"retry,omitempty" yaml:"retry,omitempty" mapstructure:"retry"`
	Invalid string `json:"invalid,omitempty" yaml:"invalid,omitempty" mapstructure:"invalid"`

	// Property is the binding path, e.g. "user.name".
	Property string `json:"property" yaml:"property" mapstructure:"property"`

	// Validator names a registered validator ("text" when empty).
	Validator string `json:"validator,omitempty" yaml:"validator,omitempty" mapstructure:"validator"`

	// Pattern, when set, must match the input. The first capture group
	// (or the whole match) becomes the value.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty" mapstructure:"pattern"`

	// MaxAttempts bounds re-prompts. Zero means unbounded.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" mapstructure:"max_attempts"`
}

// BranchPayload parameterizes Branch.
type BranchPayload struct {
	Condition string `json:"condition" yaml:"condition"`
	Then      []Step `json:"then,omitempty" yaml:"then,omitempty"`
	Else      []Step `json:"else,omitempty" yaml:"else,omitempty"`
}

// DialogPayload parameterizes CallDialog and GotoDialog.
type DialogPayload struct {
	Target string `json:"target" yaml:"target"`

	// ResultProperty receives the child's EndDialog value (CallDialog only).
	ResultProperty string `json:"result_property,omitempty" yaml:"result_property,omitempty"`
}

// EndPayload parameterizes EndDialog.
type EndPayload struct {
	// Value is an expression whose result is returned to the caller.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// PropertyPayload parameterizes SetProperty and DeleteProperty.
type PropertyPayload struct {
	Path  string `json:"path" yaml:"path"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// SendText builds a SendText step.
func SendText(template string) Step {
	return Step{Kind: StepSendText, Text: &TextPayload{Template: template}}
}

// Prompt builds a Prompt step bound to property.
func Prompt(prompt, property string) Step {
	return Step{Kind: StepPrompt, Prompt: &PromptPayload{Prompt: prompt, Property: property}}
}

// PromptWith builds a Prompt step from a full payload.
func PromptWith(p PromptPayload) Step {
	return Step{Kind: StepPrompt, Prompt: &p}
}

// WaitForInput builds a WaitForInput step.
func WaitForInput() Step {
	return Step{Kind: StepWaitForInput}
}

// Branch builds a Branch step.
func Branch(condition string, then, otherwise []Step) Step {
	return Step{Kind: StepBranch, Branch: &BranchPayload{Condition: condition, Then: then, Else: otherwise}}
}

// CallDialog builds a CallDialog step.
func CallDialog(target string) Step {
	return Step{Kind: StepCallDialog, Dialog: &DialogPayload{Target: target}}
}

// CallDialogInto builds a CallDialog step whose result is stored at resultProperty.
func CallDialogInto(target, resultProperty string) Step {
	return Step{Kind: StepCallDialog, Dialog: &DialogPayload{Target: target, ResultProperty: resultProperty}}
}

// GotoDialog builds a GotoDialog step.
func GotoDialog(target string) Step {
	return Step{Kind: StepGotoDialog, Dialog: &DialogPayload{Target: target}}
}

// EndDialog builds an EndDialog step without a return value.
func EndDialog() Step {
	return Step{Kind: StepEndDialog}
}

// EndDialogWith builds an EndDialog step returning the value of expr.
func EndDialogWith(expr string) Step {
	return Step{Kind: StepEndDialog, End: &EndPayload{Value: expr}}
}

// SetProperty builds a SetProperty step.
func SetProperty(path, valueExpr string) Step {
	return Step{Kind: StepSetProperty, Property: &PropertyPayload{Path: path, Value: valueExpr}}
}

// DeleteProperty builds a DeleteProperty step.
func DeleteProperty(path string) Step {
	return Step{Kind: StepDeleteProperty, Property: &PropertyPayload{Path: path}}
}

// Validate checks that the payload matches the tag.
func (s Step) Validate() error {
	switch s.Kind {
	case StepSendText:
		if s.Text == nil || s.Text.Template == "" {
			return fmt.Errorf("%s step requires a template", s.Kind)
		}
	case StepPrompt:
		if s.Prompt == nil || s.Prompt.Prompt == "" {
			return fmt.Errorf("%s step requires a prompt template", s.Kind)
		}
		if s.Prompt.Property == "" {
			return fmt.Errorf("%s step requires a property", s.Kind)
		}
		if s.Prompt.MaxAttempts < 0 {
			return fmt.Errorf("%s step has negative max_attempts", s.Kind)
		}
	case StepWaitForInput:
	case StepBranch:
		if s.Branch == nil || s.Branch.Condition == "" {
			return fmt.Errorf("%s step requires a condition", s.Kind)
		}
		for _, nested := range s.Branch.Then {
			if err := nested.Validate(); err != nil {
				return fmt.Errorf("then: %w", err)
			}
		}
		for _, nested := range s.Branch.Else {
			if err := nested.Validate(); err != nil {
				return fmt.Errorf("else: %w", err)
			}
		}
	case StepCallDialog, StepGotoDialog:
		if s.Dialog == nil || s.Dialog.Target == "" {
			return fmt.Errorf("%s step requires a target dialog", s.Kind)
		}
	case StepEndDialog:
	case StepSetProperty:
		if s.Property == nil || s.Property.Path == "" || s.Property.Value == "" {
			return fmt.Errorf("%s step requires a path and a value", s.Kind)
		}
	case StepDeleteProperty:
		if s.Property == nil || s.Property.Path == "" {
			return fmt.Errorf("%s step requires a path", s.Kind)
		}
	default:
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}
	return nil
}

// CloneSteps returns a deep copy of steps so a rule's template is never
// aliased by a frame's plan.
func CloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = s.clone()
	}
	return out
}

func (s Step) clone() Step {
	c := s
	if s.Text != nil {
		t := *s.Text
		c.Text = &t
	}
	if s.Prompt != nil {
		p := *s.Prompt
		c.Prompt = &p
	}
	if s.Branch != nil {
		b := BranchPayload{
			Condition: s.Branch.Condition,
			Then:      CloneSteps(s.Branch.Then),
			Else:      CloneSteps(s.Branch.Else),
		}
		c.Branch = &b
	}
	if s.Dialog != nil {
		d := *s.Dialog
		c.Dialog = &d
	}
	if s.End != nil {
		e := *s.End
		c.End = &e
	}
	if s.Property != nil {
		p := *s.Property
		c.Property = &p
	}
	return c
}
