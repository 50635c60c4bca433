package dsl

import "github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"

// DialogBuilder provides a fluent API for configuring a dialog.
type DialogBuilder struct {
	id      string
	autoEnd bool
	rules   []*RuleBuilder
	builder *Builder
}

// AutoEnd pops the dialog as soon as its plan drains.
func (d *DialogBuilder) AutoEnd() *DialogBuilder {
	d.autoEnd = true
	return d
}

// OnBegin adds a rule for the beginDialog event.
func (d *DialogBuilder) OnBegin() *RuleBuilder {
	return d.OnEvent(domain.EventBeginDialog)
}

// OnEvent adds a rule for a named event.
func (d *DialogBuilder) OnEvent(name string) *RuleBuilder {
	return d.rule(domain.Rule{Match: domain.MatchEvent, Name: name})
}

// OnIntent adds a rule for a recognized intent.
func (d *DialogBuilder) OnIntent(name string) *RuleBuilder {
	return d.rule(domain.Rule{Match: domain.MatchIntent, Name: name})
}

// OnFallback adds the rule used when no intent rule matches.
func (d *DialogBuilder) OnFallback() *RuleBuilder {
	return d.rule(domain.Rule{Match: domain.MatchFallback})
}

func (d *DialogBuilder) rule(r domain.Rule) *RuleBuilder {
	r.Mode = domain.ModeReplace
	rb := &RuleBuilder{rule: r, dialog: d}
	d.rules = append(d.rules, rb)
	return rb
}

// Build returns the underlying domain.Dialog.
// This is primarily used by the Builder, but exposed for advanced usage.
func (d *DialogBuilder) Build() domain.Dialog {
	dialog := domain.Dialog{ID: d.id, AutoEnd: d.autoEnd}
	for _, rb := range d.rules {
		r := rb.rule
		r.Steps = domain.CloneSteps(rb.rule.Steps)
		dialog.Rules = append(dialog.Rules, r)
	}
	return dialog
}

// RuleBuilder provides a fluent API for a rule and its steps.
type RuleBuilder struct {
	rule   domain.Rule
	dialog *DialogBuilder
}

// Dialog returns to the owning dialog to declare another rule.
func (r *RuleBuilder) Dialog() *DialogBuilder {
	return r.dialog
}

// Append makes the rule extend an existing plan instead of replacing it.
func (r *RuleBuilder) Append() *RuleBuilder {
	r.rule.Mode = domain.ModeAppend
	return r
}

// Priority orders the rule; lower values are evaluated first.
func (r *RuleBuilder) Priority(p int) *RuleBuilder {
	r.rule.Priority = p
	return r
}

// When gates the rule on a boolean expression.
func (r *RuleBuilder) When(condition string) *RuleBuilder {
	r.rule.Condition = condition
	return r
}

// Steps appends prebuilt steps.
func (r *RuleBuilder) Steps(steps ...domain.Step) *RuleBuilder {
	r.rule.Steps = append(r.rule.Steps, steps...)
	return r
}

// Send emits a rendered template (soft step).
func (r *RuleBuilder) Send(template string) *RuleBuilder {
	return r.Steps(domain.SendText(template))
}

// Ask prompts for text and binds it to property (hard step).
func (r *RuleBuilder) Ask(prompt, property string) *RuleBuilder {
	return r.Steps(domain.Prompt(prompt, property))
}

// AskWith prompts with a full payload (validator, retry, pattern...).
func (r *RuleBuilder) AskWith(p domain.PromptPayload) *RuleBuilder {
	return r.Steps(domain.PromptWith(p))
}

// Wait suspends until the next turn.
func (r *RuleBuilder) Wait() *RuleBuilder {
	return r.Steps(domain.WaitForInput())
}

// Branch splices then or otherwise depending on condition.
func (r *RuleBuilder) Branch(condition string, then, otherwise []domain.Step) *RuleBuilder {
	return r.Steps(domain.Branch(condition, then, otherwise))
}

// Call pushes a child dialog.
func (r *RuleBuilder) Call(target string) *RuleBuilder {
	return r.Steps(domain.CallDialog(target))
}

// CallInto pushes a child dialog whose end value is stored at property.
func (r *RuleBuilder) CallInto(target, property string) *RuleBuilder {
	return r.Steps(domain.CallDialogInto(target, property))
}

// Goto replaces the current dialog.
func (r *RuleBuilder) Goto(target string) *RuleBuilder {
	return r.Steps(domain.GotoDialog(target))
}

// End pops the current dialog.
func (r *RuleBuilder) End() *RuleBuilder {
	return r.Steps(domain.EndDialog())
}

// EndWith pops the current dialog returning the value of expr.
func (r *RuleBuilder) EndWith(expr string) *RuleBuilder {
	return r.Steps(domain.EndDialogWith(expr))
}

// Set writes the value of expr at path.
func (r *RuleBuilder) Set(path, expr string) *RuleBuilder {
	return r.Steps(domain.SetProperty(path, expr))
}

// Delete removes path.
func (r *RuleBuilder) Delete(path string) *RuleBuilder {
	return r.Steps(domain.DeleteProperty(path))
}
