package dsl

import (
	"errors"
	"testing"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

func TestBuilder_JokeFlow(t *testing.T) {
	b := New()

	b.Dialog("root").
		OnIntent("JokeIntent").Call("joke").Dialog().
		OnFallback().Send("Ask me for a joke!")

	b.Dialog("joke").
		OnBegin().
		Send("Why did the chicken cross the road?").
		Wait().
		Send("To get to the other side").
		End()

	dialogs, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if b.Root() != "root" {
		t.Errorf("Expected root 'root', got %q", b.Root())
	}
	if len(dialogs) != 2 || dialogs[0].ID != "root" || dialogs[1].ID != "joke" {
		t.Fatalf("Expected dialogs [root joke] in declaration order, got %+v", dialogs)
	}

	root := dialogs[0]
	if len(root.Rules) != 2 {
		t.Fatalf("Expected 2 rules, got %d", len(root.Rules))
	}
	if root.Rules[0].Match != domain.MatchIntent || root.Rules[0].Name != "JokeIntent" {
		t.Errorf("Unexpected first rule: %+v", root.Rules[0])
	}
	if root.Rules[1].Match != domain.MatchFallback {
		t.Errorf("Expected fallback rule, got %s", root.Rules[1].Match)
	}

	joke := dialogs[1].Rules[0]
	if joke.Match != domain.MatchEvent || joke.Name != domain.EventBeginDialog {
		t.Errorf("Expected beginDialog rule, got %+v", joke)
	}
	kinds := []domain.StepKind{}
	for _, s := range joke.Steps {
		kinds = append(kinds, s.Kind)
	}
	want := []domain.StepKind{domain.StepSendText, domain.StepWaitForInput, domain.StepSendText, domain.StepEndDialog}
	if len(kinds) != len(want) {
		t.Fatalf("Expected steps %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("Step %d: expected %s, got %s", i, want[i], kinds[i])
		}
	}
}

func TestBuilder_RuleOptions(t *testing.T) {
	b := New()
	b.Dialog("root").AutoEnd().
		OnIntent("Help").Append().Priority(-5).When("turn.text != ''").Send("help")

	d := b.Dialog("root").Build()
	if !d.AutoEnd {
		t.Error("Expected AutoEnd")
	}
	r := d.Rules[0]
	if r.Mode != domain.ModeAppend || r.Priority != -5 || r.Condition != "turn.text != ''" {
		t.Errorf("Unexpected rule options: %+v", r)
	}
}

func TestBuilder_AllSteps(t *testing.T) {
	b := New()
	b.Dialog("root").OnFallback().
		Ask("Name?", "user.name").
		AskWith(domain.PromptPayload{Prompt: "Age?", Property: "user.age", Validator: "integer"}).
		Branch("user.age > 17", []domain.Step{domain.SendText("adult")}, []domain.Step{domain.CallDialog("minor")}).
		Set("conversation.seen", "True").
		Delete("conversation.tmp").
		CallInto("minor", "dialog.result").
		Goto("minor")
	b.Dialog("minor").OnBegin().EndWith("'ok'")

	dialogs, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if got := len(dialogs[0].Rules[0].Steps); got != 7 {
		t.Errorf("Expected 7 steps, got %d", got)
	}
}

func TestBuilder_UnknownTarget(t *testing.T) {
	b := New()
	b.Dialog("root").OnFallback().
		Branch("True", []domain.Step{domain.GotoDialog("ghost")}, nil)

	_, err := b.Build()
	if !errors.Is(err, domain.ErrUnknownDialog) {
		t.Fatalf("Expected ErrUnknownDialog, got %v", err)
	}
}

func TestBuilder_InvalidStep(t *testing.T) {
	b := New()
	b.Dialog("root").OnFallback().Send("")

	if _, err := b.Build(); err == nil {
		t.Fatal("Expected validation error for empty template")
	}
}

func TestBuilder_DialogIsReused(t *testing.T) {
	b := New()
	first := b.Dialog("root")
	if b.Dialog("root") != first {
		t.Error("Expected the same builder for the same id")
	}
}
