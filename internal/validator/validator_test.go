package validator

import (
	"strings"
	"testing"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

func TestValidateDialogs(t *testing.T) {
	validators := []string{"text", "integer"}

	// Scenario A: valid set
	// root -> joke (call), joke -> end
	valid := []domain.Dialog{
		{ID: "root", Rules: []domain.Rule{
			domain.OnIntent("Joke", domain.CallDialog("joke")).When("turn.text != ''"),
			domain.OnFallback(domain.Branch("user.name == None",
				[]domain.Step{domain.PromptWith(domain.PromptPayload{Prompt: "Name?", Property: "user.name", Validator: "text"})},
				nil)),
		}},
		{ID: "joke", Rules: []domain.Rule{
			domain.OnEvent(domain.EventBeginDialog, domain.SendText("..."), domain.EndDialogWith("1 + 1")),
		}},
	}
	if r := ValidateDialogs(valid, "root", validators); !r.OK() || len(r.Warnings) > 0 {
		t.Errorf("Scenario A (Valid) failed: %v %v", r.Err(), r.Warnings)
	}

	// Scenario B: broken reference inside a branch
	broken := []domain.Dialog{
		{ID: "root", Rules: []domain.Rule{
			domain.OnFallback(domain.Branch("True", []domain.Step{domain.GotoDialog("ghost")}, nil)),
		}},
	}
	r := ValidateDialogs(broken, "root", validators)
	if r.OK() {
		t.Fatal("Scenario B (Broken Link) should have failed")
	}
	if !strings.Contains(r.Err().Error(), "'ghost'") {
		t.Errorf("Expected error to mention 'ghost', got: %v", r.Err())
	}

	// Scenario C: missing root
	if r := ValidateDialogs(valid, "main", validators); r.OK() {
		t.Error("Scenario C (Missing Root) should have failed")
	}
}

func TestValidateDialogs_Findings(t *testing.T) {
	dialogs := []domain.Dialog{
		{ID: "root", Rules: []domain.Rule{
			domain.OnFallback(
				domain.Branch("1 +", nil, nil),
				domain.SetProperty("user.x", "((("),
				domain.PromptWith(domain.PromptPayload{Prompt: "?", Property: "user.y", Pattern: "(", Validator: "color"}),
			),
		}},
		{ID: "orphan"},
		{ID: "orphan"},
	}

	r := ValidateDialogs(dialogs, "root", []string{"text"})
	want := []string{
		"declared twice",
		`invalid expression "1 +"`,
		`invalid expression "((("`,
		"invalid pattern",
		"unknown validator 'color'",
	}
	joined := strings.Join(r.Errors, "\n")
	for _, w := range want {
		if !strings.Contains(joined, w) {
			t.Errorf("Expected an error containing %q, got:\n%s", w, joined)
		}
	}
	if len(r.Warnings) != 1 || !strings.Contains(r.Warnings[0], "'orphan' is unreachable") {
		t.Errorf("Expected an unreachable warning, got %v", r.Warnings)
	}
}

func TestValidateDialogs_NilValidatorsSkipsNames(t *testing.T) {
	dialogs := []domain.Dialog{
		{ID: "root", Rules: []domain.Rule{
			domain.OnFallback(domain.PromptWith(domain.PromptPayload{Prompt: "?", Property: "user.y", Validator: "custom"})),
		}},
	}
	if r := ValidateDialogs(dialogs, "root", nil); !r.OK() {
		t.Errorf("Unexpected errors: %v", r.Err())
	}
}
