package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestFrame_Status(t *testing.T) {
	f := NewFrame("root")
	if f.Status() != FrameIdle {
		t.Fatalf("new frame status = %s, want idle", f.Status())
	}

	f.ReplacePlan([]Step{SendText("hi")})
	if f.Status() != FrameRunning {
		t.Errorf("status = %s, want running", f.Status())
	}

	f.Resume = &ResumeMarker{Kind: StepPrompt}
	if f.Status() != FrameSuspended {
		t.Errorf("status = %s, want suspended", f.Status())
	}

	f.PopFront()
	if f.Status() != FrameIdle {
		t.Errorf("status after pop = %s, want idle", f.Status())
	}
}

func TestFrame_PlanMutations(t *testing.T) {
	f := NewFrame("root")
	f.ReplacePlan([]Step{SendText("a"), SendText("b")})
	f.AppendPlan([]Step{SendText("c")})
	f.PrependPlan([]Step{SendText("z")})

	var got []string
	for _, s := range f.Plan {
		got = append(got, s.Text.Template)
	}
	want := []string{"z", "a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("plan = %v, want %v", got, want)
	}

	f.Resume = &ResumeMarker{Kind: StepWaitForInput}
	f.ReplacePlan([]Step{SendText("only")})
	if f.Resume != nil {
		t.Error("ReplacePlan must drop the resume marker")
	}
	if len(f.Plan) != 1 {
		t.Errorf("plan length = %d, want 1", len(f.Plan))
	}
}

func TestFrame_PlanDoesNotAliasRuleSteps(t *testing.T) {
	rule := OnFallback(Branch("x", []Step{SendText("then")}, nil))
	f := NewFrame("root")
	f.ReplacePlan(rule.Steps)

	f.Plan[0].Branch.Then[0].Text.Template = "mutated"

	if rule.Steps[0].Branch.Then[0].Text.Template != "then" {
		t.Error("mutating a plan leaked into the rule definition")
	}
}

func TestStack_PushPopReplace(t *testing.T) {
	var s Stack
	if s.Active() != nil || s.Parent() != nil {
		t.Fatal("empty stack must have no active or parent frame")
	}

	s.Push(NewFrame("root"))
	s.Push(NewFrame("child"))
	if s.Depth() != 2 || s.Active().Dialog != "child" || s.Parent().Dialog != "root" {
		t.Fatalf("unexpected stack %v", s.Dialogs())
	}

	s.Replace(NewFrame("sibling"))
	if s.Depth() != 2 || s.Active().Dialog != "sibling" {
		t.Errorf("replace changed depth or identity: %v", s.Dialogs())
	}

	popped := s.Pop()
	if popped.Dialog != "sibling" || s.Active().Dialog != "root" {
		t.Errorf("pop returned %s, active %s", popped.Dialog, s.Active().Dialog)
	}
}

func TestStack_JSONRoundTripKeepsResumeMarker(t *testing.T) {
	var s Stack
	root := NewFrame("root")
	root.Started = true
	root.ReplacePlan([]Step{
		PromptWith(PromptPayload{Prompt: "name?", Property: "user.name", Validator: "text"}),
		SendText("hello"),
	})
	root.Resume = &ResumeMarker{Kind: StepPrompt, Attempts: 2}
	root.Locals["count"] = "1"
	s.Push(root)

	data, err := json.Marshal(&s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Stack
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !reflect.DeepEqual(&s, &back) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back.Frames[0], s.Frames[0])
	}
}
