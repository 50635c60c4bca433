package graph_test

import (
	"strings"
	"testing"

	"github.com/edboykin-insight/botbuilder-dotnet/internal/presentation/graph"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		dialogs  []domain.Dialog
		contains []string
		excludes []string
	}{
		{
			name: "Root Shape",
			dialogs: []domain.Dialog{
				{ID: "main"},
				{ID: "other"},
			},
			contains: []string{
				"main((\"main\"))",
				"other[\"other\"]",
			},
		},
		{
			name: "Prompt Shape",
			dialogs: []domain.Dialog{
				{ID: "main"},
				{ID: "ask", Rules: []domain.Rule{
					domain.OnEvent(domain.EventBeginDialog,
						domain.Branch("True", []domain.Step{domain.Prompt("Name?", "user.name")}, nil)),
				}},
			},
			contains: []string{
				"ask[/\"ask\"/]",
			},
		},
		{
			name: "ID Sanitization",
			dialogs: []domain.Dialog{
				{ID: "main"},
				{ID: "book-flight.v2"},
			},
			contains: []string{
				"book_flight_v2[\"book-flight.v2\"]",
			},
		},
		{
			name: "Call And Goto Edges",
			dialogs: []domain.Dialog{
				{ID: "main", Rules: []domain.Rule{
					domain.OnIntent("Book", domain.CallDialog("book"), domain.CallDialog("book")),
					domain.OnFallback(domain.GotoDialog("help")),
				}},
			},
			contains: []string{
				"main -- \"Book\" --> book",
				"main -. \"fallback\" .-> help",
			},
		},
		{
			name: "Condition Escaping",
			dialogs: []domain.Dialog{
				{ID: "main", Rules: []domain.Rule{{
					Match:     domain.MatchEvent,
					Name:      "tick",
					Condition: `turn.value == "go"`,
					Steps:     []domain.Step{domain.CallDialog("next")},
				}}},
			},
			contains: []string{
				"main -- \"⚡ tick if turn.value == 'go'\" --> next",
			},
		},
		{
			name:     "No Overlay Without Stack",
			dialogs:  []domain.Dialog{{ID: "main"}},
			excludes: []string{"classDef"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := graph.GenerateMermaid(tt.dialogs, "main", nil)
			if !strings.HasPrefix(output, "graph TD\n") {
				t.Errorf("expected flowchart header, got:\n%s", output)
			}
			for _, s := range tt.contains {
				if !strings.Contains(output, s) {
					t.Errorf("expected output to contain %q, but it didn't.\nOutput:\n%s", s, output)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(output, s) {
					t.Errorf("expected output not to contain %q.\nOutput:\n%s", s, output)
				}
			}
			if strings.Count(output, "main -- \"Book\" --> book") > 1 {
				t.Errorf("duplicate edge in output:\n%s", output)
			}
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	dialogs := []domain.Dialog{{ID: "main"}, {ID: "book"}, {ID: "ask-date"}}
	stack := &domain.Stack{}
	stack.Push(domain.NewFrame("main"))
	stack.Push(domain.NewFrame("book"))
	stack.Push(domain.NewFrame("ask-date"))

	output := graph.GenerateMermaid(dialogs, "main", graph.OverlayFor(stack))

	for _, s := range []string{
		"classDef open",
		"classDef active",
		"class book open;",
		"class main open;",
		"class ask_date active;",
	} {
		if !strings.Contains(output, s) {
			t.Errorf("expected output to contain %q.\nOutput:\n%s", s, output)
		}
	}
	if graph.OverlayFor(nil) != nil {
		t.Error("expected nil overlay for nil stack")
	}
}
