package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// Overlay marks the dialogs of a live conversation on the graph.
type Overlay struct {
	// Stack lists the open dialogs, bottom first.
	Stack []string
}

// OverlayFor builds an overlay from a persisted dialog stack.
func OverlayFor(stack *domain.Stack) *Overlay {
	if stack == nil {
		return nil
	}
	o := &Overlay{}
	for _, f := range stack.Frames {
		o.Stack = append(o.Stack, f.Dialog)
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the dialog call graph.
// Shapes:
// - Root: ((Circle))
// - Dialog that prompts: [/Parallelogram/]
// - Default: [Rectangle]
// A call is a solid edge, a goto a dotted one; both are labelled with the
// trigger of the rule containing them. Edges to undeclared dialogs are kept
// so broken references show up.
func GenerateMermaid(dialogs []domain.Dialog, root string, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, d := range dialogs {
		safeID := sanitizeMermaidID(d.ID)

		opener, closer := "[", "]"
		switch {
		case d.ID == root:
			opener, closer = "((", "))"
		case prompts(d):
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, d.ID, closer)

		seen := make(map[string]bool)
		for _, rule := range d.Rules {
			label := trigger(rule)
			walk(rule.Steps, func(s domain.Step) {
				if s.Dialog == nil {
					return
				}
				arrow := "-- \"%s\" -->"
				switch s.Kind {
				case domain.StepCallDialog:
				case domain.StepGotoDialog:
					arrow = "-. \"%s\" .->"
				default:
					return
				}
				edge := fmt.Sprintf("    %s "+arrow+" %s\n", safeID, label, sanitizeMermaidID(s.Dialog.Target))
				if !seen[edge] {
					seen[edge] = true
					sb.WriteString(edge)
				}
			})
		}
	}

	if overlay != nil && len(overlay.Stack) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme.
		sb.WriteString("    classDef open fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef active fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		last := len(overlay.Stack) - 1
		open := make(map[string]bool)
		for _, id := range overlay.Stack[:last] {
			open[sanitizeMermaidID(id)] = true
		}
		ids := make([]string, 0, len(open))
		for id := range open {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&sb, "    class %s open;\n", id)
		}
		fmt.Fprintf(&sb, "    class %s active;\n", sanitizeMermaidID(overlay.Stack[last]))
	}

	return sb.String()
}

func trigger(r domain.Rule) string {
	var label string
	switch r.Match {
	case domain.MatchFallback:
		label = "fallback"
	case domain.MatchEvent:
		label = "⚡ " + r.Name
	default:
		label = r.Name
	}
	if r.Condition != "" {
		label += " if " + r.Condition
	}
	// Mermaid labels cannot hold double quotes.
	return strings.ReplaceAll(label, "\"", "'")
}

func prompts(d domain.Dialog) bool {
	found := false
	for _, r := range d.Rules {
		walk(r.Steps, func(s domain.Step) {
			if s.Kind == domain.StepPrompt {
				found = true
			}
		})
	}
	return found
}

func walk(steps []domain.Step, fn func(domain.Step)) {
	for _, s := range steps {
		fn(s)
		if s.Kind == domain.StepBranch && s.Branch != nil {
			walk(s.Branch.Then, fn)
			walk(s.Branch.Else, fn)
		}
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
