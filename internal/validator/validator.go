package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.starlark.net/syntax"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// Report collects the findings of a validation pass.
type Report struct {
	Errors   []string
	Warnings []string
}

// OK reports whether no errors were found.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Err returns the errors as a single error, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(r.Errors), strings.Join(r.Errors, "\n- "))
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateDialogs checks a dialog set starting from root: step payloads,
// broken dialog references, expression syntax, prompt patterns and
// validator names, and dialogs unreachable from root. validators lists the
// names that can be referenced by prompts; nil skips that check.
func ValidateDialogs(dialogs []domain.Dialog, root string, validators []string) *Report {
	r := &Report{}
	byID := make(map[string]*domain.Dialog, len(dialogs))
	for i := range dialogs {
		d := &dialogs[i]
		if _, dup := byID[d.ID]; dup {
			r.errorf("dialog '%s' declared twice", d.ID)
			continue
		}
		byID[d.ID] = d
		if err := d.Validate(); err != nil {
			r.errorf("%v", err)
		}
	}

	known := make(map[string]bool, len(validators))
	for _, v := range validators {
		known[v] = true
	}

	if _, ok := byID[root]; !ok {
		r.errorf("root dialog '%s' not found", root)
		return r
	}

	// Crawler
	visited := make(map[string]bool)
	queue := []string{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		d, ok := byID[id]
		if !ok {
			continue
		}
		for _, rule := range d.Rules {
			if rule.Condition != "" {
				checkExpr(r, d.ID, rule.Condition)
			}
			walk(rule.Steps, func(s domain.Step) {
				switch s.Kind {
				case domain.StepCallDialog, domain.StepGotoDialog:
					if s.Dialog == nil {
						return
					}
					if _, ok := byID[s.Dialog.Target]; !ok {
						r.errorf("dialog '%s' references missing dialog '%s'", d.ID, s.Dialog.Target)
						return
					}
					if !visited[s.Dialog.Target] {
						queue = append(queue, s.Dialog.Target)
					}
				case domain.StepBranch:
					if s.Branch != nil {
						checkExpr(r, d.ID, s.Branch.Condition)
					}
				case domain.StepSetProperty:
					if s.Property != nil {
						checkExpr(r, d.ID, s.Property.Value)
					}
				case domain.StepEndDialog:
					if s.End != nil && s.End.Value != "" {
						checkExpr(r, d.ID, s.End.Value)
					}
				case domain.StepPrompt:
					checkPrompt(r, d.ID, s.Prompt, known)
				}
			})
		}
	}

	var unreachable []string
	for id := range byID {
		if !visited[id] {
			unreachable = append(unreachable, id)
		}
	}
	sort.Strings(unreachable)
	for _, id := range unreachable {
		r.warnf("dialog '%s' is unreachable from '%s'", id, root)
	}
	return r
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

func checkExpr(r *Report, dialog, expr string) {
	if expr == "" {
		return
	}
	if _, err := (&syntax.FileOptions{}).ParseExpr("expr", expr, 0); err != nil {
		r.errorf("dialog '%s': invalid expression %q: %v", dialog, expr, err)
	}
}

func checkPrompt(r *Report, dialog string, p *domain.PromptPayload, known map[string]bool) {
	if p == nil {
		return
	}
	if p.Pattern != "" {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			r.errorf("dialog '%s': prompt for '%s' has invalid pattern: %v", dialog, p.Property, err)
		}
	}
	if len(known) > 0 && p.Validator != "" && !known[p.Validator] {
		r.errorf("dialog '%s': prompt for '%s' uses unknown validator '%s'", dialog, p.Property, p.Validator)
	}
}
