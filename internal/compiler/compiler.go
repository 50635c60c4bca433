package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/edboykin-insight/botbuilder-dotnet/internal/dto"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// Parser is responsible for converting raw definition bytes into dialogs.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a YAML (or JSON) definition document.
func (p *Parser) Parse(data []byte) (*dto.BotMetadata, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	var meta dto.BotMetadata
	if err := decode(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}
	return &meta, nil
}

// Dialogs compiles every dialog of a definition, including the top-level
// one when the document is a single dialog.
func (p *Parser) Dialogs(meta *dto.BotMetadata) ([]domain.Dialog, error) {
	all := meta.Dialogs
	if meta.ID != "" {
		all = append([]dto.DialogMetadata{meta.DialogMetadata}, all...)
	}
	out := make([]domain.Dialog, 0, len(all))
	for _, dm := range all {
		d, err := p.Dialog(dm)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Dialog compiles one dialog.
func (p *Parser) Dialog(dm dto.DialogMetadata) (domain.Dialog, error) {
	if dm.ID == "" {
		return domain.Dialog{}, fmt.Errorf("dialog missing id")
	}
	d := domain.Dialog{ID: dm.ID, AutoEnd: dm.AutoEnd}

	if len(dm.OnBegin) > 0 {
		steps, err := Steps(dm.OnBegin)
		if err != nil {
			return d, fmt.Errorf("dialog %s on_begin: %w", dm.ID, err)
		}
		d.Rules = append(d.Rules, domain.OnEvent(domain.EventBeginDialog, steps...))
	}

	for i, rm := range dm.Rules {
		rule, err := compileRule(rm)
		if err != nil {
			return d, fmt.Errorf("dialog %s rule %d: %w", dm.ID, i, err)
		}
		d.Rules = append(d.Rules, rule)
	}
	return d, nil
}

func compileRule(rm dto.RuleMetadata) (domain.Rule, error) {
	var rule domain.Rule
	set := 0
	if rm.Intent != "" {
		rule.Match, rule.Name = domain.MatchIntent, rm.Intent
		set++
	}
	if rm.Event != "" {
		rule.Match, rule.Name = domain.MatchEvent, rm.Event
		set++
	}
	if rm.Fallback {
		rule.Match = domain.MatchFallback
		set++
	}
	if set != 1 {
		return rule, fmt.Errorf("rule must set exactly one of intent, event, fallback")
	}

	switch strings.ToLower(rm.Mode) {
	case "", string(domain.ModeReplace):
		rule.Mode = domain.ModeReplace
	case string(domain.ModeAppend):
		rule.Mode = domain.ModeAppend
	default:
		return rule, fmt.Errorf("unknown mode %q", rm.Mode)
	}
	rule.Priority = rm.Priority
	rule.Condition = rm.When

	steps, err := Steps(rm.Steps)
	if err != nil {
		return rule, err
	}
	rule.Steps = steps
	return rule, nil
}

// stepKeys are the shorthand keys of a step map.
var stepKeys = map[string]bool{
	"send": true, "prompt": true, "wait": true, "branch": true, "call": true,
	"goto": true, "end": true, "set": true, "delete": true,
}

// Steps compiles a list of step documents. A step is either a bare string
// ("wait", "end") or a map with exactly one shorthand key.
func Steps(raw []any) ([]domain.Step, error) {
	out := make([]domain.Step, 0, len(raw))
	for i, r := range raw {
		s, err := step(r)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func step(raw any) (domain.Step, error) {
	switch v := raw.(type) {
	case string:
		switch v {
		case "wait":
			return domain.WaitForInput(), nil
		case "end":
			return domain.EndDialog(), nil
		}
		return domain.Step{}, fmt.Errorf("unknown step %q", v)
	case map[string]any:
		return stepMap(v)
	}
	return domain.Step{}, fmt.Errorf("unexpected step of type %T", raw)
}

func stepMap(m map[string]any) (domain.Step, error) {
	var keys []string
	for k := range m {
		if stepKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) != 1 {
		return domain.Step{}, fmt.Errorf("step must have exactly one of send, prompt, wait, branch, call, goto, end, set, delete (got %v)", keys)
	}
	key, val := keys[0], m[keys[0]]

	switch key {
	case "send":
		s, ok := val.(string)
		if !ok {
			return domain.Step{}, fmt.Errorf("send expects a template string")
		}
		return domain.SendText(s), nil

	case "prompt":
		if s, ok := val.(string); ok {
			prop, _ := m["property"].(string)
			return domain.Prompt(s, prop), nil
		}
		var pm dto.PromptMetadata
		if err := decode(val, &pm); err != nil {
			return domain.Step{}, fmt.Errorf("prompt: %w", err)
		}
		return domain.PromptWith(domain.PromptPayload{
			Prompt:      pm.Text,
			Retry:       pm.Retry,
			Invalid:     pm.Invalid,
			Property:    pm.Property,
			Validator:   pm.Validator,
			Pattern:     pm.Pattern,
			MaxAttempts: pm.MaxAttempts,
		}), nil

	case "wait":
		return domain.WaitForInput(), nil

	case "branch":
		var bm dto.BranchMetadata
		if err := decode(val, &bm); err != nil {
			return domain.Step{}, fmt.Errorf("branch: %w", err)
		}
		then, err := Steps(bm.Then)
		if err != nil {
			return domain.Step{}, fmt.Errorf("then: %w", err)
		}
		otherwise, err := Steps(bm.Else)
		if err != nil {
			return domain.Step{}, fmt.Errorf("else: %w", err)
		}
		return domain.Branch(bm.If, then, otherwise), nil

	case "call":
		if s, ok := val.(string); ok {
			return domain.CallDialog(s), nil
		}
		var cm dto.CallMetadata
		if err := decode(val, &cm); err != nil {
			return domain.Step{}, fmt.Errorf("call: %w", err)
		}
		return domain.CallDialogInto(cm.Dialog, cm.Result), nil

	case "goto":
		s, ok := val.(string)
		if !ok {
			return domain.Step{}, fmt.Errorf("goto expects a dialog id")
		}
		return domain.GotoDialog(s), nil

	case "end":
		switch v := val.(type) {
		case nil:
			return domain.EndDialog(), nil
		case string:
			return domain.EndDialogWith(v), nil
		}
		return domain.Step{}, fmt.Errorf("end expects an optional value expression")

	case "set":
		var sm dto.SetMetadata
		if err := decode(val, &sm); err != nil {
			return domain.Step{}, fmt.Errorf("set: %w", err)
		}
		return domain.SetProperty(sm.Path, sm.Value), nil

	case "delete":
		s, ok := val.(string)
		if !ok {
			return domain.Step{}, fmt.Errorf("delete expects a property path")
		}
		return domain.DeleteProperty(s), nil
	}
	return domain.Step{}, fmt.Errorf("unknown step %q", key)
}

func decode(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
