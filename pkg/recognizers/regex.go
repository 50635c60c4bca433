// Package recognizers provides local intent recognizers.
package recognizers

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
)

// IntentPattern maps a regular expression to an intent name.
type IntentPattern struct {
	Intent  string `yaml:"intent" json:"intent"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

type compiled struct {
	intent string
	re     *regexp.Regexp
}

// Regex recognizes intents with regular expressions. Every matching
// pattern reports its intent with score 1.0, in declaration order; named
// capture groups become entities.
type Regex struct {
	patterns []compiled
}

// NewRegex compiles patterns.
func NewRegex(patterns ...IntentPattern) (*Regex, error) {
	r := &Regex{}
	for _, p := range patterns {
		if p.Intent == "" {
			return nil, fmt.Errorf("pattern %q has no intent", p.Pattern)
		}
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("intent %s: %w", p.Intent, err)
		}
		r.patterns = append(r.patterns, compiled{intent: p.Intent, re: re})
	}
	return r, nil
}

// MustRegex is like NewRegex but panics on invalid patterns.
func MustRegex(patterns ...IntentPattern) *Regex {
	r, err := NewRegex(patterns...)
	if err != nil {
		panic(err)
	}
	return r
}

// Recognize implements ports.Recognizer.
func (r *Regex) Recognize(ctx context.Context, text string, _ ports.Scopes) (domain.RecognizerResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.RecognizerResult{}, err
	}

	res := domain.RecognizerResult{Text: text, Entities: map[string]any{}}
	seen := map[string]bool{}
	for _, p := range r.patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for i, name := range p.re.SubexpNames() {
			if i == 0 || name == "" || m[i] == "" {
				continue
			}
			if _, exists := res.Entities[name]; !exists {
				res.Entities[name] = m[i]
			}
		}
		if seen[p.intent] {
			continue
		}
		seen[p.intent] = true
		res.Intents = append(res.Intents, domain.IntentScore{Name: p.intent, Score: 1})
	}
	return res, nil
}

// Chain asks each recognizer in turn and merges their results, ranking
// intents by score. The first recognizer to report an entity wins it.
type Chain []ports.Recognizer

// Recognize implements ports.Recognizer.
func (c Chain) Recognize(ctx context.Context, text string, scopes ports.Scopes) (domain.RecognizerResult, error) {
	out := domain.RecognizerResult{Text: text, Entities: map[string]any{}}
	best := map[string]float64{}
	var order []string

	for _, r := range c {
		res, err := r.Recognize(ctx, text, scopes)
		if err != nil {
			return domain.RecognizerResult{}, err
		}
		for _, intent := range res.Intents {
			prev, ok := best[intent.Name]
			if !ok {
				order = append(order, intent.Name)
			}
			if !ok || intent.Score > prev {
				best[intent.Name] = intent.Score
			}
		}
		for k, v := range res.Entities {
			if _, exists := out.Entities[k]; !exists {
				out.Entities[k] = v
			}
		}
	}

	for _, name := range order {
		out.Intents = append(out.Intents, domain.IntentScore{Name: name, Score: best[name]})
	}
	sort.SliceStable(out.Intents, func(i, j int) bool {
		return out.Intents[i].Score > out.Intents[j].Score
	})
	return out, nil
}
