package recognizers_test

import (
	"context"
	"testing"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/recognizers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegex_Recognize(t *testing.T) {
	r := recognizers.MustRegex(
		recognizers.IntentPattern{Intent: "JokeIntent", Pattern: `(?i)joke`},
		recognizers.IntentPattern{Intent: "OrderIntent", Pattern: `(?i)order (?P<quantity>\d+) (?P<item>\w+)`},
	)
	ctx := context.Background()

	tests := []struct {
		name     string
		text     string
		intent   string
		entities map[string]any
	}{
		{"case insensitive", "Tell me a JOKE", "JokeIntent", map[string]any{}},
		{"named groups become entities", "please order 2 pizzas", "OrderIntent", map[string]any{"quantity": "2", "item": "pizzas"}},
		{"no match", "hello", domain.NoneIntent, map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Recognize(ctx, tt.text, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.intent, res.TopIntent().Name)
			assert.Equal(t, tt.entities, res.Entities)
			assert.Equal(t, tt.text, res.Text)
		})
	}
}

func TestRegex_InvalidPattern(t *testing.T) {
	_, err := recognizers.NewRegex(recognizers.IntentPattern{Intent: "X", Pattern: "("})
	assert.Error(t, err)

	_, err = recognizers.NewRegex(recognizers.IntentPattern{Pattern: "x"})
	assert.Error(t, err)
}

type fixed domain.RecognizerResult

func (f fixed) Recognize(context.Context, string, ports.Scopes) (domain.RecognizerResult, error) {
	return domain.RecognizerResult(f), nil
}

func TestChain_RanksByScore(t *testing.T) {
	chain := recognizers.Chain{
		fixed{Intents: []domain.IntentScore{{Name: "A", Score: 0.4}}, Entities: map[string]any{"x": 1}},
		fixed{Intents: []domain.IntentScore{{Name: "B", Score: 0.9}, {Name: "A", Score: 0.5}}, Entities: map[string]any{"x": 2}},
	}

	res, err := chain.Recognize(context.Background(), "text", nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.IntentScore{{Name: "B", Score: 0.9}, {Name: "A", Score: 0.5}}, res.Intents)
	assert.Equal(t, 1, res.Entities["x"])
}
