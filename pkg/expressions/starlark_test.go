package expressions_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/expressions"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scopes() ports.Scopes {
	return ports.Scopes{
		"user": map[string]any{
			"name":    "Ada",
			"age":     json.Number("36"),
			"ratio":   json.Number("0.5"),
			"profile": map[string]any{"city": "Lisbon"},
			"tags":    []any{"a", "b"},
		},
		"conversation": map[string]any{},
		"dialog":       map[string]any{},
		"turn":         map[string]any{"text": "42"},
	}
}

func TestStarlark_Evaluate(t *testing.T) {
	e := expressions.New()
	ctx := context.Background()

	tests := []struct {
		expr string
		want any
	}{
		{"user.name == None", false},
		{"user.nickname == None", true},
		{"conversation.topic == None", true},
		{"user.age + 1", 37},
		{"user.ratio * 2", 1.0},
		{"user.profile.city", "Lisbon"},
		{`user["name"]`, "Ada"},
		{"len(user.tags)", 2},
		{"int(turn.text) > 40", true},
		{`has(user, "name")`, true},
		{`has(user, "nickname")`, false},
		{`"x" if user.age > 18 else "y"`, "x"},
		{"[1, 2]", []any{1, 2}},
		{`{"k": 1}`, map[string]any{"k": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.Evaluate(ctx, tt.expr, scopes())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStarlark_Errors(t *testing.T) {
	e := expressions.New()
	ctx := context.Background()

	for _, expr := range []string{"user.name ==", "undefined_name", "1 / 0", `user.name + 1`} {
		t.Run(expr, func(t *testing.T) {
			_, err := e.Evaluate(ctx, expr, scopes())
			assert.ErrorIs(t, err, domain.ErrExpression)
		})
	}
}

func TestStarlark_StepLimit(t *testing.T) {
	e := expressions.New(expressions.WithMaxSteps(100))
	_, err := e.Evaluate(context.Background(), "[x for x in range(1000000)]", scopes())
	assert.ErrorIs(t, err, domain.ErrExpression)
}

func TestStarlark_Canceled(t *testing.T) {
	e := expressions.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Evaluate(ctx, "1", scopes())
	assert.ErrorIs(t, err, context.Canceled)
}
