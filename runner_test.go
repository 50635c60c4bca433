package botbuilder_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	botbuilder "github.com/edboykin-insight/botbuilder-dotnet"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/adapters/memory"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

func TestRunner_Run(t *testing.T) {
	bot, err := botbuilder.New(memory.NewStore(), botbuilder.WithDialogs(greetingDialog()))
	require.NoError(t, err)

	var out bytes.Buffer
	r := botbuilder.NewRunner()
	r.Headless = true
	r.Input = strings.NewReader("hi\n\nAda")
	r.Output = &out
	r.Renderer = func(s string) (string, error) { return "* " + s, nil }

	require.NoError(t, r.Run(context.Background(), bot))
	assert.Equal(t, "* Hello, what is your name?\n* Hello Ada, nice to meet you!\n", out.String())
}

func TestRunner_Greeting(t *testing.T) {
	bot, err := botbuilder.New(memory.NewStore(), botbuilder.WithDialogs(domain.Dialog{
		ID:    "root",
		Rules: []domain.Rule{domain.OnFallback(domain.SendText("welcome"))},
	}))
	require.NoError(t, err)

	var out bytes.Buffer
	r := botbuilder.NewRunner()
	r.Input = strings.NewReader("exit\n")
	r.Output = &out
	r.Greeting = "hello"

	require.NoError(t, r.Run(context.Background(), bot))
	assert.Contains(t, out.String(), "welcome\n")
	assert.Contains(t, out.String(), "Bye!")
}

func TestRunner_RequiresIO(t *testing.T) {
	bot, err := botbuilder.New(memory.NewStore(), botbuilder.WithDialogs(greetingDialog()))
	require.NoError(t, err)

	assert.Error(t, botbuilder.NewRunner().Run(context.Background(), bot))
}
