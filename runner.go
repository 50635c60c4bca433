package botbuilder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// Runner drives a Bot from a line-oriented stream.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer

	// ChannelID, ConversationID and UserID address the conversation.
	// Empty ids default to "console", a random id, and "user".
	ChannelID      string
	ConversationID string
	UserID         string

	// Greeting, when set, is sent as the first turn before reading input.
	Greeting string
}

// Conversational is what a Runner drives. *Bot implements it.
type Conversational interface {
	OnTurn(ctx context.Context, act domain.Activity) (*domain.TurnResult, error)
	Root() string
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner with console defaults.
// Input and Output must be set before Run.
func NewRunner() *Runner {
	return &Runner{
		ChannelID: "console",
		UserID:    "user",
	}
}

// Run reads one line per turn until EOF, "exit" or "quit", or ctx is done.
func (r *Runner) Run(ctx context.Context, bot Conversational) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	r.defaults()

	lines := bufio.NewReader(r.Input)
	if !r.Headless {
		fmt.Fprintf(r.Output, "--- %s (conversation %s) ---\n", bot.Root(), r.ConversationID)
	}

	if r.Greeting != "" {
		if err := r.turn(ctx, bot, r.Greeting); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		text, err := lines.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("input error: %w", err)
		}
		input := strings.TrimSpace(text)

		if input == "exit" || input == "quit" {
			if !r.Headless {
				fmt.Fprintln(r.Output, "Bye!")
			}
			return nil
		}
		if input != "" {
			if terr := r.turn(ctx, bot, input); terr != nil {
				return terr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

func (r *Runner) defaults() {
	if r.ChannelID == "" {
		r.ChannelID = "console"
	}
	if r.UserID == "" {
		r.UserID = "user"
	}
	if r.ConversationID == "" {
		r.ConversationID = uuid.NewString()
	}
}

func (r *Runner) turn(ctx context.Context, bot Conversational, text string) error {
	res, err := bot.OnTurn(ctx, domain.Activity{
		ID:             uuid.NewString(),
		Type:           domain.ActivityMessage,
		ChannelID:      r.ChannelID,
		ConversationID: r.ConversationID,
		UserID:         r.UserID,
		Text:           text,
	})
	if err != nil {
		return fmt.Errorf("turn error: %w", err)
	}

	for _, msg := range res.Messages {
		out := msg.Text
		if r.Renderer != nil {
			if rendered, err := r.Renderer(out); err == nil {
				out = rendered
			}
		}
		fmt.Fprintln(r.Output, strings.TrimSpace(out))
	}
	if res.Unhandled && !r.Headless {
		fmt.Fprintln(r.Output, "(no rule handled that)")
	}
	return nil
}
