package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	botbuilder "github.com/edboykin-insight/botbuilder-dotnet"
	"github.com/edboykin-insight/botbuilder-dotnet/internal/cli"
	"github.com/edboykin-insight/botbuilder-dotnet/internal/presentation/tui"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/state"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the bot in the terminal",
		Long: `Starts an interactive chat. Each line is one turn. Type 'exit' or 'quit' to leave.

The conversation id is stable by default, so a suspended prompt is resumed the
next time you chat (use --fresh to start over). When stdin is not a terminal,
chat runs headless: no banner, no prompt, plain replies.`,
		RunE: runChat,
	}
	cmd.Flags().String("conversation", "local", "Conversation id")
	cmd.Flags().String("user", "user", "User id")
	cmd.Flags().String("channel", "console", "Channel id")
	cmd.Flags().Bool("headless", false, "Plain I/O for scripts and pipes")
	cmd.Flags().Bool("fresh", false, "Discard the conversation's state before starting")
	cmd.Flags().BoolP("watch", "w", false, "Reload the definition when its files change")
	cmd.Flags().String("greeting", "", "Text sent as the first turn")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	flags := cmd.Flags()
	headless, _ := flags.GetBool("headless")
	fresh, _ := flags.GetBool("fresh")
	watch, _ := flags.GetBool("watch")

	runner := botbuilder.NewRunner()
	runner.Input = cmd.InOrStdin()
	runner.Output = cmd.OutOrStdout()
	runner.ConversationID, _ = flags.GetString("conversation")
	runner.UserID, _ = flags.GetString("user")
	runner.ChannelID, _ = flags.GetString("channel")
	runner.Greeting, _ = flags.GetString("greeting")

	if f, ok := runner.Input.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		headless = true
	}
	runner.Headless = headless

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if fresh {
		if err := deleteConversation(ctx, env, runner.ChannelID, runner.ConversationID, ""); err != nil {
			return err
		}
	}

	reloader, err := cli.NewReloader(env)
	if err != nil {
		return err
	}

	if !headless {
		tui.PrintBanner(runner.Output, botbuilder.Version)
		width := 80
		if f, ok := runner.Output.(*os.File); ok {
			if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
				width = w
			}
		}
		if render, err := tui.NewRenderer(width); err == nil {
			runner.Renderer = render
		}
	}

	if watch {
		reloader.Notify = func(err error) {
			if headless {
				return
			}
			if err != nil {
				fmt.Fprintln(runner.Output, tui.Dim(runner.Output, ">>> reload failed: "+err.Error()))
				return
			}
			fmt.Fprintln(runner.Output, tui.Dim(runner.Output, ">>> definition reloaded"))
		}
		go func() {
			if err := reloader.Watch(ctx); err != nil {
				env.Logger.Error("Watcher stopped", "err", err)
			}
		}()
	}

	err = runner.Run(ctx, reloader)
	if ctx.Err() != nil {
		// Interrupted by a signal.
		return nil
	}
	return err
}

// deleteConversation removes the conversation and dialog scopes, and the
// user scope when userID is set.
func deleteConversation(ctx context.Context, env *cli.Env, channel, conversation, userID string) error {
	act := address(channel, conversation, userID)
	keys := state.KeysFor(act)
	del := []string{keys.Conversation, keys.Dialog}
	if userID != "" {
		del = append(del, keys.User)
	}
	return env.Sessions.Delete(ctx, act.ConversationKey(), del...)
}
