package main

import (
	"github.com/spf13/cobra"

	"github.com/edboykin-insight/botbuilder-dotnet/internal/cli"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "botbuilder",
		Short: "botbuilder runs rule-driven conversational bots",
		Long: `botbuilder loads dialogs from YAML definitions and runs them as a chat REPL,
an HTTP/WebSocket channel, or an MCP server. Conversation state is kept in the
configured storage (file, sqlite, redis or memory).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().StringP("config", "c", "", "Config file (default botbuilder.yaml)")
	root.PersistentFlags().StringP("bot", "b", "", "Bot definition file or directory (overrides config)")
	root.PersistentFlags().String("storage", "", "Storage driver: memory, file, sqlite, redis (overrides config)")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")

	root.AddCommand(
		newChatCmd(),
		newServeCmd(),
		newMCPCmd(),
		newValidateCmd(),
		newGraphCmd(),
		newStateCmd(),
		newVersionCmd(),
	)
	return root
}

// setup builds the environment from the persistent flags.
func setup(cmd *cobra.Command) (*cli.Env, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	bot, _ := flags.GetString("bot")
	storage, _ := flags.GetString("storage")
	debug, _ := flags.GetBool("debug")
	return cli.Setup(cli.Options{
		ConfigPath: configPath,
		Bot:        bot,
		Storage:    storage,
		Debug:      debug,
	})
}
