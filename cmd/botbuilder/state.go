package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/state"
)

func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Manage persisted conversation state",
		Long:  `List, inspect, and remove the scopes stored for conversations and users.`,
	}
	cmd.PersistentFlags().String("channel", "console", "Channel id")
	cmd.AddCommand(newStateLsCmd(), newStateInspectCmd(), newStateRmCmd())
	return cmd
}

// address builds the activity identifying a stored conversation.
func address(channel, conversation, user string) domain.Activity {
	return domain.Activity{ChannelID: channel, ConversationID: conversation, UserID: user}
}

func newStateLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [prefix]",
		Short: "List stored keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			prefix := ""
			if len(args) > 0 {
				prefix = args[0]
			}
			keys, err := env.Sessions.List(cmd.Context(), prefix)
			if err != nil {
				return fmt.Errorf("listing keys: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, "No stored state found.")
				return nil
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintln(out, "- "+k)
			}
			return nil
		},
	}
}

func newStateInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <conversation-id>",
		Short: "Print the scopes of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			channel, _ := cmd.Flags().GetString("channel")
			user, _ := cmd.Flags().GetString("user")
			mask, _ := cmd.Flags().GetBool("mask")

			store := env.Backend.Storage
			if mask {
				if store, err = env.Config.Storage.Masked(store); err != nil {
					return err
				}
			}

			keys := state.KeysFor(address(channel, args[0], user))
			items, err := store.Read(cmd.Context(), keys.All())
			if err != nil {
				return fmt.Errorf("reading state: %w", err)
			}
			if len(items) == 0 {
				return fmt.Errorf("no state stored for conversation '%s'", args[0])
			}

			out := cmd.OutOrStdout()
			for _, k := range keys.All() {
				item, ok := items[k]
				if !ok {
					continue
				}
				var pretty bytes.Buffer
				if err := json.Indent(&pretty, item.Value, "", "  "); err != nil {
					pretty.Reset()
					pretty.Write(item.Value)
				}
				fmt.Fprintf(out, "# %s (etag %s)\n%s\n", k, item.ETag, pretty.String())
			}
			return nil
		},
	}
	cmd.Flags().String("user", "user", "User id whose scope is shown")
	cmd.Flags().Bool("mask", false, "Hide values of keys listed in storage.mask_keys")
	return cmd
}

func newStateRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <conversation-id>...",
		Short: "Remove the state of one or more conversations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			channel, _ := cmd.Flags().GetString("channel")
			user, _ := cmd.Flags().GetString("user")
			out := cmd.OutOrStdout()

			var failed int
			for _, conv := range args {
				if err := deleteConversation(cmd.Context(), env, channel, conv, user); err != nil {
					fmt.Fprintf(out, "Error removing '%s': %v\n", conv, err)
					failed++
					continue
				}
				fmt.Fprintf(out, "Removed conversation '%s'\n", conv)
			}
			if failed > 0 {
				return fmt.Errorf("%d conversations could not be removed", failed)
			}
			return nil
		},
	}
	cmd.Flags().String("user", "", "Also remove this user's scope")
	return cmd
}
