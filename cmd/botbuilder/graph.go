package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edboykin-insight/botbuilder-dotnet/internal/presentation/graph"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/state"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the dialog call graph as a Mermaid diagram",
		Long: `Prints a Mermaid flowchart of the dialogs and the calls and gotos between them.
With --conversation, the dialogs open in that conversation are highlighted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			def, err := env.LoadDefinition()
			if err != nil {
				return err
			}

			var overlay *graph.Overlay
			if conv, _ := cmd.Flags().GetString("conversation"); conv != "" {
				channel, _ := cmd.Flags().GetString("channel")
				key := state.KeysFor(address(channel, conv, "")).Dialog
				items, err := env.Sessions.Inspect(cmd.Context(), key)
				if err != nil {
					return fmt.Errorf("reading dialog stack: %w", err)
				}
				item, ok := items[key]
				if !ok {
					return fmt.Errorf("no dialog stack stored for conversation '%s'", conv)
				}
				var stack domain.Stack
				if err := json.Unmarshal(item.Value, &stack); err != nil {
					return fmt.Errorf("decoding dialog stack: %w", err)
				}
				overlay = graph.OverlayFor(&stack)
			}

			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(def.Dialogs, def.Root, overlay))
			return nil
		},
	}
	cmd.Flags().String("conversation", "", "Highlight the open dialogs of this conversation")
	cmd.Flags().String("channel", "console", "Channel id of the conversation")
	return cmd
}
