package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edboykin-insight/botbuilder-dotnet/internal/validator"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/loader"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Check a bot definition for consistency",
		Long: `Loads the definition and crawls the dialogs from the root, reporting broken
dialog references, invalid expressions and patterns, and unreachable dialogs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("bot")
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				path = "."
			}

			def, err := loader.Load(path)
			if err != nil {
				return err
			}
			if _, err := def.Options(); err != nil {
				return err
			}

			report := validator.ValidateDialogs(def.Dialogs, def.Root, nil)
			out := cmd.OutOrStdout()
			for _, w := range report.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			if err := report.Err(); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			fmt.Fprintf(out, "Definition is valid: %d dialogs, root '%s' ✅\n", len(def.Dialogs), def.Root)
			return nil
		},
	}
}
