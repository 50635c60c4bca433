package main

import (
	"fmt"

	"github.com/spf13/cobra"

	botbuilder "github.com/edboykin-insight/botbuilder-dotnet"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of botbuilder",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "botbuilder version %s\n", botbuilder.Version)
		},
	}
}
