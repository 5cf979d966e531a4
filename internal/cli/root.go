// Package cli implements the snakebridge command line.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command. Without a subcommand it serves.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snakebridge",
		Short: "snakebridge - Battlesnake HTTP bridge",
		Long: `A Battlesnake server that forwards each HTTP request to an in-process
game engine and answers with the engine's reply.

Run without a subcommand to serve.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewCallCommand())
	cmd.AddCommand(NewDecidersCommand())

	return cmd
}
