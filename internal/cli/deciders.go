package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seantiz/snakebridge/internal/engine"
)

// NewDecidersCommand creates the deciders command.
func NewDecidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "deciders",
		Short:         "List the deciders SNAKEBRIDGE_DECIDER can select",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range engine.DefaultRegistry().Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
