package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"meshpm/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "meshpm %s\n", version.String())
		},
	}
}
