package main

import (
	"github.com/spf13/cobra"

	"meshpm/internal/version"
)

func newRootCommand() *cobra.Command {
	var addressFlag string
	var configFlag string

	cctx := newCommandContext(&addressFlag, &configFlag)

	rootCmd := &cobra.Command{
		Use:           "meshpm",
		Short:         "Control CLI for the meshpmd process manager",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&addressFlag, "address", "a", "", "Daemon control API address (host:port)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Client config file path")

	rootCmd.AddCommand(newStatusCommand(cctx))
	rootCmd.AddCommand(newServicesCommand(cctx))
	rootCmd.AddCommand(newLogsCommand(cctx))
	rootCmd.AddCommand(newMigrateCommand(cctx))
	rootCmd.AddCommand(newDaemonCommand(cctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
