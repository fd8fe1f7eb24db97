package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"meshpm/internal/fileutil"
)

func newLogsCommand(cctx *commandContext) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the tail of the daemon log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.clientConfig()
			if err != nil {
				return err
			}

			tail, err := fileutil.TailLines(cfg.DaemonLogPath(), lines)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("no daemon log at %s", cfg.DaemonLogPath())
				}
				return err
			}

			stdout := cmd.OutOrStdout()
			for _, line := range tail {
				fmt.Fprintln(stdout, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 25, "Number of log lines to show")
	return cmd
}
