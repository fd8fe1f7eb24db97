package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"meshpm/internal/control"
)

func newStatusCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withClient(func(client *control.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				fmt.Fprintln(stdout, sectionHeader("Daemon", shouldColorize(stdout)))
				fmt.Fprintln(stdout, detailLine("Name", fmt.Sprintf("%s %s (pid %d)", status.Name, status.Version, status.PID)))
				fmt.Fprintln(stdout, detailLine("Driver", titleCase(status.Driver)))
				fmt.Fprintln(stdout, detailLine("Backend", fmt.Sprintf("%s (%s)", status.Backend, status.BackendPath)))
				fmt.Fprintln(stdout, detailLine("Base directory", status.BaseDir))
				fmt.Fprintln(stdout, detailLine("Listen port", strconv.Itoa(status.ListenPort)))
				fmt.Fprintln(stdout, detailLine("Service ports", fmt.Sprintf("%d + service id", status.BasePort)))
				fmt.Fprintln(stdout, detailLine("Uptime", formatUptime(status.UptimeSeconds)))
				fmt.Fprintln(stdout, detailLine("Services", fmt.Sprintf("%d registered, %d running", status.ServiceCount, status.RunningCount)))
				return nil
			})
		},
	}
}
