package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"meshpm/internal/control"
)

const (
	daemonStartTimeout = 10 * time.Second
	daemonStopGrace    = 5 * time.Second
)

func newDaemonCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the daemon process",
	}
	cmd.AddCommand(newDaemonStartCommand(cctx))
	cmd.AddCommand(newDaemonStopCommand(cctx))
	cmd.AddCommand(newDaemonStatusCommand(cctx))
	return cmd
}

func newDaemonStartCommand(cctx *commandContext) *cobra.Command {
	var driverName string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Launch the daemon in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := cctx.clientConfig()
			if err != nil {
				return err
			}

			if client, err := control.NewFromConfig(cfg); err == nil {
				if _, err := client.Status(cmd.Context()); err == nil {
					fmt.Fprintln(stdout, "Daemon already running")
					return nil
				}
			}

			exe, err := control.DaemonExecutable()
			if err != nil {
				return err
			}
			port, err := listenPortFromAddress(cfg.Address)
			if err != nil {
				return err
			}

			fmt.Fprintln(stdout, "Daemon not running, launching...")
			pid, err := control.Launch(exe, control.LaunchOptions{
				ListenPort: port,
				BaseDir:    cfg.BaseDir,
				Driver:     driverName,
			})
			if err != nil {
				return err
			}
			if err := control.WaitForReady(cmd.Context(), cfg, daemonStartTimeout); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Daemon started (pid %d)\n", pid)
			return nil
		},
	}
	cmd.Flags().StringVarP(&driverName, "driver", "d", "", "Process driver for the launched daemon")
	return cmd
}

func newDaemonStopCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := cctx.clientConfig()
			if err != nil {
				return err
			}

			res, err := control.StopAndTerminate(cfg, daemonStopGrace)
			if errors.Is(err, control.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if res.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time, killed (pid %d)\n", res.PID)
				return nil
			}
			fmt.Fprintf(stdout, "Daemon stopped (pid %d)\n", res.PID)
			return nil
		},
	}
}

func newDaemonStatusCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			cfg, err := cctx.clientConfig()
			if err != nil {
				return err
			}
			client, err := control.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			status, err := client.Status(cmd.Context())
			if errors.Is(err, control.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Daemon running (pid %d, %d services, %d running)\n",
				status.PID, status.ServiceCount, status.RunningCount)
			return nil
		},
	}
}

func listenPortFromAddress(address string) (int, error) {
	_, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return 0, fmt.Errorf("parse daemon address %q: %w", address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("daemon address %q has no usable port", address)
	}
	return port, nil
}
