package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"meshpm/internal/api"
	"meshpm/internal/control"
)

func newServicesCommand(cctx *commandContext) *cobra.Command {
	servicesCmd := &cobra.Command{
		Use:     "services",
		Aliases: []string{"ls"},
		Short:   "List and manage services",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServicesList(cctx, cmd)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServicesList(cctx, cmd)
		},
	}

	var addCommand string
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a new service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := strings.TrimSpace(addCommand)
			if command == "" {
				return fmt.Errorf("--command is required")
			}
			return cctx.withClient(func(client *control.Client) error {
				svc, err := client.CreateService(cmd.Context(), args[0], command)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered service %s (id %d, port %d)\n", svc.Name, svc.ID, svc.Port)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&addCommand, "command", "", "Command line the service runs (required)")

	rmCmd := &cobra.Command{
		Use:   "rm <id|name>",
		Short: "Remove a service, stopping it first if running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withClient(func(client *control.Client) error {
				svc, err := resolveService(cmd.Context(), client, args[0])
				if err != nil {
					return err
				}
				if err := client.RemoveService(cmd.Context(), svc.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed service %s\n", svc.Name)
				return nil
			})
		},
	}

	startCmd := &cobra.Command{
		Use:   "start <id|name>",
		Short: "Start a service under the daemon's driver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withClient(func(client *control.Client) error {
				svc, err := resolveService(cmd.Context(), client, args[0])
				if err != nil {
					return err
				}
				started, err := client.StartService(cmd.Context(), svc.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Started %s on port %d\n", started.Name, started.Port)
				return nil
			})
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop <id|name>",
		Short: "Stop a running service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cctx.withClient(func(client *control.Client) error {
				svc, err := resolveService(cmd.Context(), client, args[0])
				if err != nil {
					return err
				}
				stopped, err := client.StopService(cmd.Context(), svc.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stopped %s\n", stopped.Name)
				return nil
			})
		},
	}

	servicesCmd.AddCommand(listCmd, addCmd, rmCmd, startCmd, stopCmd)
	return servicesCmd
}

func runServicesList(cctx *commandContext, cmd *cobra.Command) error {
	return cctx.withClient(func(client *control.Client) error {
		services, err := client.Services(cmd.Context())
		if err != nil {
			return err
		}

		stdout := cmd.OutOrStdout()
		if len(services) == 0 {
			fmt.Fprintln(stdout, "No services registered")
			return nil
		}

		rows := make([][]string, 0, len(services))
		for _, svc := range services {
			rows = append(rows, []string{
				strconv.FormatInt(svc.ID, 10),
				svc.Name,
				svc.Command,
				strconv.Itoa(svc.Port),
				titleCase(svc.State),
				formatUptime(svc.UptimeSeconds),
			})
		}
		fmt.Fprintln(stdout, renderServiceTable(rows))
		return nil
	})
}

// resolveService accepts either a numeric id or an exact service name.
func resolveService(ctx context.Context, client *control.Client, selector string) (*api.ServiceInfo, error) {
	services, err := client.Services(ctx)
	if err != nil {
		return nil, err
	}
	if id, err := strconv.ParseInt(selector, 10, 64); err == nil {
		for i := range services {
			if services[i].ID == id {
				return &services[i], nil
			}
		}
	}
	for i := range services {
		if services[i].Name == selector {
			return &services[i], nil
		}
	}
	return nil, fmt.Errorf("no service matches %q", selector)
}
