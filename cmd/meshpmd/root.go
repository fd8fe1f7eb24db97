package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"meshpm/internal/bootstrap"
	"meshpm/internal/config"
	"meshpm/internal/logging"
	"meshpm/internal/version"
)

func newRootCommand() *cobra.Command {
	var (
		baseDir     string
		configPath  string
		driverName  string
		listenPort  int
		noControl   bool
		skipInstall bool
		basePort    int
		jsonFileDB  bool
		logLevel    string
		logFormat   string
	)

	cmd := &cobra.Command{
		Use:           "meshpmd",
		Short:         "Service process manager daemon",
		Long:          "meshpmd supervises application processes, exposing an HTTP control API\nand persisting its service registry under a base directory.",
		Version:       version.String(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(config.Options{
				BaseDir:            baseDir,
				DriverName:         driverName,
				ListenPort:         listenPort,
				BasePort:           basePort,
				SkipDefaultInstall: skipInstall,
				JSONFileDB:         jsonFileDB,
				LogLevel:           logLevel,
				LogFormat:          logFormat,
				Argv0:              os.Args[0],
			})
			if err != nil {
				return err
			}

			logger, err := logging.NewDaemonLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogDir())
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			// Both flags exist for command line compatibility with older
			// deployments and change nothing.
			if configPath != "" {
				logger.Warn("daemon configuration comes from flags; config file ignored",
					logging.String("path", configPath))
			}
			if noControl {
				logger.Warn("--no-control is ignored; the control API always runs")
			}

			return bootstrap.Run(cmd.Context(), cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&baseDir, "base", "b", "", "Base directory for service state and logs")
	flags.StringVarP(&configPath, "config", "c", "", "Config file path (accepted for compatibility, ignored)")
	flags.StringVarP(&driverName, "driver", "d", "", "Process driver: direct or docker")
	flags.IntVarP(&listenPort, "listen", "l", 0, "Control API listen port (required)")
	flags.BoolVarP(&noControl, "no-control", "N", false, "Disable the control channel (accepted for compatibility, ignored)")
	flags.BoolVarP(&skipInstall, "skip-default-install", "s", false, "Do not seed a default service into an empty registry")
	flags.IntVarP(&basePort, "base-port", "P", 0, "Anchor for the service port convention (default 3000)")
	flags.BoolVarP(&jsonFileDB, "json-file-db", "M", false, "Use the legacy JSON file backend instead of SQLite")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "", "Log format: console or json")

	return cmd
}
