package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"meshpm/internal/config"
	"meshpm/internal/migrate"
)

func newMigrateCommand(cctx *commandContext) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy legacy JSON data into the SQLite backend",
		Long: "Copies service records from the legacy strong-pm.json document into the\n" +
			"SQLite backend, preserving service ids, then renames the legacy file.\n" +
			"Run it while the daemon is stopped; a starting daemon migrates on its own.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.clientConfig()
			if err != nil {
				return err
			}

			legacyPath := filepath.Join(cfg.BaseDir, config.LegacyDataFileName)
			if raw := strings.TrimSpace(os.Getenv(config.EnvDataFile)); raw != "" {
				expanded, err := config.ExpandPath(raw)
				if err != nil {
					return err
				}
				legacyPath = expanded
			}
			dbPath := filepath.Join(cfg.BaseDir, config.DatabaseFileName)

			res, err := migrate.Run(cmd.Context(), dbPath, legacyPath, dryRun)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(stdout, "Would migrate %d services (%d already present) from %s\n",
					res.Migrated, res.Skipped, res.LegacyPath)
				return nil
			}
			fmt.Fprintf(stdout, "Migrated %d services (%d already present)\n", res.Migrated, res.Skipped)
			fmt.Fprintf(stdout, "Legacy file kept at %s\n", res.MarkerPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be migrated without writing")
	return cmd
}
