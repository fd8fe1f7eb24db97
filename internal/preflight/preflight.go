package preflight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"meshpm/internal/config"
	"meshpm/internal/fileutil"
	"meshpm/internal/logging"
	"meshpm/internal/migrate"
)

// ErrBackendConflict reports on-disk state belonging to the backend the
// operator did not select.
var ErrBackendConflict = errors.New("backend conflict")

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the environment checks for the given config. Backend
// gating is a separate, fatal step; see EnsureBackend.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("base directory", cfg.BaseDir),
		CheckDriverBinary(cfg.DriverName),
	}
}

// EnsureBackend validates the environment and gates startup on the storage
// backend state. With the SQLite backend active, a legacy JSON data file is
// migrated in before the store opens. With the JSON backend active, a
// SQLite database in the base directory is a hard conflict the operator has
// to resolve. It runs before any server state is constructed; after a
// successful migration a rerun finds nothing to do.
func EnsureBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}

	for _, res := range RunAll(cfg) {
		if !res.Passed {
			return fmt.Errorf("%s: %s", res.Name, res.Detail)
		}
	}

	switch cfg.Backend {
	case config.BackendSQLite:
		return ensurePrimary(ctx, cfg, logger)
	case config.BackendJSONFile:
		return ensureLegacy(cfg)
	default:
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func ensurePrimary(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	exists, err := fileutil.Exists(cfg.LegacyDataFile)
	if err != nil {
		return fmt.Errorf("probe legacy data file: %w", err)
	}
	if !exists {
		return nil
	}

	logger.Info("legacy data file found, migrating",
		logging.String("path", cfg.LegacyDataFile),
		logging.String("database", cfg.DatabasePath()))
	res, err := migrate.Run(ctx, cfg.DatabasePath(), cfg.LegacyDataFile, false)
	if err != nil {
		logger.Error("failed to migrate legacy data file",
			logging.Int("pid", os.Getpid()),
			logging.Error(err))
		return fmt.Errorf("migrate legacy data file: %w", err)
	}
	logger.Info("migration complete",
		logging.Int("migrated", res.Migrated),
		logging.Int("skipped", res.Skipped),
		logging.String("marker", res.MarkerPath))
	return nil
}

func ensureLegacy(cfg *config.Config) error {
	dbPath := cfg.DatabasePath()
	exists, err := fileutil.Exists(dbPath)
	if err != nil {
		return fmt.Errorf("probe database file: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s exists; remove it to keep the JSON backend, or drop --json-file-db to use it", ErrBackendConflict, dbPath)
	}
	return nil
}
