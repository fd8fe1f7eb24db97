// Package migrate copies a legacy JSON service registry into the SQLite
// backend. It runs at most once per deployment: success renames the legacy
// file so later startups see nothing to do, failure leaves it in place so
// the next start retries.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"

	"meshpm/internal/config"
	"meshpm/internal/fileutil"
	"meshpm/internal/store"
)

// Result summarizes a migration run.
type Result struct {
	Migrated   int
	Skipped    int
	LegacyPath string
	MarkerPath string
}

// Run copies every service record from the legacy document at legacyPath
// into the SQLite store at dbPath, preserving ids, then renames the legacy
// file with the migrated suffix. Records already present are skipped so an
// interrupted run can resume. With dryRun set nothing is written; the result
// reports what a real run would do.
func Run(ctx context.Context, dbPath, legacyPath string, dryRun bool) (Result, error) {
	res := Result{
		LegacyPath: legacyPath,
		MarkerPath: legacyPath + config.MigratedSuffix,
	}

	exists, err := fileutil.Exists(legacyPath)
	if err != nil {
		return res, fmt.Errorf("probe legacy data file: %w", err)
	}
	if !exists {
		return res, fmt.Errorf("no legacy data file at %s", legacyPath)
	}

	legacy, err := store.OpenJSONFile(legacyPath)
	if err != nil {
		return res, fmt.Errorf("open legacy data file: %w", err)
	}
	defer legacy.Close()

	services, err := legacy.Services(ctx)
	if err != nil {
		return res, fmt.Errorf("read legacy services: %w", err)
	}

	if dryRun {
		return dryRunResult(ctx, res, dbPath, services)
	}

	dest, err := store.OpenSQLite(dbPath)
	if err != nil {
		return res, fmt.Errorf("open destination database: %w", err)
	}
	defer dest.Close()

	for _, svc := range services {
		err := dest.ImportService(ctx, svc)
		if errors.Is(err, store.ErrServiceExists) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("copy service %q: %w", svc.Name, err)
		}
		res.Migrated++
	}

	if err := os.Rename(legacyPath, res.MarkerPath); err != nil {
		return res, fmt.Errorf("mark legacy data file migrated: %w", err)
	}

	return res, nil
}

// dryRunResult computes counts without mutating anything. When the database
// does not exist yet it is not created; every record counts as pending.
func dryRunResult(ctx context.Context, res Result, dbPath string, services []store.Service) (Result, error) {
	dbExists, err := fileutil.Exists(dbPath)
	if err != nil {
		return res, fmt.Errorf("probe destination database: %w", err)
	}
	if !dbExists {
		res.Migrated = len(services)
		return res, nil
	}

	dest, err := store.OpenSQLite(dbPath)
	if err != nil {
		return res, fmt.Errorf("open destination database: %w", err)
	}
	defer dest.Close()

	for _, svc := range services {
		existing, err := dest.Service(ctx, svc.ID)
		if err != nil {
			return res, fmt.Errorf("check service %q: %w", svc.Name, err)
		}
		if existing == nil {
			byName, err := dest.ServiceByName(ctx, svc.Name)
			if err != nil {
				return res, fmt.Errorf("check service %q: %w", svc.Name, err)
			}
			existing = byName
		}
		if existing != nil {
			res.Skipped++
		} else {
			res.Migrated++
		}
	}
	return res, nil
}
