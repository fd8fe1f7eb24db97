package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"meshpm/internal/config"
	"meshpm/internal/migrate"
	"meshpm/internal/store"
	"meshpm/internal/testsupport"
)

func migrationPaths(t *testing.T) (dbPath, legacyPath string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, config.DatabaseFileName), filepath.Join(dir, config.LegacyDataFileName)
}

func TestRunMigratesLegacyServices(t *testing.T) {
	dbPath, legacyPath := migrationPaths(t)
	testsupport.SeedLegacyDocument(t, legacyPath,
		store.DocumentService{ID: 3, Name: "web", Command: "node server.js"},
		store.DocumentService{ID: 7, Name: "worker", Command: "node worker.js"},
	)

	res, err := migrate.Run(context.Background(), dbPath, legacyPath, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Migrated != 2 || res.Skipped != 0 {
		t.Fatalf("expected 2 migrated, 0 skipped, got %d/%d", res.Migrated, res.Skipped)
	}
	if res.MarkerPath != legacyPath+config.MigratedSuffix {
		t.Fatalf("unexpected marker path %q", res.MarkerPath)
	}

	if _, err := os.Stat(legacyPath); !os.IsNotExist(err) {
		t.Fatalf("legacy file should be renamed away, stat err = %v", err)
	}
	if _, err := os.Stat(res.MarkerPath); err != nil {
		t.Fatalf("marker file missing: %v", err)
	}

	s, err := store.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open migrated database: %v", err)
	}
	defer s.Close()

	svc, err := s.Service(context.Background(), 7)
	if err != nil {
		t.Fatalf("Service: %v", err)
	}
	if svc == nil {
		t.Fatal("expected service 7 after migration")
	}
	if svc.Name != "worker" {
		t.Fatalf("service 7 name = %q, want worker", svc.Name)
	}
}

func TestRunSkipsExistingServices(t *testing.T) {
	dbPath, legacyPath := migrationPaths(t)
	testsupport.SeedLegacyDocument(t, legacyPath,
		store.DocumentService{ID: 1, Name: "web", Command: "node server.js"},
		store.DocumentService{ID: 2, Name: "worker", Command: "node worker.js"},
	)

	// Simulate an interrupted earlier run that copied one record.
	s, err := store.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := s.ImportService(context.Background(), store.Service{ID: 1, Name: "web", Command: "node server.js"}); err != nil {
		t.Fatalf("ImportService: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close database: %v", err)
	}

	res, err := migrate.Run(context.Background(), dbPath, legacyPath, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Migrated != 1 || res.Skipped != 1 {
		t.Fatalf("expected 1 migrated, 1 skipped, got %d/%d", res.Migrated, res.Skipped)
	}
	if _, err := os.Stat(legacyPath); !os.IsNotExist(err) {
		t.Fatalf("legacy file should be renamed away, stat err = %v", err)
	}
}

func TestRunMissingLegacyFile(t *testing.T) {
	dbPath, legacyPath := migrationPaths(t)

	if _, err := migrate.Run(context.Background(), dbPath, legacyPath, false); err == nil {
		t.Fatal("expected error for missing legacy file")
	}
}

func TestRunMalformedLegacyFile(t *testing.T) {
	dbPath, legacyPath := migrationPaths(t)
	if err := os.WriteFile(legacyPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}

	if _, err := migrate.Run(context.Background(), dbPath, legacyPath, false); err == nil {
		t.Fatal("expected error for malformed legacy file")
	}
	if _, err := os.Stat(legacyPath); err != nil {
		t.Fatalf("legacy file should be left in place after failure: %v", err)
	}
}

func TestRunDryRunCreatesNothing(t *testing.T) {
	dbPath, legacyPath := migrationPaths(t)
	testsupport.SeedLegacyDocument(t, legacyPath,
		store.DocumentService{ID: 1, Name: "web", Command: "node server.js"},
		store.DocumentService{ID: 2, Name: "worker", Command: "node worker.js"},
	)

	res, err := migrate.Run(context.Background(), dbPath, legacyPath, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Migrated != 2 || res.Skipped != 0 {
		t.Fatalf("expected 2 migrated, 0 skipped, got %d/%d", res.Migrated, res.Skipped)
	}

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatalf("dry run must not create the database, stat err = %v", err)
	}
	if _, err := os.Stat(legacyPath); err != nil {
		t.Fatalf("dry run must leave the legacy file in place: %v", err)
	}
}

func TestRunDryRunCountsExisting(t *testing.T) {
	dbPath, legacyPath := migrationPaths(t)
	testsupport.SeedLegacyDocument(t, legacyPath,
		store.DocumentService{ID: 1, Name: "web", Command: "node server.js"},
		store.DocumentService{ID: 2, Name: "worker", Command: "node worker.js"},
	)

	s, err := store.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := s.ImportService(context.Background(), store.Service{ID: 2, Name: "worker", Command: "node worker.js"}); err != nil {
		t.Fatalf("ImportService: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close database: %v", err)
	}

	res, err := migrate.Run(context.Background(), dbPath, legacyPath, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Migrated != 1 || res.Skipped != 1 {
		t.Fatalf("expected 1 migrated, 1 skipped, got %d/%d", res.Migrated, res.Skipped)
	}
	if _, err := os.Stat(legacyPath); err != nil {
		t.Fatalf("dry run must leave the legacy file in place: %v", err)
	}
}
