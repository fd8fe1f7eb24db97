package store_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"meshpm/internal/config"
	"meshpm/internal/store"
	"meshpm/internal/testsupport"
)

// Both backends must behave identically through the Store interface, so the
// core registry behavior runs against each.
func forEachBackend(t *testing.T, fn func(t *testing.T, s store.Store)) {
	t.Helper()
	for _, backend := range []string{config.BackendSQLite, config.BackendJSONFile} {
		t.Run(backend, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithBackend(backend))
			s := testsupport.MustOpenStore(t, cfg)
			fn(t, s)
		})
	}
}

func TestCreateAndFetchService(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()

		svc, err := s.CreateService(ctx, "web", "node server.js")
		if err != nil {
			t.Fatalf("CreateService failed: %v", err)
		}
		if svc.ID == 0 {
			t.Fatal("expected service ID to be assigned")
		}
		if svc.CreatedAt.IsZero() || svc.UpdatedAt.IsZero() {
			t.Fatalf("expected timestamps to be set: %#v", svc)
		}

		fetched, err := s.Service(ctx, svc.ID)
		if err != nil {
			t.Fatalf("Service failed: %v", err)
		}
		if fetched == nil || fetched.Name != "web" || fetched.Command != "node server.js" {
			t.Fatalf("unexpected fetched service: %#v", fetched)
		}

		byName, err := s.ServiceByName(ctx, "web")
		if err != nil {
			t.Fatalf("ServiceByName failed: %v", err)
		}
		if byName == nil || byName.ID != svc.ID {
			t.Fatalf("expected to find service by name, got %#v", byName)
		}
	})
}

func TestMissingServiceYieldsNil(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()

		svc, err := s.Service(ctx, 999)
		if err != nil {
			t.Fatalf("Service failed: %v", err)
		}
		if svc != nil {
			t.Fatalf("expected nil for missing id, got %#v", svc)
		}

		svc, err = s.ServiceByName(ctx, "ghost")
		if err != nil {
			t.Fatalf("ServiceByName failed: %v", err)
		}
		if svc != nil {
			t.Fatalf("expected nil for missing name, got %#v", svc)
		}
	})
}

func TestDuplicateNameRejected(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()

		if _, err := s.CreateService(ctx, "web", "node a.js"); err != nil {
			t.Fatalf("CreateService failed: %v", err)
		}
		_, err := s.CreateService(ctx, "web", "node b.js")
		if !errors.Is(err, store.ErrServiceExists) {
			t.Fatalf("expected ErrServiceExists, got %v", err)
		}
	})
}

func TestServicesOrderedByID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			if _, err := s.CreateService(ctx, fmt.Sprintf("svc-%d", i), "sleep 60"); err != nil {
				t.Fatalf("CreateService failed: %v", err)
			}
		}

		services, err := s.Services(ctx)
		if err != nil {
			t.Fatalf("Services failed: %v", err)
		}
		if len(services) != 3 {
			t.Fatalf("expected 3 services, got %d", len(services))
		}
		for i := 1; i < len(services); i++ {
			if services[i].ID <= services[i-1].ID {
				t.Fatalf("services out of order: %#v", services)
			}
		}
	})
}

func TestRemoveService(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()

		svc := testsupport.MustCreateService(t, s, "doomed", "sleep 60")
		if err := s.RemoveService(ctx, svc.ID); err != nil {
			t.Fatalf("RemoveService failed: %v", err)
		}

		fetched, err := s.Service(ctx, svc.ID)
		if err != nil {
			t.Fatalf("Service failed: %v", err)
		}
		if fetched != nil {
			t.Fatalf("expected service gone, got %#v", fetched)
		}

		err = s.RemoveService(ctx, svc.ID)
		if !errors.Is(err, store.ErrServiceNotFound) {
			t.Fatalf("expected ErrServiceNotFound, got %v", err)
		}
	})
}

func TestImportServicePreservesIdentity(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()

		imported := store.Service{ID: 12, Name: "legacy-app", Command: "node app.js"}
		if err := s.ImportService(ctx, imported); err != nil {
			t.Fatalf("ImportService failed: %v", err)
		}

		fetched, err := s.Service(ctx, 12)
		if err != nil {
			t.Fatalf("Service failed: %v", err)
		}
		if fetched == nil || fetched.Name != "legacy-app" {
			t.Fatalf("expected imported record under original id, got %#v", fetched)
		}

		err = s.ImportService(ctx, imported)
		if !errors.Is(err, store.ErrServiceExists) {
			t.Fatalf("expected ErrServiceExists on re-import, got %v", err)
		}

		// Later creates must allocate past the imported id.
		svc, err := s.CreateService(ctx, "after-import", "sleep 60")
		if err != nil {
			t.Fatalf("CreateService failed: %v", err)
		}
		if svc.ID <= 12 {
			t.Fatalf("expected id beyond imported range, got %d", svc.ID)
		}
	})
}

func TestRemovedIDNotReused(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()

		first := testsupport.MustCreateService(t, s, "first", "sleep 60")
		if err := s.RemoveService(ctx, first.ID); err != nil {
			t.Fatalf("RemoveService failed: %v", err)
		}
		second := testsupport.MustCreateService(t, s, "second", "sleep 60")
		if second.ID <= first.ID {
			t.Fatalf("expected fresh id after removal, got %d (was %d)", second.ID, first.ID)
		}
	})
}

func TestSQLiteStateSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	svc := testsupport.MustCreateService(t, s, "persisted", "sleep 60")
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := store.OpenSQLite(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	fetched, err := reopened.Service(context.Background(), svc.ID)
	if err != nil {
		t.Fatalf("Service failed: %v", err)
	}
	if fetched == nil || fetched.Name != "persisted" {
		t.Fatalf("expected persisted service after reopen, got %#v", fetched)
	}
}

func TestSQLiteSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err := store.OpenSQLite(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	_ = db.Close()

	// Forge a future schema version and expect open to refuse.
	raw, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	if _, err := raw.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = raw.Close()

	_, err = store.OpenSQLite(cfg.DatabasePath())
	if !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestJSONFileDocumentShape(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackend(config.BackendJSONFile))
	s := testsupport.MustOpenStore(t, cfg)
	testsupport.MustCreateService(t, s, "web", "node server.js")

	data, err := os.ReadFile(cfg.LegacyDataFile)
	if err != nil {
		t.Fatalf("read data file: %v", err)
	}
	for _, needle := range []string{`"version": 1`, `"services"`, `"name": "web"`} {
		if !strings.Contains(string(data), needle) {
			t.Fatalf("expected %q in document, got %s", needle, data)
		}
	}
}

func TestJSONFileMissingFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.LegacyDataFileName)
	s, err := store.OpenJSONFile(path)
	if err != nil {
		t.Fatalf("OpenJSONFile failed: %v", err)
	}
	defer s.Close()

	services, err := s.Services(context.Background())
	if err != nil {
		t.Fatalf("Services failed: %v", err)
	}
	if len(services) != 0 {
		t.Fatalf("expected empty store, got %#v", services)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected file not created until first mutation")
	}
}

func TestJSONFileRejectsFutureVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.LegacyDataFileName)
	if err := os.WriteFile(path, []byte(`{"version": 9, "services": []}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := store.OpenJSONFile(path)
	if !errors.Is(err, store.ErrDocumentVersion) {
		t.Fatalf("expected ErrDocumentVersion, got %v", err)
	}
}

func TestJSONFileHealsNextID(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.LegacyDataFileName)
	testsupport.SeedLegacyDocument(t, path,
		store.DocumentService{ID: 7, Name: "old", Command: "sleep 60"},
	)
	// Drop nextId to simulate an older writer.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	delete(doc, "nextId")
	patched, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, patched, 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := store.OpenJSONFile(path)
	if err != nil {
		t.Fatalf("OpenJSONFile failed: %v", err)
	}
	defer s.Close()

	svc, err := s.CreateService(context.Background(), "new", "sleep 60")
	if err != nil {
		t.Fatalf("CreateService failed: %v", err)
	}
	if svc.ID != 8 {
		t.Fatalf("expected healed id 8, got %d", svc.ID)
	}
}
