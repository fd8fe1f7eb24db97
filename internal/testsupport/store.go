package testsupport

import (
	"context"
	"testing"

	"meshpm/internal/config"
	"meshpm/internal/store"
)

// MustOpenStore opens the store selected by cfg for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// MustCreateService registers a service for tests using the provided store.
func MustCreateService(t testing.TB, s store.Store, name, command string) *store.Service {
	t.Helper()

	svc, err := s.CreateService(context.Background(), name, command)
	if err != nil {
		t.Fatalf("store.CreateService: %v", err)
	}
	return svc
}
