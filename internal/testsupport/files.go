package testsupport

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"

	"meshpm/internal/store"
)

// SeedLegacyDocument writes a JSON data file with the given service records,
// mirroring what a pre-SQLite deployment would leave behind.
func SeedLegacyDocument(t testing.TB, path string, services ...store.DocumentService) {
	t.Helper()

	nextID := int64(1)
	for _, svc := range services {
		if svc.ID >= nextID {
			nextID = svc.ID + 1
		}
	}
	doc := store.Document{Version: 1, NextID: nextID, Services: services}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("encode legacy document: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// FreePort reserves an ephemeral TCP port and releases it for the caller.
// There is a small race window, acceptable for tests.
func FreePort(t testing.TB) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return port
}
