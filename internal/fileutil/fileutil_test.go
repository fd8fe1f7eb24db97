package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.txt")
	if err := os.WriteFile(present, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ok, err := Exists(present)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected existing file to be reported present")
	}

	ok, err = Exists(filepath.Join(dir, "absent.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected missing file to be reported absent")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	if err := WriteFileAtomic(path, []byte(`{"version":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"version":1}` {
		t.Fatalf("content mismatch: got %q", got)
	}

	// Overwrite must replace the previous content completely.
	if err := WriteFileAtomic(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{}` {
		t.Fatalf("content after overwrite: got %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestWriteFileAtomic_MissingDirectory(t *testing.T) {
	dir := t.TempDir()
	err := WriteFileAtomic(filepath.Join(dir, "nope", "state.json"), []byte("x"), 0o644)
	if err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

func TestTailLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daemon.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\nd\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	lines, err := TailLines(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0] != "c" || lines[1] != "d" {
		t.Fatalf("unexpected tail: %v", lines)
	}

	lines, err = TailLines(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 4 {
		t.Fatalf("expected all lines when n exceeds file length, got %v", lines)
	}

	lines, err = TailLines(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines for n=0, got %v", lines)
	}
}

func TestTailLines_MissingFile(t *testing.T) {
	if _, err := TailLines(filepath.Join(t.TempDir(), "nope.log"), 5); err == nil {
		t.Fatal("expected error for missing file")
	}
}
