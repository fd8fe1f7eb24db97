package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"meshpm/internal/config"
)

// Resolve changes the working directory into the base dir; every test that
// calls it restores the original so later tests see a stable cwd.
func restoreWorkingDir(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(orig); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}

func TestResolveDefaults(t *testing.T) {
	restoreWorkingDir(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.EnvBasePort, "")
	t.Setenv(config.EnvDataFile, "")
	t.Setenv(config.EnvName, "")
	t.Setenv(config.EnvSkipDefaultInstall, "")

	cfg, err := config.Resolve(config.Options{ListenPort: 8701, Argv0: "/usr/local/bin/meshpmd"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	wantBase := filepath.Join(tempHome, ".local", "share", "meshpm")
	if cfg.BaseDir != wantBase {
		t.Fatalf("unexpected base dir: got %q want %q", cfg.BaseDir, wantBase)
	}
	if cfg.BasePort != config.DefaultBasePort {
		t.Fatalf("unexpected base port: %d", cfg.BasePort)
	}
	if cfg.Backend != config.BackendSQLite {
		t.Fatalf("expected sqlite backend by default, got %q", cfg.Backend)
	}
	if cfg.DriverName != config.DefaultDriver {
		t.Fatalf("expected default driver, got %q", cfg.DriverName)
	}
	if cfg.Name != "meshpmd" {
		t.Fatalf("expected display name from argv0, got %q", cfg.Name)
	}
	if cfg.SkipDefaultInstall {
		t.Fatal("expected default install enabled by default")
	}
	if cfg.LegacyDataFile != filepath.Join(wantBase, config.LegacyDataFileName) {
		t.Fatalf("unexpected legacy data file: %q", cfg.LegacyDataFile)
	}
	if cfg.DatabasePath() != filepath.Join(wantBase, config.DatabaseFileName) {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}

	for _, dir := range []string{cfg.BaseDir, cfg.LogDir(), cfg.ServiceLogDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if resolved, err := filepath.EvalSymlinks(cwd); err == nil {
		cwd = resolved
	}
	wantCwd, err := filepath.EvalSymlinks(cfg.BaseDir)
	if err != nil {
		t.Fatalf("eval base dir: %v", err)
	}
	if cwd != wantCwd {
		t.Fatalf("expected cwd %q, got %q", wantCwd, cwd)
	}
}

func TestResolveRequiresListenPort(t *testing.T) {
	restoreWorkingDir(t)
	t.Setenv("HOME", t.TempDir())

	_, err := config.Resolve(config.Options{Argv0: "meshpmd"})
	if err == nil {
		t.Fatal("expected error when listen port is missing")
	}
	if !strings.Contains(err.Error(), "--listen") {
		t.Fatalf("expected guidance naming --listen, got %q", err.Error())
	}
}

func TestResolveListenPortRange(t *testing.T) {
	restoreWorkingDir(t)
	t.Setenv("HOME", t.TempDir())

	if _, err := config.Resolve(config.Options{ListenPort: 70000, Argv0: "meshpmd"}); err == nil {
		t.Fatal("expected error for out-of-range listen port")
	}
	if _, err := config.Resolve(config.Options{ListenPort: -1, Argv0: "meshpmd"}); err == nil {
		t.Fatal("expected error for negative listen port")
	}
}

func TestResolveBasePortPrecedence(t *testing.T) {
	restoreWorkingDir(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvBasePort, "4000")

	cfg, err := config.Resolve(config.Options{ListenPort: 8701, Argv0: "meshpmd"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.BasePort != 4000 {
		t.Fatalf("expected env base port 4000, got %d", cfg.BasePort)
	}

	cfg, err = config.Resolve(config.Options{ListenPort: 8701, BasePort: 5000, Argv0: "meshpmd"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.BasePort != 5000 {
		t.Fatalf("expected flag base port to win over env, got %d", cfg.BasePort)
	}
}

func TestResolveRejectsMalformedBasePortEnv(t *testing.T) {
	restoreWorkingDir(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvBasePort, "not-a-port")

	if _, err := config.Resolve(config.Options{ListenPort: 8701, Argv0: "meshpmd"}); err == nil {
		t.Fatal("expected error for malformed base port env value")
	}
}

func TestResolveJSONFileBackend(t *testing.T) {
	restoreWorkingDir(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := config.Resolve(config.Options{ListenPort: 8701, JSONFileDB: true, Argv0: "meshpmd"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.Backend != config.BackendJSONFile {
		t.Fatalf("expected jsonfile backend, got %q", cfg.Backend)
	}
}

func TestResolveDataFileOverride(t *testing.T) {
	restoreWorkingDir(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	override := filepath.Join(tempHome, "elsewhere", "pm.json")
	t.Setenv(config.EnvDataFile, override)

	cfg, err := config.Resolve(config.Options{ListenPort: 8701, Argv0: "meshpmd"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.LegacyDataFile != override {
		t.Fatalf("expected legacy data file %q, got %q", override, cfg.LegacyDataFile)
	}
}

func TestResolveDisplayNameFromEnv(t *testing.T) {
	restoreWorkingDir(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvName, "production-pm")

	cfg, err := config.Resolve(config.Options{ListenPort: 8701, Argv0: "meshpmd"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.Name != "production-pm" {
		t.Fatalf("expected env display name, got %q", cfg.Name)
	}
}

func TestResolveSkipDefaultInstallMarker(t *testing.T) {
	restoreWorkingDir(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvSkipDefaultInstall, "")

	cfg, err := config.Resolve(config.Options{ListenPort: 8701, SkipDefaultInstall: true, Argv0: "meshpmd"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !cfg.SkipDefaultInstall {
		t.Fatal("expected skip-default-install set")
	}
	if got := os.Getenv(config.EnvSkipDefaultInstall); got != "true" {
		t.Fatalf("expected env marker set, got %q", got)
	}
}

func TestResolveHonorsSkipInstallEnvMarker(t *testing.T) {
	restoreWorkingDir(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvSkipDefaultInstall, "1")

	cfg, err := config.Resolve(config.Options{ListenPort: 8701, Argv0: "meshpmd"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !cfg.SkipDefaultInstall {
		t.Fatal("expected env marker alone to disable default install")
	}
}

func TestServicePortConvention(t *testing.T) {
	cfg := &config.Config{BasePort: 3000}
	if got := cfg.ServicePort(1); got != 3001 {
		t.Fatalf("expected port 3001 for service 1, got %d", got)
	}
	if got := cfg.ServicePort(42); got != 3042 {
		t.Fatalf("expected port 3042 for service 42, got %d", got)
	}
}

func TestLoadClientDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.LoadClient("")
	if err != nil {
		t.Fatalf("LoadClient returned error: %v", err)
	}
	if exists {
		t.Fatal("expected client config to be absent in temp HOME")
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.Address != "127.0.0.1:8701" {
		t.Fatalf("unexpected default address: %q", cfg.Address)
	}
	wantBase := filepath.Join(tempHome, ".local", "share", "meshpm")
	if cfg.BaseDir != wantBase {
		t.Fatalf("unexpected client base dir: %q", cfg.BaseDir)
	}
	if cfg.TokenPath() != filepath.Join(wantBase, config.TokenFileName) {
		t.Fatalf("unexpected token path: %q", cfg.TokenPath())
	}
}

func TestLoadClientCustomFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "config.toml")
	body := "address = \"10.0.0.5:9900\"\ntoken = \"secret\"\nbase_dir = \"" + tempDir + "\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected client config to exist")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Address != "10.0.0.5:9900" {
		t.Fatalf("unexpected address: %q", cfg.Address)
	}
	if cfg.Token != "secret" {
		t.Fatalf("unexpected token: %q", cfg.Token)
	}
	if cfg.BaseDir != tempDir {
		t.Fatalf("unexpected base dir: %q", cfg.BaseDir)
	}
}

func TestLoadClientMalformedFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "config.toml")
	if err := os.WriteFile(path, []byte("address = [broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, _, err := config.LoadClient(path); err == nil {
		t.Fatal("expected parse error for malformed client config")
	}
}
