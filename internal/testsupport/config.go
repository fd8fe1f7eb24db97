package testsupport

import (
	"path/filepath"
	"testing"

	"meshpm/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a resolved daemon config seeded with a unique temp base
// directory per test. It bypasses Resolve on purpose: tests must not inherit
// its chdir side effect or read the real process environment.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := &config.Config{
		BaseDir:        base,
		ListenPort:     8701,
		BasePort:       config.DefaultBasePort,
		DriverName:     config.DefaultDriver,
		Backend:        config.BackendSQLite,
		Name:           "meshpmd-test",
		LegacyDataFile: filepath.Join(base, config.LegacyDataFileName),
		LogLevel:       "info",
		LogFormat:      "console",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return cfg
}

// WithBackend selects the persistence backend on the test config.
func WithBackend(backend string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Backend = backend
	}
}

// WithDriver selects the process driver on the test config.
func WithDriver(name string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.DriverName = name
	}
}

// WithListenPort overrides the control listener port on the test config.
func WithListenPort(port int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.ListenPort = port
	}
}

// WithBasePort overrides the service port anchor on the test config.
func WithBasePort(port int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.BasePort = port
	}
}

// WithSkipDefaultInstall disables default service seeding on the test config.
func WithSkipDefaultInstall() ConfigOption {
	return func(cfg *config.Config) {
		cfg.SkipDefaultInstall = true
	}
}
