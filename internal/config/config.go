package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Options carries the raw daemon command line before resolution. Zero values
// mean "not passed"; Resolve fills in environment and default fallbacks.
type Options struct {
	BaseDir            string
	DriverName         string
	ListenPort         int
	BasePort           int
	SkipDefaultInstall bool
	JSONFileDB         bool
	LogLevel           string
	LogFormat          string

	// Argv0 names the invoked binary and seeds the display name fallback.
	Argv0 string
}

// Config is the resolved daemon configuration. It is built exactly once by
// Resolve and treated as read-only by every consumer afterwards.
type Config struct {
	BaseDir            string
	ListenPort         int
	BasePort           int
	DriverName         string
	Backend            string
	Name               string
	SkipDefaultInstall bool
	LegacyDataFile     string
	LogLevel           string
	LogFormat          string
}

// Resolve merges flags, environment, and defaults into an immutable Config.
// It reads the process environment exactly once, creates the base directory,
// and makes it the working directory so relative service paths land there.
func Resolve(opts Options) (*Config, error) {
	cfg := &Config{
		ListenPort: opts.ListenPort,
		DriverName: strings.ToLower(strings.TrimSpace(opts.DriverName)),
		LogLevel:   opts.LogLevel,
		LogFormat:  opts.LogFormat,
	}
	if cfg.DriverName == "" {
		cfg.DriverName = DefaultDriver
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaultLogFormat
	}

	baseDir := strings.TrimSpace(opts.BaseDir)
	if baseDir == "" {
		baseDir = defaultBaseDir
	}
	expanded, err := expandPath(baseDir)
	if err != nil {
		return nil, err
	}
	cfg.BaseDir = expanded

	cfg.BasePort = opts.BasePort
	if cfg.BasePort == 0 {
		if raw, ok := os.LookupEnv(EnvBasePort); ok && strings.TrimSpace(raw) != "" {
			parsed, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", EnvBasePort, err)
			}
			cfg.BasePort = parsed
		}
	}
	if cfg.BasePort == 0 {
		cfg.BasePort = DefaultBasePort
	}

	cfg.Backend = BackendSQLite
	if opts.JSONFileDB {
		cfg.Backend = BackendJSONFile
	}

	cfg.LegacyDataFile = filepath.Join(cfg.BaseDir, LegacyDataFileName)
	if raw, ok := os.LookupEnv(EnvDataFile); ok && strings.TrimSpace(raw) != "" {
		expanded, err := expandPath(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		cfg.LegacyDataFile = expanded
	}

	cfg.Name = strings.TrimSpace(os.Getenv(EnvName))
	if cfg.Name == "" {
		argv0 := opts.Argv0
		if argv0 == "" {
			argv0 = os.Args[0]
		}
		cfg.Name = filepath.Base(argv0)
	}

	// The marker survives in the environment so service install hooks that
	// run in child processes observe the same decision.
	cfg.SkipDefaultInstall = opts.SkipDefaultInstall || envBool(EnvSkipDefaultInstall)
	if opts.SkipDefaultInstall {
		if err := os.Setenv(EnvSkipDefaultInstall, "true"); err != nil {
			return nil, fmt.Errorf("set %s: %w", EnvSkipDefaultInstall, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	if err := os.Chdir(cfg.BaseDir); err != nil {
		return nil, fmt.Errorf("enter base directory %q: %w", cfg.BaseDir, err)
	}

	return cfg, nil
}

// EnsureDirectories creates the base directory tree the daemon writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.BaseDir, c.LogDir(), c.ServiceLogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite backend location under the base directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.BaseDir, DatabaseFileName)
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.BaseDir, LockFileName)
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.BaseDir, PIDFileName)
}

// TokenPath returns the control API bearer token location.
func (c *Config) TokenPath() string {
	return filepath.Join(c.BaseDir, TokenFileName)
}

// LogDir returns the daemon log directory.
func (c *Config) LogDir() string {
	return filepath.Join(c.BaseDir, "logs")
}

// ServiceLogDir returns the directory holding per-service stdout/stderr logs.
func (c *Config) ServiceLogDir() string {
	return filepath.Join(c.BaseDir, "logs", "services")
}

// ListenAddr renders the control listener bind address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.ListenPort)
}

// ServicePort computes the port a service id listens on. The convention is
// base port plus service id and is part of the operator contract.
func (c *Config) ServicePort(serviceID int64) int {
	return c.BasePort + int(serviceID)
}

func envBool(key string) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "false", "no":
		return false
	default:
		return true
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
