package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Client holds control CLI settings. The file is optional: defaults point at
// a daemon on the local machine using the default base directory.
type Client struct {
	Address string `toml:"address"`
	Token   string `toml:"token"`
	BaseDir string `toml:"base_dir"`
}

// DefaultClientConfigPath returns the absolute path of the client config file.
func DefaultClientConfigPath() (string, error) {
	return expandPath("~/.config/meshpm/config.toml")
}

// LoadClient locates and parses the client configuration. A missing file is
// not an error; defaults are returned and exists reports false.
func LoadClient(path string) (*Client, string, bool, error) {
	cfg := Client{Address: defaultClientAddress, BaseDir: defaultBaseDir}

	resolvedPath, exists, err := resolveClientConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveClientConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultClientConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Client) normalize() error {
	c.Address = strings.TrimSpace(c.Address)
	if c.Address == "" {
		c.Address = defaultClientAddress
	}
	c.Token = strings.TrimSpace(c.Token)

	baseDir := strings.TrimSpace(c.BaseDir)
	if baseDir == "" {
		baseDir = defaultBaseDir
	}
	expanded, err := expandPath(baseDir)
	if err != nil {
		return err
	}
	c.BaseDir = expanded
	return nil
}

// TokenPath returns where the daemon persists the control API token for this
// client's base directory.
func (c *Client) TokenPath() string {
	return filepath.Join(c.BaseDir, TokenFileName)
}

// PIDPath returns the daemon pid file for this client's base directory.
func (c *Client) PIDPath() string {
	return filepath.Join(c.BaseDir, PIDFileName)
}

// LockPath returns the daemon lock file for this client's base directory.
func (c *Client) LockPath() string {
	return filepath.Join(c.BaseDir, LockFileName)
}

// DaemonLogPath returns the daemon log file for this client's base directory.
func (c *Client) DaemonLogPath() string {
	return filepath.Join(c.BaseDir, "logs", "meshpmd.log")
}
