package control

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"meshpm/internal/config"
)

const (
	readyPollInterval = 200 * time.Millisecond
	stopPollInterval  = 100 * time.Millisecond
)

// LaunchOptions carry the flags passed to a spawned daemon.
type LaunchOptions struct {
	ListenPort int
	BaseDir    string
	Driver     string
}

// StopResult reports how a daemon shutdown went.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// DaemonExecutable locates the daemon binary, preferring one installed next
// to the current executable over PATH lookup.
func DaemonExecutable() (string, error) {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), "meshpmd")
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := exec.LookPath("meshpmd")
	if err != nil {
		return "", errors.New("meshpmd binary not found next to the current executable or on PATH")
	}
	return path, nil
}

// Launch starts the daemon detached from the calling process and returns its
// pid. The daemon keeps running after the caller exits; use WaitForReady to
// confirm it came up.
func Launch(executable string, opts LaunchOptions) (int, error) {
	if strings.TrimSpace(executable) == "" {
		return 0, errors.New("daemon executable path is empty")
	}
	if opts.ListenPort <= 0 {
		return 0, errors.New("daemon listen port is required")
	}

	args := []string{"--listen", strconv.Itoa(opts.ListenPort)}
	if opts.BaseDir != "" {
		args = append(args, "--base", opts.BaseDir)
	}
	if opts.Driver != "" {
		args = append(args, "--driver", opts.Driver)
	}

	cmd := exec.Command(executable, args...)
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	// New session so terminal hangups never reach the daemon.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("launch daemon: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("detach daemon process: %w", err)
	}
	return pid, nil
}

// WaitForReady polls the daemon until its control API answers a status
// request or the timeout expires. The token file is re-read on every attempt
// because the daemon creates it during startup.
func WaitForReady(ctx context.Context, cfg *config.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		client, err := NewFromConfig(cfg)
		if err == nil {
			if _, err = client.Status(ctx); err == nil {
				return nil
			}
		}
		lastErr = err
		time.Sleep(readyPollInterval)
	}
	if lastErr == nil {
		lastErr = errors.New("no response before deadline")
	}
	return fmt.Errorf("daemon did not become ready: %w", lastErr)
}

// StopAndTerminate signals the daemon recorded in the pid file with SIGTERM
// and waits for it to exit. A daemon still alive after grace is killed and
// its pid and lock files are removed; on a clean exit the daemon removes
// them itself.
func StopAndTerminate(cfg *config.Client, grace time.Duration) (StopResult, error) {
	pid, err := ReadPID(cfg.PIDPath())
	if err != nil {
		return StopResult{}, err
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("pid file %s points at the current process", cfg.PIDPath())
	}

	res := StopResult{PID: pid}
	if !processAlive(pid) {
		// Stale pid file from an unclean shutdown.
		removeStateFiles(cfg)
		return res, ErrDaemonNotRunning
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			removeStateFiles(cfg)
			return res, ErrDaemonNotRunning
		}
		return res, fmt.Errorf("signal daemon %d: %w", pid, err)
	}

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return res, nil
		}
		time.Sleep(stopPollInterval)
	}

	res.ForcedKill = true
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return res, fmt.Errorf("kill daemon %d: %w", pid, err)
	}
	removeStateFiles(cfg)
	return res, nil
}

// ReadPID parses the daemon pid file. A missing file maps to
// ErrDaemonNotRunning.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrDaemonNotRunning
		}
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %s is malformed", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func removeStateFiles(cfg *config.Client) {
	_ = os.Remove(cfg.PIDPath())
	_ = os.Remove(cfg.LockPath())
}
