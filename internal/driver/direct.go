package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"meshpm/internal/logging"
)

// defaultStopGrace is how long Stop waits after SIGTERM before sending
// SIGKILL to the process group.
const defaultStopGrace = 10 * time.Second

// DirectDriver runs service commands as child processes through the POSIX
// shell.
type DirectDriver struct {
	logger *slog.Logger

	// StopGrace overrides the SIGTERM grace period for instances started
	// after the change. Zero means the default.
	StopGrace time.Duration
}

// NewDirect constructs the direct driver.
func NewDirect(logger *slog.Logger) *DirectDriver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DirectDriver{logger: logger, StopGrace: defaultStopGrace}
}

func (d *DirectDriver) Name() string { return NameDirect }

// Start launches spec.Command with `sh -c`. The child runs in its own
// process group and carries a parent-death signal so it cannot outlive the
// daemon. PORT is set in its environment when spec.Port is non-zero.
func (d *DirectDriver) Start(_ context.Context, spec Spec) (Instance, error) {
	if strings.TrimSpace(spec.Command) == "" {
		return nil, errors.New("command required")
	}

	cmd := exec.Command("/bin/sh", "-c", spec.Command)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	if spec.Port > 0 {
		cmd.Env = append(cmd.Env, fmt.Sprintf("PORT=%d", spec.Port))
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: unix.SIGTERM,
	}

	var logFile *os.File
	if spec.LogPath != "" {
		f, err := os.OpenFile(spec.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open service log: %w", err)
		}
		cmd.Stdout = f
		cmd.Stderr = f
		logFile = f
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("start service %q: %w", spec.Name, err)
	}

	grace := d.StopGrace
	if grace <= 0 {
		grace = defaultStopGrace
	}
	inst := &directInstance{
		cmd:     cmd,
		logFile: logFile,
		grace:   grace,
		done:    make(chan struct{}),
		logger:  logging.WithService(d.logger, spec.ServiceID, spec.Name),
	}
	go inst.wait()

	inst.logger.Info("service process started",
		logging.Int("pid", cmd.Process.Pid),
		logging.Int("port", spec.Port))
	return inst, nil
}

type directInstance struct {
	cmd     *exec.Cmd
	logFile *os.File
	grace   time.Duration
	logger  *slog.Logger
	done    chan struct{}

	mu      sync.Mutex
	stopped bool
}

func (i *directInstance) Handle() string { return strconv.Itoa(i.cmd.Process.Pid) }

func (i *directInstance) Done() <-chan struct{} { return i.done }

// wait reaps the child and records how it exited.
func (i *directInstance) wait() {
	err := i.cmd.Wait()
	i.mu.Lock()
	stopped := i.stopped
	i.mu.Unlock()

	if i.logFile != nil {
		i.logFile.Close()
	}
	switch {
	case stopped:
		i.logger.Info("service process stopped")
	case err != nil:
		i.logger.Warn("service process exited", logging.Error(err))
	default:
		i.logger.Info("service process exited")
	}
	close(i.done)
}

// Stop signals the process group with SIGTERM and escalates to SIGKILL
// after the grace period.
func (i *directInstance) Stop(ctx context.Context) error {
	i.mu.Lock()
	i.stopped = true
	i.mu.Unlock()

	select {
	case <-i.done:
		return nil
	default:
	}

	i.signal(unix.SIGTERM)

	timer := time.NewTimer(i.grace)
	defer timer.Stop()

	select {
	case <-i.done:
		return nil
	case <-ctx.Done():
		i.signal(unix.SIGKILL)
		return ctx.Err()
	case <-timer.C:
	}

	i.logger.Warn("service process ignored SIGTERM, killing")
	i.signal(unix.SIGKILL)

	select {
	case <-i.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// signal targets the whole process group so children spawned by the shell
// are included.
func (i *directInstance) signal(sig syscall.Signal) {
	if i.cmd.Process == nil {
		return
	}
	if err := unix.Kill(-i.cmd.Process.Pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		i.logger.Warn("signal service process", logging.Error(err))
	}
}

var (
	_ Driver   = (*DirectDriver)(nil)
	_ Instance = (*directInstance)(nil)
)
