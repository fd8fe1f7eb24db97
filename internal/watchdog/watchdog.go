// Package watchdog terminates the daemon when a supervising parent process
// goes away.
//
// A parent that wants the daemon's lifetime bound to its own passes the
// read end of a pipe as an inherited file descriptor and names it in
// MESHPM_PARENT_FD. The parent never writes to the pipe, so a successful
// read is impossible; the only thing the read loop can observe is EOF or an
// error, both of which mean the parent is gone. The daemon then exits
// immediately with status 2, skipping cleanup: an orphaned daemon must not
// linger half-supervised.
package watchdog

import (
	"log/slog"
	"os"
	"strconv"

	"meshpm/internal/config"
	"meshpm/internal/logging"
)

// ExitCodeParentLost is the daemon's exit status when the parent pipe
// closes.
const ExitCodeParentLost = 2

// Watchdog watches an inherited pipe for parent death.
type Watchdog struct {
	logger *slog.Logger
	pipe   *os.File
	exit   func(code int)
}

// New builds a watchdog from the MESHPM_PARENT_FD environment variable.
// When the variable is unset or does not name a usable descriptor the
// watchdog stays unarmed and Arm is a no-op.
func New(logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = logging.NewNop()
	}
	w := &Watchdog{logger: logger, exit: os.Exit}

	raw := os.Getenv(config.EnvParentFD)
	if raw == "" {
		return w
	}
	fd, err := strconv.Atoi(raw)
	if err != nil || fd < 0 {
		logger.Warn("ignoring invalid parent fd", logging.String("value", raw))
		return w
	}
	w.pipe = os.NewFile(uintptr(fd), "parent-pipe")
	return w
}

// Armed reports whether a parent pipe is being watched after Arm.
func (w *Watchdog) Armed() bool {
	return w.pipe != nil
}

// Arm starts the read loop. It returns immediately; from here on the
// process exits with ExitCodeParentLost as soon as the pipe closes.
func (w *Watchdog) Arm() {
	if w.pipe == nil {
		return
	}
	w.logger.Debug("parent watchdog armed", logging.String("pipe", w.pipe.Name()))
	go w.watch()
}

func (w *Watchdog) watch() {
	buf := make([]byte, 1)
	for {
		n, err := w.pipe.Read(buf)
		if err != nil {
			w.logger.Error("parent process lost, exiting", logging.Error(err))
			w.exit(ExitCodeParentLost)
			return
		}
		if n > 0 {
			// The protocol is silence; bytes are tolerated and ignored.
			continue
		}
	}
}
