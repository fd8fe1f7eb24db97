package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Names of the built-in drivers.
const (
	NameDirect = "direct"
	NameDocker = "docker"
)

// ErrUnknownDriver reports a driver name with no registered implementation.
var ErrUnknownDriver = errors.New("unknown driver")

// Spec describes one service process to launch. The caller resolves ports
// and log paths; drivers never consult global configuration.
type Spec struct {
	ServiceID int64
	Name      string
	Command   string
	Dir       string
	Port      int
	LogPath   string
	Env       []string
}

// Instance is a handle on a running service process.
type Instance interface {
	// Handle identifies the process to its driver, a pid for direct
	// children or a container id for docker.
	Handle() string
	// Stop terminates the process, escalating when the polite signal is
	// ignored. It returns once the process is gone or ctx expires.
	Stop(ctx context.Context) error
	// Done is closed when the process exits for any reason.
	Done() <-chan struct{}
}

// Driver launches service processes.
type Driver interface {
	Name() string
	Start(ctx context.Context, spec Spec) (Instance, error)
}

// Registry resolves driver names to implementations. The set is fixed at
// construction; there is no dynamic registration.
type Registry struct {
	drivers map[string]Driver
}

// NewRegistry builds a registry holding the built-in drivers.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		drivers: map[string]Driver{
			NameDirect: NewDirect(logger),
			NameDocker: NewDocker(logger),
		},
	}
}

// Lookup returns the driver registered under name. Names are matched
// case-insensitively. Unknown names fail with ErrUnknownDriver rather than
// falling back to a default.
func (r *Registry) Lookup(name string) (Driver, error) {
	d, ok := r.drivers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownDriver, name, strings.Join(r.Names(), ", "))
	}
	return d, nil
}

// Names lists the registered driver names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
