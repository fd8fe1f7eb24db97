package store

import (
	"context"
	"fmt"

	"meshpm/internal/config"
)

// Store is the persistence surface the supervisor depends on. Both backends
// satisfy it with identical semantics so the gatekeeper's selection is the
// only place backend identity matters.
type Store interface {
	// Backend names the active backend, config.BackendSQLite or
	// config.BackendJSONFile.
	Backend() string
	// Path is the backing file location.
	Path() string

	Services(ctx context.Context) ([]Service, error)
	Service(ctx context.Context, id int64) (*Service, error)
	ServiceByName(ctx context.Context, name string) (*Service, error)
	CreateService(ctx context.Context, name, command string) (*Service, error)
	// ImportService inserts a record preserving its identity. Service ports
	// derive from ids, so migration must not renumber.
	ImportService(ctx context.Context, svc Service) error
	RemoveService(ctx context.Context, id int64) error

	Close() error
}

// Open connects to the backend selected by the configuration.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return OpenSQLite(cfg.DatabasePath())
	case config.BackendJSONFile:
		return OpenJSONFile(cfg.LegacyDataFile)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
