// Package bootstrap assembles and runs the daemon: backend gate, store,
// driver, and supervisor, in that order, tearing everything down when the
// context ends.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"meshpm/internal/config"
	"meshpm/internal/driver"
	"meshpm/internal/logging"
	"meshpm/internal/preflight"
	"meshpm/internal/server"
	"meshpm/internal/store"
	"meshpm/internal/version"
)

// stopTimeout bounds the graceful shutdown path once the run context ends.
const stopTimeout = 30 * time.Second

// Run brings the daemon up and blocks until ctx is done, then stops it
// gracefully. Every failure before the listener binds is returned as an
// error; nothing here calls os.Exit.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := preflight.EnsureBackend(ctx, cfg, logger); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	defer st.Close()
	logger.Info("service registry ready",
		logging.String(logging.FieldBackend, st.Backend()),
		logging.String("path", st.Path()))

	drv, err := driver.NewRegistry(logger).Lookup(cfg.DriverName)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, st, drv, logger)
	if err != nil {
		return err
	}
	srv.OnListening(func(addr net.Addr) {
		announce(logger, cfg, addr)
	})

	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down", logging.String("reason", ctx.Err().Error()))

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return srv.Stop(stopCtx)
}

// announce emits the startup diagnostics. The order is part of the operator
// contract: identity first, then where state lives, then how service ports
// are assigned.
func announce(logger *slog.Logger, cfg *config.Config, addr net.Addr) {
	logger.Info(fmt.Sprintf("%s %s listening", cfg.Name, version.String()),
		logging.String("address", addr.String()))
	logger.Info("base directory in use",
		logging.String("path", cfg.BaseDir))
	logger.Info("applications run on port basePort + serviceId",
		logging.Int("basePort", cfg.BasePort))
}
