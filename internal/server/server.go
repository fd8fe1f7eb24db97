package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"meshpm/internal/config"
	"meshpm/internal/driver"
	"meshpm/internal/logging"
	"meshpm/internal/store"
)

// defaultServiceCommand seeds the record installed on first start with an
// empty registry.
const defaultServiceCommand = "node ."

// ErrServiceRunning reports a start request for a service that already has
// a live instance.
var ErrServiceRunning = errors.New("service already running")

// Server owns the control API, the single-instance lock, and the set of
// running service processes.
type Server struct {
	cfg    *config.Config
	store  store.Store
	driver driver.Driver
	logger *slog.Logger

	lock *flock.Flock

	httpServer *http.Server
	listener   net.Listener

	onListening func(addr net.Addr)
	notifyOnce  sync.Once

	running   atomic.Bool
	startedAt time.Time
	token     string

	mu        sync.Mutex
	instances map[int64]*runningService
}

type runningService struct {
	inst      driver.Instance
	startedAt time.Time
}

// New constructs a server around an open store and a resolved driver. New
// performs no IO; all side effects happen in Start.
func New(cfg *config.Config, st store.Store, drv driver.Driver, logger *slog.Logger) (*Server, error) {
	if cfg == nil || st == nil || drv == nil {
		return nil, errors.New("server requires config, store, and driver")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		cfg:       cfg,
		store:     st,
		driver:    drv,
		logger:    logging.NewComponentLogger(logger, "server"),
		lock:      flock.New(cfg.LockPath()),
		instances: make(map[int64]*runningService),
	}, nil
}

// OnListening registers the lifecycle observer. The callback fires exactly
// once, asynchronously, after the TCP listener binds. Register before
// calling Start.
func (s *Server) OnListening(fn func(addr net.Addr)) {
	s.onListening = fn
}

// Addr returns the bound control listener address, nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Token returns the control API bearer token, empty before Start.
func (s *Server) Token() string {
	return s.token
}

// Start acquires the instance lock, writes the pid file, prepares the auth
// token, seeds the default service, and begins serving the control API in
// the background. It does not block on shutdown; pair it with Stop.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("server already started")
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !ok {
		s.running.Store(false)
		return fmt.Errorf("another %s instance is already running (lock %s)", s.cfg.Name, s.cfg.LockPath())
	}

	if err := s.writePIDFile(); err != nil {
		s.releaseFiles()
		s.running.Store(false)
		return fmt.Errorf("write pid file: %w", err)
	}

	token, err := loadOrCreateToken(s.cfg.TokenPath())
	if err != nil {
		s.releaseFiles()
		s.running.Store(false)
		return fmt.Errorf("prepare auth token: %w", err)
	}
	s.token = token

	if err := s.defaultInstall(ctx); err != nil {
		s.releaseFiles()
		s.running.Store(false)
		return err
	}

	listener, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		s.releaseFiles()
		s.running.Store(false)
		return fmt.Errorf("bind control listener: %w", err)
	}
	s.listener = listener
	s.startedAt = time.Now()

	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("control api server error", logging.Error(err))
		}
	}()

	if fn := s.onListening; fn != nil {
		addr := listener.Addr()
		s.notifyOnce.Do(func() {
			go fn(addr)
		})
	}

	s.logger.Info("control api listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop drains the control listener, stops every running instance, and
// releases the pid file plus the instance lock. It returns once everything
// is down or ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}

	var firstErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("drain control listener: %w", err)
		}
	}

	s.mu.Lock()
	ids := make([]int64, 0, len(s.instances))
	for id := range s.instances {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.stopInstance(ctx, id); err != nil {
			s.logger.Warn("stop service instance", logging.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s.releaseFiles()
	s.running.Store(false)
	s.logger.Info("server stopped")
	return firstErr
}

// defaultInstall seeds a starter service record when the registry is empty.
// The skip marker (flag or environment) suppresses it.
func (s *Server) defaultInstall(ctx context.Context) error {
	if s.cfg.SkipDefaultInstall {
		return nil
	}
	services, err := s.store.Services(ctx)
	if err != nil {
		return fmt.Errorf("inspect service registry: %w", err)
	}
	if len(services) > 0 {
		return nil
	}
	svc, err := s.store.CreateService(ctx, "default", defaultServiceCommand)
	if err != nil {
		return fmt.Errorf("install default service: %w", err)
	}
	s.logger.Info("default service installed",
		logging.Int64(logging.FieldServiceID, svc.ID),
		logging.Int("port", s.cfg.ServicePort(svc.ID)))
	return nil
}

// startInstance launches svc through the driver and tracks the handle. The
// lock is held across the driver call so concurrent starts of the same
// service cannot race past the existence check.
func (s *Server) startInstance(ctx context.Context, svc store.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[svc.ID]; ok {
		return fmt.Errorf("service %q: %w", svc.Name, ErrServiceRunning)
	}

	spec := driver.Spec{
		ServiceID: svc.ID,
		Name:      svc.Name,
		Command:   svc.Command,
		Dir:       s.cfg.BaseDir,
		Port:      s.cfg.ServicePort(svc.ID),
		LogPath:   filepath.Join(s.cfg.ServiceLogDir(), svc.Name+".log"),
	}
	inst, err := s.driver.Start(ctx, spec)
	if err != nil {
		return fmt.Errorf("start service %q: %w", svc.Name, err)
	}

	rs := &runningService{inst: inst, startedAt: time.Now()}
	s.instances[svc.ID] = rs
	go s.reapOnExit(svc.ID, rs)
	return nil
}

// reapOnExit clears the bookkeeping entry once the process exits on its
// own. Stop paths remove the entry themselves before signaling.
func (s *Server) reapOnExit(id int64, rs *runningService) {
	<-rs.inst.Done()
	s.mu.Lock()
	if current, ok := s.instances[id]; ok && current == rs {
		delete(s.instances, id)
	}
	s.mu.Unlock()
}

// stopInstance stops the running instance for id. Stopping a service with
// no live instance is a no-op.
func (s *Server) stopInstance(ctx context.Context, id int64) error {
	s.mu.Lock()
	rs, ok := s.instances[id]
	if ok {
		delete(s.instances, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := rs.inst.Stop(ctx); err != nil {
		return fmt.Errorf("stop service %d: %w", id, err)
	}
	return nil
}

// instanceInfo reports whether id has a live instance and since when.
func (s *Server) instanceInfo(id int64) (bool, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.instances[id]
	if !ok {
		return false, time.Time{}
	}
	return true, rs.startedAt
}

func (s *Server) runningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instances)
}

func (s *Server) writePIDFile() error {
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(s.cfg.PIDPath(), []byte(value), 0o644)
}

// releaseFiles removes the pid file and drops the instance lock.
func (s *Server) releaseFiles() {
	if err := os.Remove(s.cfg.PIDPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("remove pid file", logging.Error(err))
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("release instance lock", logging.Error(err))
	}
}
