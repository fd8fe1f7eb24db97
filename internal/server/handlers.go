package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"meshpm/internal/api"
	"meshpm/internal/logging"
	"meshpm/internal/store"
	"meshpm/internal/version"
)

var serviceNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", authMiddleware(s.token, s.handleStatus))
	mux.HandleFunc("/api/v1/services", authMiddleware(s.token, s.handleServices))
	mux.HandleFunc("/api/v1/services/", authMiddleware(s.token, s.handleService))
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	services, err := s.store.Services(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.StatusResponse{
		Name:          s.cfg.Name,
		Version:       version.String(),
		PID:           os.Getpid(),
		Driver:        s.driver.Name(),
		Backend:       s.store.Backend(),
		BackendPath:   s.store.Path(),
		BaseDir:       s.cfg.BaseDir,
		BasePort:      s.cfg.BasePort,
		ListenPort:    s.cfg.ListenPort,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		ServiceCount:  len(services),
		RunningCount:  s.runningCount(),
	})
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listServices(w, r)
	case http.MethodPost:
		s.createService(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	services, err := s.store.Services(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	infos := make([]api.ServiceInfo, 0, len(services))
	for i := range services {
		infos = append(infos, s.serviceInfo(&services[i]))
	}
	s.writeJSON(w, http.StatusOK, api.ServiceListResponse{Services: infos})
}

func (s *Server) createService(w http.ResponseWriter, r *http.Request) {
	var req api.CreateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	command := strings.TrimSpace(req.Command)
	if !serviceNamePattern.MatchString(name) {
		s.writeError(w, http.StatusBadRequest, "invalid service name")
		return
	}
	if command == "" {
		s.writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	svc, err := s.store.CreateService(r.Context(), name, command)
	if errors.Is(err, store.ErrServiceExists) {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("service registered",
		logging.Int64(logging.FieldServiceID, svc.ID),
		logging.String(logging.FieldServiceName, svc.Name),
		logging.Int("port", s.cfg.ServicePort(svc.ID)))
	s.writeJSON(w, http.StatusCreated, api.ServiceResponse{Service: s.serviceInfo(svc)})
}

func (s *Server) handleService(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/services/")
	idStr, action, _ := strings.Cut(rest, "/")
	if idStr == "" {
		s.writeError(w, http.StatusNotFound, "service not found")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid service id")
		return
	}

	svc, err := s.store.Service(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if svc == nil {
		s.writeError(w, http.StatusNotFound, "service not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.writeJSON(w, http.StatusOK, api.ServiceResponse{Service: s.serviceInfo(svc)})
	case action == "" && r.Method == http.MethodDelete:
		s.removeService(w, r, svc)
	case action == "start" && r.Method == http.MethodPost:
		s.startService(w, r, svc)
	case action == "stop" && r.Method == http.MethodPost:
		s.stopService(w, r, svc)
	case action == "":
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	default:
		s.writeError(w, http.StatusNotFound, "unknown service action")
	}
}

// removeService stops any live instance before dropping the record so the
// registry never references a running orphan.
func (s *Server) removeService(w http.ResponseWriter, r *http.Request, svc *store.Service) {
	if err := s.stopInstance(r.Context(), svc.ID); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.store.RemoveService(r.Context(), svc.ID); err != nil {
		if errors.Is(err, store.ErrServiceNotFound) {
			s.writeError(w, http.StatusNotFound, "service not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("service removed",
		logging.Int64(logging.FieldServiceID, svc.ID),
		logging.String(logging.FieldServiceName, svc.Name))
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) startService(w http.ResponseWriter, r *http.Request, svc *store.Service) {
	if err := s.startInstance(r.Context(), *svc); err != nil {
		if errors.Is(err, ErrServiceRunning) {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ServiceResponse{Service: s.serviceInfo(svc)})
}

func (s *Server) stopService(w http.ResponseWriter, r *http.Request, svc *store.Service) {
	if err := s.stopInstance(r.Context(), svc.ID); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ServiceResponse{Service: s.serviceInfo(svc)})
}

func (s *Server) serviceInfo(svc *store.Service) api.ServiceInfo {
	running, startedAt := s.instanceInfo(svc.ID)
	return api.FromService(svc, s.cfg.ServicePort(svc.ID), running, startedAt)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
