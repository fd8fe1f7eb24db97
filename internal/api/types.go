package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Service runtime states reported by the control API.
const (
	StateRunning = "running"
	StateStopped = "stopped"
)

// ServiceInfo describes a managed service in a transport-friendly format.
type ServiceInfo struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Command       string `json:"command"`
	Port          int    `json:"port"`
	State         string `json:"state"`
	UptimeSeconds int64  `json:"uptimeSeconds,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// ServiceListResponse wraps a collection of services for API responses.
type ServiceListResponse struct {
	Services []ServiceInfo `json:"services"`
}

// ServiceResponse wraps a single service.
type ServiceResponse struct {
	Service ServiceInfo `json:"service"`
}

// CreateServiceRequest registers a new service with the supervisor.
type CreateServiceRequest struct {
	Name    string `json:"name"`
	Command string `json:"command"`
}

// StatusResponse aggregates daemon runtime information for API consumers.
type StatusResponse struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	PID           int    `json:"pid"`
	Driver        string `json:"driver"`
	Backend       string `json:"backend"`
	BackendPath   string `json:"backendPath"`
	BaseDir       string `json:"baseDir"`
	BasePort      int    `json:"basePort"`
	ListenPort    int    `json:"listenPort"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	ServiceCount  int    `json:"serviceCount"`
	RunningCount  int    `json:"runningCount"`
}

// ErrorResponse carries a failure message to API consumers.
type ErrorResponse struct {
	Error string `json:"error"`
}
