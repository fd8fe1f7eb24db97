package api

import (
	"time"

	"meshpm/internal/store"
)

// FromService converts a persisted service record to its API representation.
// Port and runtime state are supervisor-owned and supplied by the caller.
func FromService(svc *store.Service, port int, running bool, startedAt time.Time) ServiceInfo {
	if svc == nil {
		return ServiceInfo{}
	}

	dto := ServiceInfo{
		ID:      svc.ID,
		Name:    svc.Name,
		Command: svc.Command,
		Port:    port,
		State:   StateStopped,
	}
	if running {
		dto.State = StateRunning
		if !startedAt.IsZero() {
			dto.UptimeSeconds = int64(time.Since(startedAt).Seconds())
		}
	}
	if !svc.CreatedAt.IsZero() {
		dto.CreatedAt = svc.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !svc.UpdatedAt.IsZero() {
		dto.UpdatedAt = svc.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}
