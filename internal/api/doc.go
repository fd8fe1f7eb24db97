// Package api defines wire-format types and converters for the control API.
// It translates internal store models into transport-friendly DTOs that the
// CLI and other consumers can render without coupling to internal types.
//
// # Key Types
//
// ServiceInfo: transport representation of a managed service with its
// computed port and supervisor-owned runtime state.
//
// StatusResponse: aggregated daemon identity, backend, and counts.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Ports never come from the store; they are computed from the base port
// convention by the supervisor and injected during conversion.
package api
