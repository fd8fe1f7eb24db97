package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldServiceID is the standardized structured logging key for managed service identifiers.
	FieldServiceID = "service_id"
	// FieldServiceName is the standardized structured logging key for managed service names.
	FieldServiceName = "service_name"
	// FieldDriver is the standardized structured logging key for process driver names.
	FieldDriver = "driver"
	// FieldBackend is the standardized structured logging key for persistence backend names.
	FieldBackend = "backend"
	// FieldErrorHint carries the suggested operator action for a failure.
	FieldErrorHint = "error_hint"
)
