package store

import "errors"

// ErrServiceExists indicates a create collided with an existing service name.
var ErrServiceExists = errors.New("service name already registered")

// ErrServiceNotFound indicates the requested service id is not registered.
var ErrServiceNotFound = errors.New("service not found")

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrDocumentVersion indicates the JSON document was written by an
// incompatible release.
var ErrDocumentVersion = errors.New("unsupported data file version")
