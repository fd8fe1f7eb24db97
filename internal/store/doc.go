// Package store persists the service registry behind a backend-neutral
// interface.
//
// The SQLite backend (strong-mesh.db) is the primary store: WAL journaling,
// a schema_version guard, and busy retries make it safe for the daemon plus
// ad hoc tooling. The JSON-file backend keeps the whole registry in a single
// document written atomically on every mutation; it exists for deployments
// that predate the SQLite store and doubles as the reader for migration.
//
// Both backends implement identical semantics so callers never branch on
// backend identity. Schema changes bump schemaVersion in sqlite.go; an old
// database then refuses to open rather than corrupting state.
package store
