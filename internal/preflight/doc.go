// Package preflight validates the environment before the daemon constructs
// any state.
//
// EnsureBackend is the entry point. It checks base-directory access and the
// selected driver's binary, then gates on the storage backend: a legacy
// JSON data file is migrated into SQLite when the primary backend is
// active, and mixed layouts (a SQLite database alongside an explicit JSON
// backend selection) are refused outright. Any failure here aborts startup
// before a socket is bound or a pid file written.
package preflight
