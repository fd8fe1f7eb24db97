// Package server hosts the supervisor: the control API, the single-instance
// lock, and the running service processes.
//
// Start is side-effect heavy. It acquires the flock lock, writes
// the pid file, mints or loads the bearer token, seeds the default service
// on an empty registry, binds the control listener, and then serves in the
// background. Stop is the explicit graceful path: it drains the HTTP
// listener, stops every live instance through the driver, and releases the
// lock and pid file. Nothing here installs signal handlers; the caller
// decides what triggers Stop.
//
// A single OnListening observer can be registered before Start. It fires
// exactly once, asynchronously, after the listener binds, and is how the
// bootstrapper emits its startup diagnostics without the server knowing
// about them.
package server
