// Package control is the client side of the daemon: an HTTP client for the
// control API plus helpers that launch, wait for, and terminate the daemon
// process itself.
//
// API calls authenticate with the bearer token from the client
// configuration, falling back to the token file the daemon writes under its
// base directory. The process helpers work from the pid file, so they still
// function when the control API is unreachable.
package control
