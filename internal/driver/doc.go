// Package driver abstracts how service processes get started and stopped.
//
// Two drivers ship built in. The direct driver spawns commands as shell
// children of the daemon, wired into their own process group so a whole
// service tree can be signaled at once. The docker driver shells out to the
// docker CLI and treats the service command as an image reference.
//
// The Registry holds the fixed driver set. Lookup resolves names
// case-insensitively and fails with ErrUnknownDriver for anything else;
// callers are expected to surface that error before any service state is
// touched rather than picking a fallback.
package driver
