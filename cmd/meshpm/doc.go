// Command meshpm is the operator CLI for the meshpmd daemon. It talks to the
// HTTP control API for service management and falls back to pid-file based
// process control for starting and stopping the daemon itself.
package main
