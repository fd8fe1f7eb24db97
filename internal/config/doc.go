// Package config resolves, normalizes, and validates meshpm configuration.
//
// The daemon side merges command line flags, a one-time read of the process
// environment (MESHPM_* variables), and built-in defaults into an immutable
// Config. Resolution also prepares the base directory, creating it and making
// it the working directory, so the rest of the daemon treats it as the root
// for every state file. The client side loads an optional TOML file pointing
// the control CLI at a daemon address and token.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical backend selectors, and clear validation errors.
package config
