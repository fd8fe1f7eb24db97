// Package version carries build identity stamped in at link time. Both the
// daemon and the control CLI report the same values.
package version

import "fmt"

// Set via ldflags at release build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the human-readable build identity used by --version output
// and the startup banner.
func String() string {
	if Commit == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
