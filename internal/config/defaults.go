package config

const (
	// DatabaseFileName is the SQLite backend file kept under the base directory.
	DatabaseFileName = "strong-mesh.db"
	// LegacyDataFileName is the JSON document used by pre-SQLite deployments.
	LegacyDataFileName = "strong-pm.json"
	// MigratedSuffix is appended to the legacy file once its contents have
	// been copied into the SQLite backend.
	MigratedSuffix = ".migrated"
	// LockFileName guards against two daemons sharing a base directory.
	LockFileName = "meshpmd.lock"
	// PIDFileName records the daemon process id for operators and tooling.
	PIDFileName = "meshpmd.pid"
	// TokenFileName holds the bearer token required by the control API.
	TokenFileName = "auth.token"

	// DefaultBasePort anchors the service port convention: a service with id
	// N listens on DefaultBasePort+N unless --base-port overrides the anchor.
	DefaultBasePort = 3000

	// DefaultDriver is used when --driver is not passed.
	DefaultDriver = "direct"

	defaultBaseDir       = "~/.local/share/meshpm"
	defaultLogLevel      = "info"
	defaultLogFormat     = "console"
	defaultClientAddress = "127.0.0.1:8701"
)

// Environment variables read once during Resolve. They are never re-read
// after the configuration is built.
const (
	EnvBasePort           = "MESHPM_BASE_PORT"
	EnvSkipDefaultInstall = "MESHPM_SKIP_DEFAULT_INSTALL"
	EnvDataFile           = "MESHPM_DATA_FILE"
	EnvName               = "MESHPM_NAME"
	EnvParentFD           = "MESHPM_PARENT_FD"
)

// Persistence backend selectors.
const (
	BackendSQLite   = "sqlite"
	BackendJSONFile = "jsonfile"
)
