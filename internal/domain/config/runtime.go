package config

import (
	"time"
)

// RuntimeConfig represents the complete runtime configuration.
// This is injected into use cases and adapters and contains all resolved
// settings; nothing reads config files or flags past this point.
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string

	// Node process settings
	NodeBinary     string // path to the anvil binary
	PortRangeStart int    // inclusive
	PortRangeEnd   int    // inclusive
	StartupTimeout time.Duration
	PollInterval   time.Duration
	StopGrace      time.Duration // SIGTERM to SIGKILL grace

	// RedactPattern matches secrets in captured node output. Kept as
	// injectable policy so tests can swap it.
	RedactPattern string

	// Daemon settings
	ListenAddr string // API listen address for `devnetctl serve`
	ServerURL  string // API base URL used by client commands

	// Execution settings
	Debug bool
	JSON  bool // output in JSON format
}
