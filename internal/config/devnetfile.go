package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DevnetFileName is the project configuration file devnetctl looks for.
const DevnetFileName = "devnet.toml"

// DevnetFile is the on-disk project configuration.
type DevnetFile struct {
	Node   NodeSection   `toml:"node"`
	Server ServerSection `toml:"server"`
}

// NodeSection configures spawned node processes.
type NodeSection struct {
	Binary string `toml:"binary"`
	// PortRange is the inclusive [start, end] RPC port range.
	PortRange      []int  `toml:"port_range"`
	StartupTimeout string `toml:"startup_timeout"`
	PollInterval   string `toml:"poll_interval"`
	StopGrace      string `toml:"stop_grace"`
	RedactPattern  string `toml:"redact_pattern"`
}

// ServerSection configures the daemon API.
type ServerSection struct {
	Listen string `toml:"listen"`
}

// LoadDevnetFile reads devnet.toml from the project root. A missing file is
// not an error; it yields an empty config.
func LoadDevnetFile(projectRoot string) (*DevnetFile, error) {
	path := filepath.Join(projectRoot, DevnetFileName)
	var file DevnetFile
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &file, nil
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", DevnetFileName, err)
	}
	if len(file.Node.PortRange) != 0 && len(file.Node.PortRange) != 2 {
		return nil, fmt.Errorf("%s: node.port_range must be [start, end]", DevnetFileName)
	}
	return &file, nil
}
