// Package config resolves runtime configuration from flags, environment,
// the project devnet.toml, and defaults, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/devnet-tools/devnetctl/internal/domain/config"
)

// Defaults used when neither flags, env, nor devnet.toml say otherwise.
const (
	DefaultNodeBinary     = "anvil"
	DefaultPortRangeStart = 8545
	DefaultPortRangeEnd   = 8645
	DefaultStartupTimeout = "30s"
	DefaultPollInterval   = "200ms"
	DefaultStopGrace      = "5s"
	DefaultListenAddr     = "127.0.0.1:8990"
)

// FindProjectRoot walks up from the current directory looking for
// devnet.toml. Without one, the current directory is the root; devnetctl
// works fine with pure defaults.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	cwd := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, DevnetFileName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance bound to the command's
// flags and the DEVNETCTL_* environment.
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	v.SetConfigName("config.local")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, ".devnet"))

	v.SetEnvPrefix("DEVNETCTL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	v.SetDefault("project_root", projectRoot)
	v.SetDefault("node_binary", DefaultNodeBinary)
	v.SetDefault("port_range_start", DefaultPortRangeStart)
	v.SetDefault("port_range_end", DefaultPortRangeEnd)
	v.SetDefault("startup_timeout", DefaultStartupTimeout)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("stop_grace", DefaultStopGrace)
	v.SetDefault("listen", DefaultListenAddr)
	v.SetDefault("server", "http://"+DefaultListenAddr)
	v.SetDefault("debug", false)
	v.SetDefault("json", false)

	// Ignore a missing config.local.json.
	_ = v.ReadInConfig()

	bind := func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil {
			panic(err)
		}
	}
	cmd.Flags().VisitAll(bind)
	cmd.InheritedFlags().VisitAll(bind)

	return v
}

// Provider resolves the complete RuntimeConfig for Wire injection.
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	file, err := LoadDevnetFile(projectRoot)
	if err != nil {
		return nil, err
	}
	// devnet.toml sits between hard defaults and env/flags: lower the viper
	// defaults to the file's values, then let viper resolve.
	if file.Node.Binary != "" {
		v.SetDefault("node_binary", file.Node.Binary)
	}
	if len(file.Node.PortRange) == 2 {
		v.SetDefault("port_range_start", file.Node.PortRange[0])
		v.SetDefault("port_range_end", file.Node.PortRange[1])
	}
	if file.Node.StartupTimeout != "" {
		v.SetDefault("startup_timeout", file.Node.StartupTimeout)
	}
	if file.Node.PollInterval != "" {
		v.SetDefault("poll_interval", file.Node.PollInterval)
	}
	if file.Node.StopGrace != "" {
		v.SetDefault("stop_grace", file.Node.StopGrace)
	}
	if file.Node.RedactPattern != "" {
		v.SetDefault("redact_pattern", file.Node.RedactPattern)
	}
	if file.Server.Listen != "" {
		v.SetDefault("listen", file.Server.Listen)
		v.SetDefault("server", "http://"+file.Server.Listen)
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		DataDir:        filepath.Join(projectRoot, ".devnet"),
		NodeBinary:     v.GetString("node_binary"),
		PortRangeStart: v.GetInt("port_range_start"),
		PortRangeEnd:   v.GetInt("port_range_end"),
		StartupTimeout: v.GetDuration("startup_timeout"),
		PollInterval:   v.GetDuration("poll_interval"),
		StopGrace:      v.GetDuration("stop_grace"),
		RedactPattern:  v.GetString("redact_pattern"),
		ListenAddr:     v.GetString("listen"),
		ServerURL:      v.GetString("server"),
		Debug:          v.GetBool("debug"),
		JSON:           v.GetBool("json"),
	}

	if cfg.PortRangeStart <= 0 || cfg.PortRangeEnd < cfg.PortRangeStart {
		return nil, fmt.Errorf("invalid port range [%d, %d]", cfg.PortRangeStart, cfg.PortRangeEnd)
	}
	return cfg, nil
}
