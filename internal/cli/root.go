// Package cli wires the devnetctl command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/devnet-tools/devnetctl/internal/client"
	"github.com/devnet-tools/devnetctl/internal/config"
	domainconfig "github.com/devnet-tools/devnetctl/internal/domain/config"
)

// contextKey is the type for context keys
type contextKey string

const (
	// viperKey is the context key for the resolved viper instance
	viperKey contextKey = "viper"
	// configKey is the context key for the resolved runtime config
	configKey contextKey = "config"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "devnetctl",
		Short: "Local Ethereum dev-node lifecycle manager",
		Long: `devnetctl manages local anvil test nodes: it allocates ports, supervises
node processes, and exposes snapshot and impersonation controls.

The daemon ("devnetctl serve") owns the node processes; every other command
talks to it over the control API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			// Optional .env for things like DEVNETCTL_LOG_LEVEL
			_ = godotenv.Load()

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			v := config.SetupViper(projectRoot, cmd)
			cfg, err := config.Provider(v)
			if err != nil {
				return err
			}

			ctx := context.WithValue(cmd.Context(), viperKey, v)
			ctx = context.WithValue(ctx, configKey, cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().String("server", "", "Daemon control API URL (defaults to http://127.0.0.1:8990)")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "daemon",
		Title: "Daemon Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "node",
		Title: "Node Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "state",
		Title: "Chain State Commands",
	})

	serveCmd := NewServeCmd()
	serveCmd.GroupID = "daemon"
	rootCmd.AddCommand(serveCmd)

	nodeCmd := NewNodeCmd()
	nodeCmd.GroupID = "node"
	rootCmd.AddCommand(nodeCmd)

	snapshotCmd := NewSnapshotCmd()
	snapshotCmd.GroupID = "state"
	rootCmd.AddCommand(snapshotCmd)

	impersonateCmd := NewImpersonateCmd()
	impersonateCmd.GroupID = "state"
	rootCmd.AddCommand(impersonateCmd)

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// getConfig returns the runtime config resolved in PersistentPreRunE.
func getConfig(cmd *cobra.Command) (*domainconfig.RuntimeConfig, error) {
	cfg, ok := cmd.Context().Value(configKey).(*domainconfig.RuntimeConfig)
	if !ok {
		return nil, fmt.Errorf("runtime config not initialized")
	}
	return cfg, nil
}

// getViper returns the viper instance resolved in PersistentPreRunE.
func getViper(cmd *cobra.Command) (*viper.Viper, error) {
	v, ok := cmd.Context().Value(viperKey).(*viper.Viper)
	if !ok {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return v, nil
}

// apiClient builds a control API client from the resolved config.
func apiClient(cmd *cobra.Command) (*client.Client, *domainconfig.RuntimeConfig, error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	return client.New(cfg.ServerURL), cfg, nil
}
