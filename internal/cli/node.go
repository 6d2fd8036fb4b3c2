package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/devnet-tools/devnetctl/internal/cli/render"
	"github.com/devnet-tools/devnetctl/internal/server"
)

// NewNodeCmd creates the node command group.
func NewNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage node instances",
	}

	cmd.AddCommand(
		newNodeStartCmd(),
		newNodeStopCmd(),
		newNodeStopAllCmd(),
		newNodeListCmd(),
		newNodeShowCmd(),
		newNodeLogsCmd(),
	)
	return cmd
}

func newNodeStartCmd() *cobra.Command {
	var req server.StartNodeRequest

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new node instance",
		Example: `  # Start with an allocated port
  devnetctl node start

  # Start a named mainnet fork pinned to a block
  devnetctl node start --name mainnet-fork --fork-url https://eth.llamarpc.com --fork-block 19000000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, cfg, err := apiClient(cmd)
			if err != nil {
				return err
			}
			inst, err := api.StartNode(cmd.Context(), req)
			if err != nil {
				return err
			}
			return render.NewNodeRenderer(cmd.OutOrStdout(), cfg.JSON).RenderInstance(inst)
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Unique instance name")
	cmd.Flags().IntVar(&req.Port, "port", 0, "Explicit port (bypasses the allocator)")
	cmd.Flags().Uint64Var(&req.ChainID, "chain-id", 0, "Chain ID for the new node")
	cmd.Flags().StringVar(&req.ForkURL, "fork-url", "", "Upstream RPC URL to fork from")
	cmd.Flags().Uint64Var(&req.ForkBlock, "fork-block", 0, "Block number to fork at (requires --fork-url)")
	return cmd
}

func newNodeStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <node-id>",
		Short: "Gracefully stop a node instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, cfg, err := apiClient(cmd)
			if err != nil {
				return err
			}
			inst, err := api.StopNode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render.NewNodeRenderer(cmd.OutOrStdout(), cfg.JSON).RenderInstance(inst)
		},
	}
}

func newNodeStopAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop-all",
		Short: "Stop every node the daemon owns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, cfg, err := apiClient(cmd)
			if err != nil {
				return err
			}
			instances, err := api.StopAll(cmd.Context())
			if err != nil {
				return err
			}
			return render.NewNodeRenderer(cmd.OutOrStdout(), cfg.JSON).RenderList(instances)
		},
	}
}

func newNodeListCmd() *cobra.Command {
	var (
		status string
		all    bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List node instances",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, cfg, err := apiClient(cmd)
			if err != nil {
				return err
			}
			instances, err := api.ListNodes(cmd.Context(), status, all)
			if err != nil {
				return err
			}
			return render.NewNodeRenderer(cmd.OutOrStdout(), cfg.JSON).RenderList(instances)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (starting, running, stopped, orphaned, error)")
	cmd.Flags().BoolVar(&all, "all", false, "Include historical records from previous daemon runs")
	return cmd
}

func newNodeShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <node-id>",
		Short: "Show one node instance record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, cfg, err := apiClient(cmd)
			if err != nil {
				return err
			}
			inst, err := api.ShowNode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render.NewNodeRenderer(cmd.OutOrStdout(), cfg.JSON).RenderInstance(inst)
		},
	}
}

func newNodeLogsCmd() *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs <node-id>",
		Short: "Print a node's log file",
		Long: `Print the redacted log file of a node instance.

The daemon and CLI share a filesystem; the log path comes from the instance
record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _, err := apiClient(cmd)
			if err != nil {
				return err
			}
			inst, err := api.ShowNode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if inst.LogFile == "" {
				return fmt.Errorf("instance %s has no log file", inst.ID)
			}

			f, err := os.Open(inst.LogFile)
			if err != nil {
				return err
			}
			defer f.Close()

			if _, err := io.Copy(cmd.OutOrStdout(), f); err != nil {
				return err
			}
			if !follow {
				return nil
			}
			return tailFile(cmd, f)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing as the log grows")
	return cmd
}

// tailFile keeps copying appended bytes until the command context ends.
func tailFile(cmd *cobra.Command, f *os.File) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case <-ticker.C:
			if _, err := io.Copy(cmd.OutOrStdout(), f); err != nil {
				return err
			}
		}
	}
}
