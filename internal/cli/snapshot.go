package cli

import (
	"github.com/spf13/cobra"

	"github.com/devnet-tools/devnetctl/internal/cli/render"
)

// NewSnapshotCmd creates the snapshot command group.
func NewSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage chain state snapshots",
	}

	cmd.AddCommand(
		newSnapshotCreateCmd(),
		newSnapshotRevertCmd(),
		newSnapshotListCmd(),
	)
	return cmd
}

func newSnapshotCreateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create <node-id>",
		Short: "Capture a snapshot on a running node",
		Example: `  # Anonymous snapshot (addressable by token only)
  devnetctl snapshot create node-aabbccdd

  # Named snapshot
  devnetctl snapshot create node-aabbccdd --name clean-state`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, cfg, err := apiClient(cmd)
			if err != nil {
				return err
			}
			snap, err := api.CaptureSnapshot(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			return render.NewSnapshotRenderer(cmd.OutOrStdout(), cfg.JSON).RenderCaptured(snap)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Snapshot name (unique per node)")
	return cmd
}

func newSnapshotRevertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revert <node-id> <name-or-token>",
		Short: "Roll a node back to a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, cfg, err := apiClient(cmd)
			if err != nil {
				return err
			}
			resp, err := api.RevertSnapshot(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return render.NewSnapshotRenderer(cmd.OutOrStdout(), cfg.JSON).RenderReverted(resp)
		},
	}
}

func newSnapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <node-id>",
		Aliases: []string{"ls"},
		Short:   "List snapshots recorded for a node",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, cfg, err := apiClient(cmd)
			if err != nil {
				return err
			}
			snaps, err := api.ListSnapshots(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render.NewSnapshotRenderer(cmd.OutOrStdout(), cfg.JSON).RenderList(snaps)
		},
	}
}
