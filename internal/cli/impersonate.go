package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/devnet-tools/devnetctl/internal/cli/render"
)

// NewImpersonateCmd creates the impersonate command group.
func NewImpersonateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "impersonate",
		Short: "Act as an address without its private key",
	}

	cmd.AddCommand(
		newImpersonateStartCmd(),
		newImpersonateStopCmd(),
		newImpersonateListCmd(),
	)
	return cmd
}

func newImpersonateStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <node-id> <address>",
		Short: "Start impersonating an address on a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[1]) {
				return fmt.Errorf("invalid address: %s", args[1])
			}
			api, cfg, err := apiClient(cmd)
			if err != nil {
				return err
			}
			session, err := api.StartImpersonation(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return render.NewImpersonationRenderer(cmd.OutOrStdout(), cfg.JSON).RenderStarted(session)
		},
	}
}

func newImpersonateStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <node-id> <address>",
		Short: "Stop impersonating an address (idempotent)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[1]) {
				return fmt.Errorf("invalid address: %s", args[1])
			}
			api, cfg, err := apiClient(cmd)
			if err != nil {
				return err
			}
			if err := api.StopImpersonation(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return render.NewImpersonationRenderer(cmd.OutOrStdout(), cfg.JSON).RenderStopped(args[0], common.HexToAddress(args[1]).Hex())
		},
	}
}

func newImpersonateListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <node-id>",
		Aliases: []string{"ls"},
		Short:   "List active impersonations on a node",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, cfg, err := apiClient(cmd)
			if err != nil {
				return err
			}
			addresses, err := api.ListImpersonations(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render.NewImpersonationRenderer(cmd.OutOrStdout(), cfg.JSON).RenderList(addresses)
		},
	}
}
