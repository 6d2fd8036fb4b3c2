package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/devnet-tools/devnetctl/internal/adapters/progress"
	"github.com/devnet-tools/devnetctl/internal/app"
	"github.com/devnet-tools/devnetctl/internal/logging"
	"github.com/devnet-tools/devnetctl/internal/server"
)

// NewServeCmd creates the serve command. The daemon owns all node processes;
// when it exits, it stops them.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the devnetctl daemon",
		Long: `Run the daemon that supervises node processes and serves the control API.

On startup the daemon reconciles the durable instance store: records left in
"running" state by a previous daemon are marked orphaned and never adopted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := getViper(cmd)
			if err != nil {
				return err
			}

			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}

			// Route operation progress through the daemon log.
			sink := progress.NewLogSink(logging.NewLogger(cfg))
			a, err := app.InitApp(v, sink)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			orphaned, err := a.Supervisor.Reconcile(ctx)
			if err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}
			if orphaned > 0 {
				a.Log.Warn("orphaned instances from a previous daemon", "count", orphaned)
			}

			srv := server.New(a)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.Log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := a.Supervisor.StopAll(shutdownCtx); err != nil {
				a.Log.Error("failed to stop all nodes", "error", err)
			}
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().String("listen", "", "Control API listen address (host:port)")
	return cmd
}
