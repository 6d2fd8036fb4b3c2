//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"

	"github.com/devnet-tools/devnetctl/internal/adapters/anvil"
	"github.com/devnet-tools/devnetctl/internal/adapters/chain"
	"github.com/devnet-tools/devnetctl/internal/adapters/ports"
	"github.com/devnet-tools/devnetctl/internal/adapters/state"
	"github.com/devnet-tools/devnetctl/internal/adapters/store"
	"github.com/devnet-tools/devnetctl/internal/config"
	"github.com/devnet-tools/devnetctl/internal/logging"
	"github.com/devnet-tools/devnetctl/internal/usecase"
)

// InitApp creates a fully wired App instance.
func InitApp(v *viper.Viper, sink usecase.ProgressSink) (*App, error) {
	wire.Build(
		config.Provider,
		logging.LoggingSet,

		// Adapters
		store.ProvideFileStore,
		ports.ProvideAllocator,
		chain.ProvideDialer,
		anvil.NewSupervisor,
		wire.Bind(new(usecase.NodeSupervisor), new(*anvil.Supervisor)),
		state.NewSnapshotRegistry,
		wire.Bind(new(usecase.SnapshotRegistry), new(*state.SnapshotRegistry)),
		state.NewImpersonationTracker,
		wire.Bind(new(usecase.ImpersonationTracker), new(*state.ImpersonationTracker)),

		// Use cases
		usecase.NewStartNode,
		usecase.NewStopNode,
		usecase.NewStopAllNodes,
		usecase.NewListNodes,
		usecase.NewShowNode,
		usecase.NewCaptureSnapshot,
		usecase.NewRevertSnapshot,
		usecase.NewListSnapshots,
		usecase.NewStartImpersonation,
		usecase.NewStopImpersonation,
		usecase.NewListImpersonations,

		// App
		NewApp,
	)
	return nil, nil
}
