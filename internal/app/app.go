package app

import (
	"log/slog"

	"github.com/devnet-tools/devnetctl/internal/domain/config"
	"github.com/devnet-tools/devnetctl/internal/usecase"
)

// App is the main application container holding all wired use cases.
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Shared adapters (needed for lifecycle hooks like reconcile/shutdown)
	Supervisor usecase.NodeSupervisor

	// Use cases
	StartNode          *usecase.StartNode
	StopNode           *usecase.StopNode
	StopAllNodes       *usecase.StopAllNodes
	ListNodes          *usecase.ListNodes
	ShowNode           *usecase.ShowNode
	CaptureSnapshot    *usecase.CaptureSnapshot
	RevertSnapshot     *usecase.RevertSnapshot
	ListSnapshots      *usecase.ListSnapshots
	StartImpersonation *usecase.StartImpersonation
	StopImpersonation  *usecase.StopImpersonation
	ListImpersonations *usecase.ListImpersonations
}

// NewApp creates the application instance.
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	supervisor usecase.NodeSupervisor,
	startNode *usecase.StartNode,
	stopNode *usecase.StopNode,
	stopAllNodes *usecase.StopAllNodes,
	listNodes *usecase.ListNodes,
	showNode *usecase.ShowNode,
	captureSnapshot *usecase.CaptureSnapshot,
	revertSnapshot *usecase.RevertSnapshot,
	listSnapshots *usecase.ListSnapshots,
	startImpersonation *usecase.StartImpersonation,
	stopImpersonation *usecase.StopImpersonation,
	listImpersonations *usecase.ListImpersonations,
) (*App, error) {
	return &App{
		Config:             cfg,
		Log:                log,
		Supervisor:         supervisor,
		StartNode:          startNode,
		StopNode:           stopNode,
		StopAllNodes:       stopAllNodes,
		ListNodes:          listNodes,
		ShowNode:           showNode,
		CaptureSnapshot:    captureSnapshot,
		RevertSnapshot:     revertSnapshot,
		ListSnapshots:      listSnapshots,
		StartImpersonation: startImpersonation,
		StopImpersonation:  stopImpersonation,
		ListImpersonations: listImpersonations,
	}, nil
}
