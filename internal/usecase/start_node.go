package usecase

import (
	"context"
	"fmt"

	"github.com/devnet-tools/devnetctl/internal/domain"
)

// StartNode spawns a new node instance and waits for it to become ready.
type StartNode struct {
	supervisor NodeSupervisor
	progress   ProgressSink
}

// NewStartNode creates the use case.
func NewStartNode(supervisor NodeSupervisor, progress ProgressSink) *StartNode {
	return &StartNode{supervisor: supervisor, progress: progress}
}

// StartNodeParams are the caller-facing start parameters.
type StartNodeParams struct {
	Name      string
	Port      int
	ChainID   uint64
	ForkURL   string
	ForkBlock uint64
}

// StartNodeResult contains the started instance.
type StartNodeResult struct {
	Instance *domain.NodeInstance
}

// Execute starts the node.
func (uc *StartNode) Execute(ctx context.Context, params StartNodeParams) (*StartNodeResult, error) {
	uc.progress.Info(fmt.Sprintf("Starting node %q...", params.Name))

	inst, err := uc.supervisor.Start(ctx, domain.NodeOptions{
		Name:      params.Name,
		Port:      params.Port,
		ChainID:   params.ChainID,
		ForkURL:   params.ForkURL,
		ForkBlock: params.ForkBlock,
	})
	if err != nil {
		return nil, err
	}

	uc.progress.Info(fmt.Sprintf("Node %s is running on port %d (PID %d)", inst.ID, inst.Port, inst.PID))
	return &StartNodeResult{Instance: inst}, nil
}
