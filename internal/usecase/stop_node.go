package usecase

import (
	"context"
	"fmt"

	"github.com/devnet-tools/devnetctl/internal/domain"
)

// StopNode gracefully terminates one node instance.
type StopNode struct {
	supervisor NodeSupervisor
	progress   ProgressSink
}

// NewStopNode creates the use case.
func NewStopNode(supervisor NodeSupervisor, progress ProgressSink) *StopNode {
	return &StopNode{supervisor: supervisor, progress: progress}
}

// StopNodeParams identify the instance to stop.
type StopNodeParams struct {
	ID string
}

// StopNodeResult contains the stopped instance record.
type StopNodeResult struct {
	Instance *domain.NodeInstance
}

// Execute stops the node.
func (uc *StopNode) Execute(ctx context.Context, params StopNodeParams) (*StopNodeResult, error) {
	inst, err := uc.supervisor.Stop(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	uc.progress.Info(fmt.Sprintf("Node %s stopped", inst.ID))
	return &StopNodeResult{Instance: inst}, nil
}

// StopAllNodes terminates every instance the daemon owns.
type StopAllNodes struct {
	supervisor NodeSupervisor
	progress   ProgressSink
}

// NewStopAllNodes creates the use case.
func NewStopAllNodes(supervisor NodeSupervisor, progress ProgressSink) *StopAllNodes {
	return &StopAllNodes{supervisor: supervisor, progress: progress}
}

// StopAllNodesResult lists the instances after the sweep.
type StopAllNodesResult struct {
	Instances []*domain.NodeInstance
}

// Execute stops all owned nodes. Orphaned instances are skipped by the
// supervisor with a warning.
func (uc *StopAllNodes) Execute(ctx context.Context) (*StopAllNodesResult, error) {
	if err := uc.supervisor.StopAll(ctx); err != nil {
		return nil, err
	}
	uc.progress.Info("All owned nodes stopped")
	return &StopAllNodesResult{Instances: uc.supervisor.List()}, nil
}
