package usecase

import (
	"context"

	"github.com/samber/lo"

	"github.com/devnet-tools/devnetctl/internal/domain"
)

// ListNodes returns the instances known to this daemon process.
type ListNodes struct {
	supervisor NodeSupervisor
	store      NodeStore
}

// NewListNodes creates the use case.
func NewListNodes(supervisor NodeSupervisor, store NodeStore) *ListNodes {
	return &ListNodes{supervisor: supervisor, store: store}
}

// ListNodesParams filter the result.
type ListNodesParams struct {
	// Status filters to one lifecycle status when non-empty.
	Status domain.NodeStatus
	// All includes historical records from the durable store, not just the
	// instances this daemon process knows in memory.
	All bool
}

// ListNodesResult contains matching instances.
type ListNodesResult struct {
	Instances []*domain.NodeInstance
}

// Execute lists nodes.
func (uc *ListNodes) Execute(ctx context.Context, params ListNodesParams) (*ListNodesResult, error) {
	var instances []*domain.NodeInstance
	if params.All {
		all, err := uc.store.List(ctx)
		if err != nil {
			return nil, err
		}
		instances = all
	} else {
		instances = uc.supervisor.List()
	}

	if params.Status != "" {
		instances = lo.Filter(instances, func(inst *domain.NodeInstance, _ int) bool {
			return inst.Status == params.Status
		})
	}
	return &ListNodesResult{Instances: instances}, nil
}

// ShowNode returns one instance record.
type ShowNode struct {
	supervisor NodeSupervisor
	store      NodeStore
}

// NewShowNode creates the use case.
func NewShowNode(supervisor NodeSupervisor, store NodeStore) *ShowNode {
	return &ShowNode{supervisor: supervisor, store: store}
}

// ShowNodeParams identify the instance.
type ShowNodeParams struct {
	ID string
}

// ShowNodeResult contains the record.
type ShowNodeResult struct {
	Instance *domain.NodeInstance
}

// Execute looks up the instance, falling back to the durable store for
// records from previous daemon runs.
func (uc *ShowNode) Execute(ctx context.Context, params ShowNodeParams) (*ShowNodeResult, error) {
	if inst, err := uc.supervisor.Get(params.ID); err == nil {
		return &ShowNodeResult{Instance: inst}, nil
	}
	inst, err := uc.store.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	return &ShowNodeResult{Instance: inst}, nil
}
