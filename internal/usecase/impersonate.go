package usecase

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devnet-tools/devnetctl/internal/domain"
)

// StartImpersonation begins acting as an address without its key on one node.
type StartImpersonation struct {
	supervisor NodeSupervisor
	tracker    ImpersonationTracker
	progress   ProgressSink
}

// NewStartImpersonation creates the use case.
func NewStartImpersonation(supervisor NodeSupervisor, tracker ImpersonationTracker, progress ProgressSink) *StartImpersonation {
	return &StartImpersonation{supervisor: supervisor, tracker: tracker, progress: progress}
}

// ImpersonationParams identify the node and address.
type ImpersonationParams struct {
	NodeID  string
	Address common.Address
}

// StartImpersonationResult contains the new session.
type StartImpersonationResult struct {
	Session *domain.ImpersonationSession
}

// Execute starts impersonating.
func (uc *StartImpersonation) Execute(ctx context.Context, params ImpersonationParams) (*StartImpersonationResult, error) {
	client, err := uc.supervisor.ClientFor(params.NodeID)
	if err != nil {
		return nil, err
	}
	session, err := uc.tracker.Start(ctx, params.NodeID, params.Address, client)
	if err != nil {
		return nil, err
	}
	if session.Warning != "" {
		uc.progress.Error(session.Warning)
	}
	uc.progress.Info(fmt.Sprintf("Impersonating %s on node %s", params.Address.Hex(), params.NodeID))
	return &StartImpersonationResult{Session: session}, nil
}

// StopImpersonation stops acting as an address. Idempotent.
type StopImpersonation struct {
	supervisor NodeSupervisor
	tracker    ImpersonationTracker
	progress   ProgressSink
}

// NewStopImpersonation creates the use case.
func NewStopImpersonation(supervisor NodeSupervisor, tracker ImpersonationTracker, progress ProgressSink) *StopImpersonation {
	return &StopImpersonation{supervisor: supervisor, tracker: tracker, progress: progress}
}

// StopImpersonationResult is empty; success means the session is gone.
type StopImpersonationResult struct{}

// Execute stops impersonating.
func (uc *StopImpersonation) Execute(ctx context.Context, params ImpersonationParams) (*StopImpersonationResult, error) {
	client, err := uc.supervisor.ClientFor(params.NodeID)
	if err != nil {
		return nil, err
	}
	if err := uc.tracker.Stop(ctx, params.NodeID, params.Address, client); err != nil {
		return nil, err
	}
	uc.progress.Info(fmt.Sprintf("Stopped impersonating %s on node %s", params.Address.Hex(), params.NodeID))
	return &StopImpersonationResult{}, nil
}

// ListImpersonations returns the active sessions on one node.
type ListImpersonations struct {
	tracker ImpersonationTracker
}

// NewListImpersonations creates the use case.
func NewListImpersonations(tracker ImpersonationTracker) *ListImpersonations {
	return &ListImpersonations{tracker: tracker}
}

// ListImpersonationsParams identify the node.
type ListImpersonationsParams struct {
	NodeID string
}

// ListImpersonationsResult contains the active addresses.
type ListImpersonationsResult struct {
	Addresses []common.Address
}

// Execute lists active impersonations.
func (uc *ListImpersonations) Execute(ctx context.Context, params ListImpersonationsParams) (*ListImpersonationsResult, error) {
	return &ListImpersonationsResult{Addresses: uc.tracker.Active(params.NodeID)}, nil
}
