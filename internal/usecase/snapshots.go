package usecase

import (
	"context"
	"fmt"

	"github.com/devnet-tools/devnetctl/internal/domain"
)

// CaptureSnapshot records a point-in-time state marker on a running node.
type CaptureSnapshot struct {
	supervisor NodeSupervisor
	registry   SnapshotRegistry
	progress   ProgressSink
}

// NewCaptureSnapshot creates the use case.
func NewCaptureSnapshot(supervisor NodeSupervisor, registry SnapshotRegistry, progress ProgressSink) *CaptureSnapshot {
	return &CaptureSnapshot{supervisor: supervisor, registry: registry, progress: progress}
}

// CaptureSnapshotParams identify the node and optional snapshot name.
type CaptureSnapshotParams struct {
	NodeID string
	Name   string
}

// CaptureSnapshotResult contains the new snapshot record.
type CaptureSnapshotResult struct {
	Snapshot *domain.Snapshot
}

// Execute captures the snapshot.
func (uc *CaptureSnapshot) Execute(ctx context.Context, params CaptureSnapshotParams) (*CaptureSnapshotResult, error) {
	client, err := uc.supervisor.ClientFor(params.NodeID)
	if err != nil {
		return nil, err
	}
	snap, err := uc.registry.Capture(ctx, params.NodeID, params.Name, client)
	if err != nil {
		return nil, err
	}
	uc.progress.Info(fmt.Sprintf("Snapshot %s captured at block %d", snap.Token, snap.BlockNumber))
	return &CaptureSnapshotResult{Snapshot: snap}, nil
}

// RevertSnapshot rolls a node's chain state back to a snapshot.
type RevertSnapshot struct {
	supervisor NodeSupervisor
	registry   SnapshotRegistry
	progress   ProgressSink
}

// NewRevertSnapshot creates the use case.
func NewRevertSnapshot(supervisor NodeSupervisor, registry SnapshotRegistry, progress ProgressSink) *RevertSnapshot {
	return &RevertSnapshot{supervisor: supervisor, registry: registry, progress: progress}
}

// RevertSnapshotParams identify the node and snapshot (name or raw token).
type RevertSnapshotParams struct {
	NodeID   string
	IDOrName string
}

// RevertSnapshotResult contains the outcome including any warning.
type RevertSnapshotResult struct {
	Outcome *domain.RevertOutcome
}

// Execute reverts to the snapshot.
func (uc *RevertSnapshot) Execute(ctx context.Context, params RevertSnapshotParams) (*RevertSnapshotResult, error) {
	client, err := uc.supervisor.ClientFor(params.NodeID)
	if err != nil {
		return nil, err
	}
	outcome, err := uc.registry.Revert(ctx, params.NodeID, params.IDOrName, client)
	if err != nil {
		return nil, err
	}
	if outcome.Warning != "" {
		uc.progress.Error(outcome.Warning)
	}
	uc.progress.Info(fmt.Sprintf("Reverted to snapshot %s, chain at block %d", outcome.Snapshot.Token, outcome.BlockNumber))
	return &RevertSnapshotResult{Outcome: outcome}, nil
}

// ListSnapshots returns all snapshots recorded for one node.
type ListSnapshots struct {
	registry SnapshotRegistry
}

// NewListSnapshots creates the use case.
func NewListSnapshots(registry SnapshotRegistry) *ListSnapshots {
	return &ListSnapshots{registry: registry}
}

// ListSnapshotsParams identify the node.
type ListSnapshotsParams struct {
	NodeID string
}

// ListSnapshotsResult contains the snapshots, oldest first.
type ListSnapshotsResult struct {
	Snapshots []*domain.Snapshot
}

// Execute lists snapshots.
func (uc *ListSnapshots) Execute(ctx context.Context, params ListSnapshotsParams) (*ListSnapshotsResult, error) {
	return &ListSnapshotsResult{Snapshots: uc.registry.List(params.NodeID)}, nil
}
