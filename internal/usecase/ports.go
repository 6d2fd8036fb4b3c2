package usecase

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devnet-tools/devnetctl/internal/domain"
)

// NodeStore persists instance records across daemon restarts. It is
// append/update-only: historical records are never deleted.
type NodeStore interface {
	Upsert(ctx context.Context, instance *domain.NodeInstance) error
	Get(ctx context.Context, id string) (*domain.NodeInstance, error)
	List(ctx context.Context) ([]*domain.NodeInstance, error)
	ListByStatus(ctx context.Context, status domain.NodeStatus) ([]*domain.NodeInstance, error)
}

// PortAllocator hands out exclusive-use ports from a configured range.
// Allocate returns false when the range is exhausted; this is a capacity
// condition, not a transient error. Release is idempotent.
type PortAllocator interface {
	Allocate() (int, bool)
	Release(port int)
}

// ChainClient is the narrow control-plane interface to one node's RPC
// endpoint. It covers liveness probing and the node-native snapshot, revert
// and impersonation primitives.
type ChainClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (uint64, error)
	LatestBlock(ctx context.Context) (*domain.BlockInfo, error)
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	Snapshot(ctx context.Context) (string, error)
	Revert(ctx context.Context, token string) (bool, error)
	ImpersonateAccount(ctx context.Context, addr common.Address) error
	StopImpersonating(ctx context.Context, addr common.Address) error
	Close()
}

// ChainDialer opens a ChainClient against an RPC URL.
type ChainDialer func(rpcURL string) (ChainClient, error)

// NodeSupervisor owns the in-memory instance map and all process handles.
// Callers observe instances only through these operations.
type NodeSupervisor interface {
	// Start spawns a node process and blocks until it is running or the
	// startup timeout elapses.
	Start(ctx context.Context, opts domain.NodeOptions) (*domain.NodeInstance, error)
	// Stop gracefully terminates an owned process. Stopping an orphaned
	// instance fails with domain.ErrOrphaned.
	Stop(ctx context.Context, id string) (*domain.NodeInstance, error)
	// StopAll stops every non-orphaned instance; orphaned ones are skipped
	// with a logged warning.
	StopAll(ctx context.Context) error
	Get(id string) (*domain.NodeInstance, error)
	List() []*domain.NodeInstance
	// ClientFor returns a control-plane client for a running instance.
	ClientFor(id string) (ChainClient, error)
	// Reconcile reclassifies durable records left over from a previous
	// supervisor process. It must run once before Start accepts work.
	Reconcile(ctx context.Context) (int, error)
}

// SnapshotRegistry tracks point-in-time state markers per node instance.
type SnapshotRegistry interface {
	Capture(ctx context.Context, nodeID, name string, client ChainClient) (*domain.Snapshot, error)
	Revert(ctx context.Context, nodeID, idOrName string, client ChainClient) (*domain.RevertOutcome, error)
	List(nodeID string) []*domain.Snapshot
}

// ImpersonationTracker records which addresses are currently impersonated on
// which instance.
type ImpersonationTracker interface {
	Start(ctx context.Context, nodeID string, addr common.Address, client ChainClient) (*domain.ImpersonationSession, error)
	Stop(ctx context.Context, nodeID string, addr common.Address, client ChainClient) error
	Active(nodeID string) []common.Address
}

// ProgressSink receives human-facing progress messages.
type ProgressSink interface {
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink.
type NopProgress struct{}

func (NopProgress) Info(string)  {}
func (NopProgress) Error(string) {}
