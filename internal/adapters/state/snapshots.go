// Package state tracks test-isolation state for running node instances:
// point-in-time snapshots and address impersonation sessions.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/devnet-tools/devnetctl/internal/domain"
	"github.com/devnet-tools/devnetctl/internal/usecase"
)

// revertConsumedWarning is surfaced when reverting a token that was already
// used once. The node, not this registry, decides whether the revert
// actually succeeds; most nodes invalidate a token after first use.
const revertConsumedWarning = "snapshot was already reverted once and may have been invalidated by the node"

// SnapshotRegistry records snapshots by token and optional unique name.
// Records are in-memory only: they are meaningless once the owning node
// process exits, and the registry makes no staleness check beyond the
// consumed flag.
type SnapshotRegistry struct {
	log *slog.Logger

	mu      sync.RWMutex
	byToken map[string]*domain.Snapshot
	byName  map[string]string // name -> token
}

// NewSnapshotRegistry creates an empty registry.
func NewSnapshotRegistry(log *slog.Logger) *SnapshotRegistry {
	return &SnapshotRegistry{
		log:     log,
		byToken: make(map[string]*domain.Snapshot),
		byName:  make(map[string]string),
	}
}

// Capture invokes the node's snapshot primitive and records the returned
// token, along with the chain position at capture time. Names must be unique
// across the registry and are never silently renamed.
func (r *SnapshotRegistry) Capture(ctx context.Context, nodeID, name string, client usecase.ChainClient) (*domain.Snapshot, error) {
	if name != "" {
		r.mu.RLock()
		_, taken := r.byName[name]
		r.mu.RUnlock()
		if taken {
			return nil, fmt.Errorf("snapshot %q: %w", name, domain.ErrDuplicateName)
		}
	}

	token, err := client.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to capture snapshot: %w", err)
	}

	snap := &domain.Snapshot{
		Token:     token,
		Name:      name,
		NodeID:    nodeID,
		CreatedAt: time.Now(),
	}
	if block, err := client.LatestBlock(ctx); err == nil {
		snap.BlockNumber = block.Number
		snap.BlockHash = block.Hash
		snap.BlockTime = block.Timestamp
	} else {
		r.log.Warn("failed to record chain position for snapshot", "token", token, "err", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if name != "" {
		// Re-check under the write lock; a concurrent capture may have
		// claimed the name since the pre-flight check.
		if _, taken := r.byName[name]; taken {
			return nil, fmt.Errorf("snapshot %q: %w", name, domain.ErrDuplicateName)
		}
		r.byName[name] = token
	}
	r.byToken[token] = snap
	r.log.Info("snapshot captured", "node", nodeID, "token", token, "name", name)
	return snap.Clone(), nil
}

// Revert resolves idOrName to a token (name lookup first, then raw token)
// and invokes the node's revert primitive. Reverting a consumed token
// proceeds, deferring to the node's own success signal, but the outcome
// carries a warning.
func (r *SnapshotRegistry) Revert(ctx context.Context, nodeID, idOrName string, client usecase.ChainClient) (*domain.RevertOutcome, error) {
	r.mu.RLock()
	token, ok := r.byName[idOrName]
	if !ok {
		token = idOrName
	}
	snap, ok := r.byToken[token]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("snapshot %q: %w", idOrName, domain.ErrNotFound)
	}

	var warning string
	if snap.Consumed {
		warning = revertConsumedWarning
		r.log.Warn("reverting consumed snapshot", "node", nodeID, "token", token)
	}

	ok, err := client.Revert(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to revert snapshot: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("node rejected revert of snapshot %s", token)
	}

	r.mu.Lock()
	snap.Consumed = true
	rec := snap.Clone()
	r.mu.Unlock()

	outcome := &domain.RevertOutcome{Snapshot: rec, Warning: warning}
	if n, err := client.BlockNumber(ctx); err == nil {
		outcome.BlockNumber = n
	}
	r.log.Info("snapshot reverted", "node", nodeID, "token", token)
	return outcome, nil
}

// List returns the snapshots recorded for one node, oldest first.
func (r *SnapshotRegistry) List(nodeID string) []*domain.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*domain.Snapshot, 0)
	for _, snap := range r.byToken {
		if snap.NodeID == nodeID {
			result = append(result, snap.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

var _ usecase.SnapshotRegistry = (*SnapshotRegistry)(nil)
