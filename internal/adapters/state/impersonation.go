package state

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/devnet-tools/devnetctl/internal/domain"
	"github.com/devnet-tools/devnetctl/internal/usecase"
)

// zeroBalanceWarning is non-fatal: an impersonated sender with no balance
// simply cannot pay gas.
const zeroBalanceWarning = "impersonated address has zero balance and will be unable to pay gas"

// ImpersonationTracker records which addresses are impersonated on which
// instance. State is per node: the same address may be impersonated on two
// instances independently. Nothing here is persisted, since impersonation
// only holds while the specific node process is alive.
type ImpersonationTracker struct {
	log *slog.Logger

	mu     sync.RWMutex
	active map[string]map[common.Address]bool // nodeID -> active set
}

// NewImpersonationTracker creates an empty tracker.
func NewImpersonationTracker(log *slog.Logger) *ImpersonationTracker {
	return &ImpersonationTracker{
		log:    log,
		active: make(map[string]map[common.Address]bool),
	}
}

// Start invokes the node's impersonation primitive and records the session.
func (t *ImpersonationTracker) Start(ctx context.Context, nodeID string, addr common.Address, client usecase.ChainClient) (*domain.ImpersonationSession, error) {
	if err := client.ImpersonateAccount(ctx, addr); err != nil {
		return nil, fmt.Errorf("failed to impersonate %s: %w", addr.Hex(), err)
	}

	session := &domain.ImpersonationSession{
		NodeID:  nodeID,
		Address: addr,
		Active:  true,
	}
	// The balance check is advisory; a probe failure never fails the start.
	if balance, err := client.BalanceAt(ctx, addr); err == nil && balance.Sign() == 0 {
		session.Warning = zeroBalanceWarning
		t.log.Warn("impersonating zero-balance address", "node", nodeID, "address", addr.Hex())
	}

	t.mu.Lock()
	if t.active[nodeID] == nil {
		t.active[nodeID] = make(map[common.Address]bool)
	}
	t.active[nodeID][addr] = true
	t.mu.Unlock()

	t.log.Info("impersonation started", "node", nodeID, "address", addr.Hex())
	return session, nil
}

// Stop invokes the node's de-impersonation primitive and clears the session.
// Stopping an address that was never impersonated is a no-op, not an error.
func (t *ImpersonationTracker) Stop(ctx context.Context, nodeID string, addr common.Address, client usecase.ChainClient) error {
	if err := client.StopImpersonating(ctx, addr); err != nil {
		return fmt.Errorf("failed to stop impersonating %s: %w", addr.Hex(), err)
	}

	t.mu.Lock()
	delete(t.active[nodeID], addr)
	t.mu.Unlock()

	t.log.Info("impersonation stopped", "node", nodeID, "address", addr.Hex())
	return nil
}

// Active returns the addresses currently impersonated on one node.
func (t *ImpersonationTracker) Active(nodeID string) []common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result := make([]common.Address, 0, len(t.active[nodeID]))
	for addr := range t.active[nodeID] {
		result = append(result, addr)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Hex() < result[j].Hex()
	})
	return result
}

var _ usecase.ImpersonationTracker = (*ImpersonationTracker)(nil)
