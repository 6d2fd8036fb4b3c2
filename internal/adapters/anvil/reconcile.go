package anvil

import (
	"context"
	"fmt"
	"time"

	"github.com/devnet-tools/devnetctl/internal/domain"
)

// Reconcile reclassifies durable records left behind by a previous daemon
// process. Spawned processes do not survive a supervisor restart as
// controllable children: even when a recorded PID still appears alive, the
// number may have been reused by an unrelated process, so PID liveness is
// never treated as evidence of ownership. Every record last seen starting or
// running is unconditionally marked orphaned; nothing is killed or reattached.
//
// Runs once, synchronously, before the supervisor accepts new work.
func (s *Supervisor) Reconcile(ctx context.Context) (int, error) {
	running, err := s.store.ListByStatus(ctx, domain.NodeRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to list running records: %w", err)
	}
	starting, err := s.store.ListByStatus(ctx, domain.NodeStarting)
	if err != nil {
		return 0, fmt.Errorf("failed to list starting records: %w", err)
	}
	records := append(running, starting...)

	for _, rec := range records {
		now := time.Now()
		rec.Status = domain.NodeOrphaned
		rec.TerminatedAt = &now
		if err := s.store.Upsert(ctx, rec); err != nil {
			return 0, fmt.Errorf("failed to persist orphaned record %s: %w", rec.ID, err)
		}

		// Keep the record visible through Get/List. There is no process
		// handle, so the done channel is already closed.
		done := make(chan struct{})
		close(done)
		s.mu.Lock()
		s.nodes[rec.ID] = &managedNode{inst: rec, done: done}
		s.mu.Unlock()

		s.log.Warn("orphaned node instance from previous run",
			"id", rec.ID, "pid", rec.PID, "port", rec.Port)
	}
	return len(records), nil
}
