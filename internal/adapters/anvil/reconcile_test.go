package anvil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devnet-tools/devnetctl/internal/domain"
)

func TestReconcile_MarksRunningRecordsOrphaned(t *testing.T) {
	ctx := context.Background()
	binary := writeFakeNode(t, "exec sleep 60")
	cfg := testConfig(t, binary)
	alloc := newFakeAlloc(18545, 3)
	sup, st := newTestSupervisor(t, cfg, alloc, okDialer)

	// A record left behind by a previous daemon process. Its PID is this
	// test process, which is very much alive; the reconciler must not care.
	stale := &domain.NodeInstance{
		ID:        "node-previous",
		Port:      18545,
		Status:    domain.NodeRunning,
		PID:       1,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, st.Upsert(ctx, stale))

	n, err := sup.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	inst, err := sup.Get("node-previous")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeOrphaned, inst.Status)
	assert.NotNil(t, inst.TerminatedAt)

	orphaned, err := st.ListByStatus(ctx, domain.NodeOrphaned)
	require.NoError(t, err)
	require.Len(t, orphaned, 1)
	running, err := st.ListByStatus(ctx, domain.NodeRunning)
	require.NoError(t, err)
	assert.Empty(t, running)
}

func TestReconcile_MarksStartingRecordsOrphaned(t *testing.T) {
	ctx := context.Background()
	binary := writeFakeNode(t, "exec sleep 60")
	sup, st := newTestSupervisor(t, testConfig(t, binary), newFakeAlloc(18545, 3), okDialer)

	// A daemon crash mid-startup leaves the record in starting forever.
	require.NoError(t, st.Upsert(ctx, &domain.NodeInstance{
		ID:        "node-midstart",
		Port:      18545,
		Status:    domain.NodeStarting,
		CreatedAt: time.Now().Add(-time.Hour),
	}))

	n, err := sup.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	inst, err := sup.Get("node-midstart")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeOrphaned, inst.Status)
}

func TestReconcile_NothingToDo(t *testing.T) {
	binary := writeFakeNode(t, "exec sleep 60")
	sup, _ := newTestSupervisor(t, testConfig(t, binary), newFakeAlloc(18545, 3), okDialer)

	n, err := sup.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStop_OrphanedIsRejected(t *testing.T) {
	ctx := context.Background()
	binary := writeFakeNode(t, "exec sleep 60")
	sup, st := newTestSupervisor(t, testConfig(t, binary), newFakeAlloc(18545, 3), okDialer)

	require.NoError(t, st.Upsert(ctx, &domain.NodeInstance{
		ID:        "node-previous",
		Port:      18545,
		Status:    domain.NodeRunning,
		CreatedAt: time.Now(),
	}))
	_, err := sup.Reconcile(ctx)
	require.NoError(t, err)

	_, err = sup.Stop(ctx, "node-previous")
	assert.ErrorIs(t, err, domain.ErrOrphaned)
}

func TestStopAll_SkipsOrphaned(t *testing.T) {
	ctx := context.Background()
	binary := writeFakeNode(t, "exec sleep 60")
	sup, st := newTestSupervisor(t, testConfig(t, binary), newFakeAlloc(18546, 3), okDialer)

	require.NoError(t, st.Upsert(ctx, &domain.NodeInstance{
		ID:        "node-previous",
		Port:      18545,
		Status:    domain.NodeRunning,
		CreatedAt: time.Now(),
	}))
	_, err := sup.Reconcile(ctx)
	require.NoError(t, err)

	live, err := sup.Start(ctx, domain.NodeOptions{})
	require.NoError(t, err)

	require.NoError(t, sup.StopAll(ctx))

	stopped, err := sup.Get(live.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeStopped, stopped.Status)

	orphan, err := sup.Get("node-previous")
	require.NoError(t, err)
	assert.Equal(t, domain.NodeOrphaned, orphan.Status)
}
