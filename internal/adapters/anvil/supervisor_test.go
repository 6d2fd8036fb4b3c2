package anvil

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devnet-tools/devnetctl/internal/adapters/store"
	"github.com/devnet-tools/devnetctl/internal/domain"
	"github.com/devnet-tools/devnetctl/internal/domain/config"
	"github.com/devnet-tools/devnetctl/internal/usecase"
)

// fakeAlloc hands out sequential ports without touching the OS and records
// releases so tests can assert reclamation.
type fakeAlloc struct {
	mu        sync.Mutex
	next      int
	remaining int
	released  []int
}

func newFakeAlloc(start, count int) *fakeAlloc {
	return &fakeAlloc{next: start, remaining: count}
}

func (f *fakeAlloc) Allocate() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.released) > 0 {
		p := f.released[0]
		f.released = f.released[1:]
		return p, true
	}
	if f.remaining == 0 {
		return 0, false
	}
	p := f.next
	f.next++
	f.remaining--
	return p, true
}

func (f *fakeAlloc) Release(port int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, port)
}

func (f *fakeAlloc) releasedPorts() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.released...)
}

// stubClient satisfies the chain-client port without a real node.
type stubClient struct {
	blockErr error
	balance  *big.Int
	closed   bool
}

func (c *stubClient) BlockNumber(context.Context) (uint64, error) {
	if c.blockErr != nil {
		return 0, c.blockErr
	}
	return 1, nil
}
func (c *stubClient) ChainID(context.Context) (uint64, error) { return 31337, nil }
func (c *stubClient) LatestBlock(context.Context) (*domain.BlockInfo, error) {
	return &domain.BlockInfo{Number: 1}, nil
}
func (c *stubClient) BalanceAt(context.Context, common.Address) (*big.Int, error) {
	if c.balance == nil {
		return big.NewInt(0), nil
	}
	return c.balance, nil
}
func (c *stubClient) Snapshot(context.Context) (string, error)                 { return "0x1", nil }
func (c *stubClient) Revert(context.Context, string) (bool, error)             { return true, nil }
func (c *stubClient) ImpersonateAccount(context.Context, common.Address) error { return nil }
func (c *stubClient) StopImpersonating(context.Context, common.Address) error  { return nil }
func (c *stubClient) Close()                                                   { c.closed = true }

func okDialer(string) (usecase.ChainClient, error) { return &stubClient{}, nil }

func failingDialer(string) (usecase.ChainClient, error) {
	return &stubClient{blockErr: errors.New("connection refused")}, nil
}

// writeFakeNode writes a shell script standing in for the anvil binary.
func writeFakeNode(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakenode")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func testConfig(t *testing.T, binary string) *config.RuntimeConfig {
	t.Helper()
	return &config.RuntimeConfig{
		DataDir:        t.TempDir(),
		NodeBinary:     binary,
		PortRangeStart: 18545,
		PortRangeEnd:   18645,
		StartupTimeout: 2 * time.Second,
		PollInterval:   10 * time.Millisecond,
		StopGrace:      2 * time.Second,
	}
}

func newTestSupervisor(t *testing.T, cfg *config.RuntimeConfig, alloc usecase.PortAllocator, dial usecase.ChainDialer) (*Supervisor, usecase.NodeStore) {
	t.Helper()
	st, err := store.NewFileStore(cfg.DataDir)
	require.NoError(t, err)
	sup, err := NewSupervisor(cfg, slog.New(slog.DiscardHandler), st, alloc, dial)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sup.StopAll(context.Background()) })
	return sup, st
}

func TestStart_ReachesRunning(t *testing.T) {
	ctx := context.Background()
	binary := writeFakeNode(t, "exec sleep 60")
	alloc := newFakeAlloc(18545, 3)
	sup, st := newTestSupervisor(t, testConfig(t, binary), alloc, okDialer)

	inst, err := sup.Start(ctx, domain.NodeOptions{ChainID: 31337})
	require.NoError(t, err)
	assert.Equal(t, domain.NodeRunning, inst.Status)
	assert.Equal(t, 18545, inst.Port)
	assert.NotZero(t, inst.PID)
	assert.NotEmpty(t, inst.ID)

	rec, err := st.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeRunning, rec.Status)
}

func TestStart_PortOverrideSkipsAllocator(t *testing.T) {
	ctx := context.Background()
	binary := writeFakeNode(t, "exec sleep 60")
	alloc := newFakeAlloc(18545, 0) // exhausted: any Allocate call would fail
	sup, _ := newTestSupervisor(t, testConfig(t, binary), alloc, okDialer)

	inst, err := sup.Start(ctx, domain.NodeOptions{Port: 19999})
	require.NoError(t, err)
	assert.Equal(t, 19999, inst.Port)

	// An override port is not the allocator's to reclaim.
	_, err = sup.Stop(ctx, inst.ID)
	require.NoError(t, err)
	assert.Empty(t, alloc.releasedPorts())
}

func TestStart_CapacityExhausted(t *testing.T) {
	binary := writeFakeNode(t, "exec sleep 60")
	alloc := newFakeAlloc(18545, 0)
	sup, _ := newTestSupervisor(t, testConfig(t, binary), alloc, okDialer)

	_, err := sup.Start(context.Background(), domain.NodeOptions{})
	assert.ErrorIs(t, err, domain.ErrCapacityExhausted)
}

func TestStart_SpawnFailureReleasesPort(t *testing.T) {
	alloc := newFakeAlloc(18545, 1)
	cfg := testConfig(t, filepath.Join(t.TempDir(), "missing-binary"))
	sup, _ := newTestSupervisor(t, cfg, alloc, okDialer)

	_, err := sup.Start(context.Background(), domain.NodeOptions{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCapacityExhausted)
	assert.Equal(t, []int{18545}, alloc.releasedPorts())
}

func TestStart_StartupTimeoutLeavesProcessRunning(t *testing.T) {
	ctx := context.Background()
	binary := writeFakeNode(t, "exec sleep 60")
	cfg := testConfig(t, binary)
	cfg.StartupTimeout = 200 * time.Millisecond
	sup, st := newTestSupervisor(t, cfg, newFakeAlloc(18545, 3), failingDialer)

	_, err := sup.Start(ctx, domain.NodeOptions{})
	var timeoutErr *domain.StartupTimeoutError
	require.ErrorAs(t, err, &timeoutErr)

	inst, err := sup.Get(timeoutErr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeError, inst.Status)

	rec, err := st.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeError, rec.Status)

	// The process is deliberately not killed on timeout.
	require.NoError(t, syscall.Kill(inst.PID, 0))

	// It remains reachable for an explicit stop.
	_, err = sup.Stop(ctx, inst.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, err := sup.Get(inst.ID)
		return err == nil && got.TerminatedAt != nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStop_GracefulTermination(t *testing.T) {
	ctx := context.Background()
	binary := writeFakeNode(t, "exec sleep 60")
	alloc := newFakeAlloc(18545, 3)
	sup, st := newTestSupervisor(t, testConfig(t, binary), alloc, okDialer)

	inst, err := sup.Start(ctx, domain.NodeOptions{})
	require.NoError(t, err)

	stopped, err := sup.Stop(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeStopped, stopped.Status)
	assert.NotNil(t, stopped.TerminatedAt)
	assert.Equal(t, []int{inst.Port}, alloc.releasedPorts())

	rec, err := st.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeStopped, rec.Status)

	// Stopping again is a no-op.
	again, err := sup.Stop(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeStopped, again.Status)
}

func TestStop_UnknownID(t *testing.T) {
	binary := writeFakeNode(t, "exec sleep 60")
	sup, _ := newTestSupervisor(t, testConfig(t, binary), newFakeAlloc(18545, 3), okDialer)

	_, err := sup.Stop(context.Background(), "node-deadbeef")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExitWatcher_OutOfBandKill(t *testing.T) {
	ctx := context.Background()
	binary := writeFakeNode(t, "exec sleep 60")
	alloc := newFakeAlloc(18545, 3)
	sup, st := newTestSupervisor(t, testConfig(t, binary), alloc, okDialer)

	inst, err := sup.Start(ctx, domain.NodeOptions{})
	require.NoError(t, err)

	// Kill the process behind the supervisor's back. No Stop call is made;
	// the exit watcher alone must observe the exit, mark the instance
	// stopped, release the port, and persist.
	require.NoError(t, syscall.Kill(inst.PID, syscall.SIGKILL))

	require.Eventually(t, func() bool {
		got, err := sup.Get(inst.ID)
		return err == nil && got.Status == domain.NodeStopped
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, []int{inst.Port}, alloc.releasedPorts())
	rec, err := st.Get(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeStopped, rec.Status)
	assert.NotNil(t, rec.TerminatedAt)
}

func TestStart_ConcurrentStartsGetDistinctPorts(t *testing.T) {
	ctx := context.Background()
	binary := writeFakeNode(t, "exec sleep 60")
	alloc := newFakeAlloc(18545, 3)
	sup, _ := newTestSupervisor(t, testConfig(t, binary), alloc, okDialer)

	var mu sync.Mutex
	seen := make(map[int]bool)
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inst, err := sup.Start(ctx, domain.NodeOptions{})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[inst.Port] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 3)

	// A fourth start over the same range is a capacity condition.
	_, err := sup.Start(ctx, domain.NodeOptions{})
	assert.ErrorIs(t, err, domain.ErrCapacityExhausted)
}

func TestStart_RedactsKeysFromLogs(t *testing.T) {
	ctx := context.Background()
	key := "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	binary := writeFakeNode(t, `echo "Private Key: `+key+`"; exec sleep 60`)
	sup, _ := newTestSupervisor(t, testConfig(t, binary), newFakeAlloc(18545, 3), okDialer)

	inst, err := sup.Start(ctx, domain.NodeOptions{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(inst.LogFile)
		return err == nil && len(data) > 0
	}, 2*time.Second, 20*time.Millisecond)

	data, err := os.ReadFile(inst.LogFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), key)
	assert.Contains(t, string(data), "[redacted]")
}

func TestStopAll_StopsEverythingItOwns(t *testing.T) {
	ctx := context.Background()
	binary := writeFakeNode(t, "exec sleep 60")
	sup, _ := newTestSupervisor(t, testConfig(t, binary), newFakeAlloc(18545, 5), okDialer)

	a, err := sup.Start(ctx, domain.NodeOptions{})
	require.NoError(t, err)
	b, err := sup.Start(ctx, domain.NodeOptions{})
	require.NoError(t, err)

	require.NoError(t, sup.StopAll(ctx))

	for _, id := range []string{a.ID, b.ID} {
		inst, err := sup.Get(id)
		require.NoError(t, err)
		assert.Equal(t, domain.NodeStopped, inst.Status)
	}
}
