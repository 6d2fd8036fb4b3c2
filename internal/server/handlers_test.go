package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devnet-tools/devnetctl/internal/adapters/state"
	"github.com/devnet-tools/devnetctl/internal/app"
	"github.com/devnet-tools/devnetctl/internal/domain"
	"github.com/devnet-tools/devnetctl/internal/domain/config"
	"github.com/devnet-tools/devnetctl/internal/usecase"
)

type fakeChain struct {
	snapCount int
}

func (f *fakeChain) BlockNumber(ctx context.Context) (uint64, error) { return 42, nil }
func (f *fakeChain) ChainID(ctx context.Context) (uint64, error)     { return 31337, nil }
func (f *fakeChain) LatestBlock(ctx context.Context) (*domain.BlockInfo, error) {
	return &domain.BlockInfo{Number: 42, Timestamp: 1700000000}, nil
}
func (f *fakeChain) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return big.NewInt(1), nil
}
func (f *fakeChain) Snapshot(ctx context.Context) (string, error) {
	f.snapCount++
	return fmt.Sprintf("0x%x", f.snapCount), nil
}
func (f *fakeChain) Revert(ctx context.Context, token string) (bool, error) { return true, nil }
func (f *fakeChain) ImpersonateAccount(ctx context.Context, addr common.Address) error {
	return nil
}
func (f *fakeChain) StopImpersonating(ctx context.Context, addr common.Address) error {
	return nil
}
func (f *fakeChain) Close() {}

type fakeSupervisor struct {
	nodes    map[string]*domain.NodeInstance
	chain    *fakeChain
	startErr error
	stopErr  error
}

func (f *fakeSupervisor) Start(ctx context.Context, opts domain.NodeOptions) (*domain.NodeInstance, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	inst := &domain.NodeInstance{
		ID:        "node-aabbccdd",
		Name:      opts.Name,
		Port:      8545,
		Status:    domain.NodeRunning,
		PID:       1234,
		CreatedAt: time.Now(),
	}
	f.nodes[inst.ID] = inst
	return inst, nil
}

func (f *fakeSupervisor) Stop(ctx context.Context, id string) (*domain.NodeInstance, error) {
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	inst, ok := f.nodes[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, domain.ErrNotFound)
	}
	if inst.Status == domain.NodeOrphaned {
		return nil, fmt.Errorf("instance %s: %w", id, domain.ErrOrphaned)
	}
	inst.Status = domain.NodeStopped
	return inst, nil
}

func (f *fakeSupervisor) StopAll(ctx context.Context) error { return nil }

func (f *fakeSupervisor) Get(id string) (*domain.NodeInstance, error) {
	inst, ok := f.nodes[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, domain.ErrNotFound)
	}
	return inst, nil
}

func (f *fakeSupervisor) List() []*domain.NodeInstance {
	out := make([]*domain.NodeInstance, 0, len(f.nodes))
	for _, inst := range f.nodes {
		out = append(out, inst)
	}
	return out
}

func (f *fakeSupervisor) ClientFor(id string) (usecase.ChainClient, error) {
	if _, ok := f.nodes[id]; !ok {
		return nil, fmt.Errorf("instance %s: %w", id, domain.ErrNotFound)
	}
	return f.chain, nil
}

func (f *fakeSupervisor) Reconcile(ctx context.Context) (int, error) { return 0, nil }

type fakeStore struct{}

func (fakeStore) Upsert(ctx context.Context, inst *domain.NodeInstance) error { return nil }
func (fakeStore) Get(ctx context.Context, id string) (*domain.NodeInstance, error) {
	return nil, fmt.Errorf("instance %s: %w", id, domain.ErrNotFound)
}
func (fakeStore) List(ctx context.Context) ([]*domain.NodeInstance, error) { return nil, nil }
func (fakeStore) ListByStatus(ctx context.Context, status domain.NodeStatus) ([]*domain.NodeInstance, error) {
	return nil, nil
}

func newTestServer(t *testing.T, sup *fakeSupervisor) *Server {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	sink := usecase.NopProgress{}
	registry := state.NewSnapshotRegistry(log)
	tracker := state.NewImpersonationTracker(log)

	a, err := app.NewApp(
		&config.RuntimeConfig{ListenAddr: "127.0.0.1:0"},
		log,
		sup,
		usecase.NewStartNode(sup, sink),
		usecase.NewStopNode(sup, sink),
		usecase.NewStopAllNodes(sup, sink),
		usecase.NewListNodes(sup, fakeStore{}),
		usecase.NewShowNode(sup, fakeStore{}),
		usecase.NewCaptureSnapshot(sup, registry, sink),
		usecase.NewRevertSnapshot(sup, registry, sink),
		usecase.NewListSnapshots(registry),
		usecase.NewStartImpersonation(sup, tracker, sink),
		usecase.NewStopImpersonation(sup, tracker, sink),
		usecase.NewListImpersonations(tracker),
	)
	require.NoError(t, err)
	return New(a)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &fakeSupervisor{nodes: map[string]*domain.NodeInstance{}, chain: &fakeChain{}})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/v1/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleStartNode(t *testing.T) {
	sup := &fakeSupervisor{nodes: map[string]*domain.NodeInstance{}, chain: &fakeChain{}}
	srv := newTestServer(t, sup)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/nodes", StartNodeRequest{Name: "devnet"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var inst domain.NodeInstance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inst))
	assert.Equal(t, "devnet", inst.Name)
	assert.Equal(t, domain.NodeRunning, inst.Status)
}

func TestHandleStartNode_CapacityExhausted(t *testing.T) {
	sup := &fakeSupervisor{
		nodes:    map[string]*domain.NodeInstance{},
		chain:    &fakeChain{},
		startErr: fmt.Errorf("no free port: %w", domain.ErrCapacityExhausted),
	}
	srv := newTestServer(t, sup)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/nodes", StartNodeRequest{})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleStartNode_Timeout(t *testing.T) {
	sup := &fakeSupervisor{
		nodes:    map[string]*domain.NodeInstance{},
		chain:    &fakeChain{},
		startErr: &domain.StartupTimeoutError{ID: "node-dead", Timeout: time.Second},
	}
	srv := newTestServer(t, sup)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/nodes", StartNodeRequest{})
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestHandleShowNode_NotFound(t *testing.T) {
	srv := newTestServer(t, &fakeSupervisor{nodes: map[string]*domain.NodeInstance{}, chain: &fakeChain{}})

	rec := doJSON(t, srv.Router(), http.MethodGet, "/v1/nodes/node-missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStopNode_Orphaned(t *testing.T) {
	sup := &fakeSupervisor{
		nodes: map[string]*domain.NodeInstance{
			"node-old": {ID: "node-old", Status: domain.NodeOrphaned},
		},
		chain: &fakeChain{},
	}
	srv := newTestServer(t, sup)

	rec := doJSON(t, srv.Router(), http.MethodDelete, "/v1/nodes/node-old", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSnapshotRoundTrip(t *testing.T) {
	sup := &fakeSupervisor{
		nodes: map[string]*domain.NodeInstance{
			"node-1": {ID: "node-1", Status: domain.NodeRunning},
		},
		chain: &fakeChain{},
	}
	srv := newTestServer(t, sup)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/v1/nodes/node-1/snapshots", CaptureSnapshotRequest{Name: "clean"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "clean", snap.Name)

	rec = doJSON(t, router, http.MethodPost, "/v1/nodes/node-1/snapshots/revert", RevertSnapshotRequest{Snapshot: "clean"})
	require.Equal(t, http.StatusOK, rec.Code)

	var reverted RevertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reverted))
	assert.Equal(t, snap.Token, reverted.Snapshot.Token)
	assert.Empty(t, reverted.Warning)

	// Second revert of a consumed snapshot still succeeds, with a warning.
	rec = doJSON(t, router, http.MethodPost, "/v1/nodes/node-1/snapshots/revert", RevertSnapshotRequest{Snapshot: "clean"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reverted))
	assert.NotEmpty(t, reverted.Warning)
}

func TestRevertSnapshot_MissingBody(t *testing.T) {
	sup := &fakeSupervisor{
		nodes: map[string]*domain.NodeInstance{"node-1": {ID: "node-1"}},
		chain: &fakeChain{},
	}
	srv := newTestServer(t, sup)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/nodes/node-1/snapshots/revert", RevertSnapshotRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImpersonationRoutes(t *testing.T) {
	sup := &fakeSupervisor{
		nodes: map[string]*domain.NodeInstance{"node-1": {ID: "node-1"}},
		chain: &fakeChain{},
	}
	srv := newTestServer(t, sup)
	router := srv.Router()

	addr := "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	rec := doJSON(t, router, http.MethodPost, "/v1/nodes/node-1/impersonations", ImpersonateRequest{Address: addr})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/nodes/node-1/impersonations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list ImpersonationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Addresses, 1)
	assert.Equal(t, common.HexToAddress(addr).Hex(), list.Addresses[0])

	rec = doJSON(t, router, http.MethodDelete, "/v1/nodes/node-1/impersonations/"+addr, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/v1/nodes/node-1/impersonations", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Addresses)
}

func TestImpersonation_InvalidAddress(t *testing.T) {
	sup := &fakeSupervisor{
		nodes: map[string]*domain.NodeInstance{"node-1": {ID: "node-1"}},
		chain: &fakeChain{},
	}
	srv := newTestServer(t, sup)

	rec := doJSON(t, srv.Router(), http.MethodPost, "/v1/nodes/node-1/impersonations", ImpersonateRequest{Address: "not-an-address"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
