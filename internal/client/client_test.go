package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devnet-tools/devnetctl/internal/domain"
	"github.com/devnet-tools/devnetctl/internal/server"
)

func TestStartNode_SendsOptionsAndDecodesInstance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/nodes", r.URL.Path)

		var req server.StartNodeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "devnet", req.Name)
		assert.Equal(t, uint64(10), req.ChainID)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.NodeInstance{
			ID:     "node-12345678",
			Name:   req.Name,
			Port:   8545,
			Status: domain.NodeRunning,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	inst, err := c.StartNode(context.Background(), server.StartNodeRequest{Name: "devnet", ChainID: 10})
	require.NoError(t, err)
	assert.Equal(t, "node-12345678", inst.ID)
	assert.Equal(t, domain.NodeRunning, inst.Status)
}

func TestDo_SurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(server.ErrorResponse{Error: "instance node-x: not found"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ShowNode(context.Background(), "node-x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDo_UnreachableDaemon(t *testing.T) {
	c := New("http://127.0.0.1:1")
	err := c.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon unreachable")
}

func TestStopImpersonation_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL)
	require.NoError(t, c.StopImpersonation(context.Background(), "node-1", "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"))
}
