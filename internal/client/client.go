// Package client is the HTTP client for a running devnetctl daemon.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/devnet-tools/devnetctl/internal/domain"
	"github.com/devnet-tools/devnetctl/internal/server"
)

// Client talks to the daemon's control API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given daemon base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		// Start blocks until the node is ready, so allow generous time.
		http: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Health checks that the daemon is reachable.
func (c *Client) Health(ctx context.Context) error {
	var resp map[string]string
	return c.do(ctx, http.MethodGet, "/v1/health", nil, &resp)
}

// StartNode asks the daemon to spawn a node instance.
func (c *Client) StartNode(ctx context.Context, req server.StartNodeRequest) (*domain.NodeInstance, error) {
	var inst domain.NodeInstance
	if err := c.do(ctx, http.MethodPost, "/v1/nodes", req, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// StopNode stops one instance.
func (c *Client) StopNode(ctx context.Context, id string) (*domain.NodeInstance, error) {
	var inst domain.NodeInstance
	if err := c.do(ctx, http.MethodDelete, "/v1/nodes/"+url.PathEscape(id), nil, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// StopAll stops every instance the daemon owns.
func (c *Client) StopAll(ctx context.Context) ([]*domain.NodeInstance, error) {
	var instances []*domain.NodeInstance
	if err := c.do(ctx, http.MethodPost, "/v1/nodes/stop-all", nil, &instances); err != nil {
		return nil, err
	}
	return instances, nil
}

// ListNodes lists instances, optionally filtered by status or including
// historical store records.
func (c *Client) ListNodes(ctx context.Context, status string, all bool) ([]*domain.NodeInstance, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if all {
		q.Set("all", "true")
	}
	path := "/v1/nodes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var instances []*domain.NodeInstance
	if err := c.do(ctx, http.MethodGet, path, nil, &instances); err != nil {
		return nil, err
	}
	return instances, nil
}

// ShowNode fetches one instance record.
func (c *Client) ShowNode(ctx context.Context, id string) (*domain.NodeInstance, error) {
	var inst domain.NodeInstance
	if err := c.do(ctx, http.MethodGet, "/v1/nodes/"+url.PathEscape(id), nil, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

// CaptureSnapshot records a snapshot on a running node.
func (c *Client) CaptureSnapshot(ctx context.Context, nodeID, name string) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	path := "/v1/nodes/" + url.PathEscape(nodeID) + "/snapshots"
	if err := c.do(ctx, http.MethodPost, path, server.CaptureSnapshotRequest{Name: name}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// RevertSnapshot rolls a node back to a snapshot by name or raw token.
func (c *Client) RevertSnapshot(ctx context.Context, nodeID, idOrName string) (*server.RevertResponse, error) {
	var resp server.RevertResponse
	path := "/v1/nodes/" + url.PathEscape(nodeID) + "/snapshots/revert"
	if err := c.do(ctx, http.MethodPost, path, server.RevertSnapshotRequest{Snapshot: idOrName}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSnapshots lists snapshots recorded for one node, oldest first.
func (c *Client) ListSnapshots(ctx context.Context, nodeID string) ([]*domain.Snapshot, error) {
	var snaps []*domain.Snapshot
	path := "/v1/nodes/" + url.PathEscape(nodeID) + "/snapshots"
	if err := c.do(ctx, http.MethodGet, path, nil, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

// StartImpersonation begins impersonating an address on one node.
func (c *Client) StartImpersonation(ctx context.Context, nodeID, address string) (*domain.ImpersonationSession, error) {
	var session domain.ImpersonationSession
	path := "/v1/nodes/" + url.PathEscape(nodeID) + "/impersonations"
	if err := c.do(ctx, http.MethodPost, path, server.ImpersonateRequest{Address: address}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// StopImpersonation stops impersonating an address. Idempotent.
func (c *Client) StopImpersonation(ctx context.Context, nodeID, address string) error {
	path := "/v1/nodes/" + url.PathEscape(nodeID) + "/impersonations/" + url.PathEscape(address)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ListImpersonations lists the active impersonated addresses on one node.
func (c *Client) ListImpersonations(ctx context.Context, nodeID string) ([]string, error) {
	var resp server.ImpersonationsResponse
	path := "/v1/nodes/" + url.PathEscape(nodeID) + "/impersonations"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return err
		}
		reqBody = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s (is `devnetctl serve` running?): %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr server.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
