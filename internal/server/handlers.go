package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/devnet-tools/devnetctl/internal/config"
	"github.com/devnet-tools/devnetctl/internal/domain"
	"github.com/devnet-tools/devnetctl/internal/usecase"
)

// StartNodeRequest is the POST /v1/nodes body.
type StartNodeRequest struct {
	Name      string `json:"name,omitempty"`
	Port      int    `json:"port,omitempty"`
	ChainID   uint64 `json:"chain_id,omitempty"`
	ForkURL   string `json:"fork_url,omitempty"`
	ForkBlock uint64 `json:"fork_block,omitempty"`
}

// CaptureSnapshotRequest is the POST snapshots body.
type CaptureSnapshotRequest struct {
	Name string `json:"name,omitempty"`
}

// RevertSnapshotRequest is the POST snapshots/revert body.
type RevertSnapshotRequest struct {
	Snapshot string `json:"snapshot"`
}

// ImpersonateRequest is the POST impersonations body.
type ImpersonateRequest struct {
	Address string `json:"address"`
}

// RevertResponse is returned from snapshots/revert.
type RevertResponse struct {
	Snapshot    *domain.Snapshot `json:"snapshot"`
	BlockNumber uint64           `json:"block_number"`
	Warning     string           `json:"warning,omitempty"`
}

// ImpersonationsResponse lists active addresses.
type ImpersonationsResponse struct {
	Addresses []string `json:"addresses"`
}

// ErrorResponse is the wire shape of any failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	params := usecase.ListNodesParams{
		Status: domain.NodeStatus(r.URL.Query().Get("status")),
		All:    r.URL.Query().Get("all") == "true",
	}
	result, err := s.app.ListNodes.Execute(r.Context(), params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Instances)
}

func (s *Server) handleStartNode(w http.ResponseWriter, r *http.Request) {
	var req StartNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, badRequest("invalid request body"))
		return
	}
	result, err := s.app.StartNode.Execute(r.Context(), usecase.StartNodeParams{
		Name:      req.Name,
		Port:      req.Port,
		ChainID:   req.ChainID,
		ForkURL:   req.ForkURL,
		ForkBlock: req.ForkBlock,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result.Instance)
}

func (s *Server) handleShowNode(w http.ResponseWriter, r *http.Request) {
	result, err := s.app.ShowNode.Execute(r.Context(), usecase.ShowNodeParams{ID: mux.Vars(r)["id"]})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Instance)
}

func (s *Server) handleStopNode(w http.ResponseWriter, r *http.Request) {
	result, err := s.app.StopNode.Execute(r.Context(), usecase.StopNodeParams{ID: mux.Vars(r)["id"]})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Instance)
}

func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	result, err := s.app.StopAllNodes.Execute(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Instances)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	result, err := s.app.ListSnapshots.Execute(r.Context(), usecase.ListSnapshotsParams{NodeID: mux.Vars(r)["id"]})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Snapshots)
}

func (s *Server) handleCaptureSnapshot(w http.ResponseWriter, r *http.Request) {
	var req CaptureSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, badRequest("invalid request body"))
		return
	}
	result, err := s.app.CaptureSnapshot.Execute(r.Context(), usecase.CaptureSnapshotParams{
		NodeID: mux.Vars(r)["id"],
		Name:   req.Name,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result.Snapshot)
}

func (s *Server) handleRevertSnapshot(w http.ResponseWriter, r *http.Request) {
	var req RevertSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Snapshot == "" {
		s.writeError(w, badRequest("snapshot name or token required"))
		return
	}
	result, err := s.app.RevertSnapshot.Execute(r.Context(), usecase.RevertSnapshotParams{
		NodeID:   mux.Vars(r)["id"],
		IDOrName: req.Snapshot,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RevertResponse{
		Snapshot:    result.Outcome.Snapshot,
		BlockNumber: result.Outcome.BlockNumber,
		Warning:     result.Outcome.Warning,
	})
}

func (s *Server) handleListImpersonations(w http.ResponseWriter, r *http.Request) {
	result, err := s.app.ListImpersonations.Execute(r.Context(), usecase.ListImpersonationsParams{NodeID: mux.Vars(r)["id"]})
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := ImpersonationsResponse{Addresses: make([]string, 0, len(result.Addresses))}
	for _, addr := range result.Addresses {
		resp.Addresses = append(resp.Addresses, addr.Hex())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStartImpersonation(w http.ResponseWriter, r *http.Request) {
	var req ImpersonateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, badRequest("invalid request body"))
		return
	}
	if !common.IsHexAddress(req.Address) {
		s.writeError(w, badRequest("invalid address"))
		return
	}
	result, err := s.app.StartImpersonation.Execute(r.Context(), usecase.ImpersonationParams{
		NodeID:  mux.Vars(r)["id"],
		Address: common.HexToAddress(req.Address),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result.Session)
}

func (s *Server) handleStopImpersonation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !common.IsHexAddress(vars["address"]) {
		s.writeError(w, badRequest("invalid address"))
		return
	}
	_, err := s.app.StopImpersonation.Execute(r.Context(), usecase.ImpersonationParams{
		NodeID:  vars["id"],
		Address: common.HexToAddress(vars["address"]),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string { return e.message }

func badRequest(msg string) error {
	return &httpError{status: http.StatusBadRequest, message: msg}
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var he *httpError
	var timeout *domain.StartupTimeoutError
	switch {
	case errors.As(err, &he):
		status = he.status
	case errors.As(err, &timeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateName):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrOrphaned):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrCapacityExhausted):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
