package render

import (
	"fmt"
	"io"

	"github.com/devnet-tools/devnetctl/internal/domain"
)

// ImpersonationRenderer renders impersonation sessions.
type ImpersonationRenderer struct {
	out  io.Writer
	json bool
}

// NewImpersonationRenderer creates an impersonation renderer.
func NewImpersonationRenderer(out io.Writer, json bool) *ImpersonationRenderer {
	return &ImpersonationRenderer{out: out, json: json}
}

// RenderStarted renders a new session, surfacing the zero-balance warning
// when present.
func (r *ImpersonationRenderer) RenderStarted(session *domain.ImpersonationSession) error {
	if r.json {
		return writeJSON(r.out, session)
	}
	if session.Warning != "" {
		fmt.Fprintln(r.out, FormatWarning(session.Warning))
	}
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Impersonating %s on node %s", session.Address.Hex(), session.NodeID)))
	return nil
}

// RenderStopped confirms a session ended.
func (r *ImpersonationRenderer) RenderStopped(nodeID, address string) error {
	if r.json {
		return writeJSON(r.out, map[string]string{"node_id": nodeID, "address": address, "status": "stopped"})
	}
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Stopped impersonating %s on node %s", address, nodeID)))
	return nil
}

// RenderList renders the active addresses.
func (r *ImpersonationRenderer) RenderList(addresses []string) error {
	if r.json {
		return writeJSON(r.out, addresses)
	}
	if len(addresses) == 0 {
		fmt.Fprintln(r.out, "No active impersonations")
		return nil
	}
	for _, addr := range addresses {
		fmt.Fprintln(r.out, addr)
	}
	return nil
}
