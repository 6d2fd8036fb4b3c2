package domain

import (
	"fmt"
	"time"
)

// NodeStatus is the lifecycle status of a node instance.
type NodeStatus string

const (
	// NodeStarting means the process has been spawned but the RPC endpoint
	// has not answered a liveness probe yet.
	NodeStarting NodeStatus = "starting"
	// NodeRunning means the RPC endpoint answered a liveness probe.
	NodeRunning NodeStatus = "running"
	// NodeStopped means the process exited, either through an explicit stop
	// or on its own while the supervisor was attached.
	NodeStopped NodeStatus = "stopped"
	// NodeOrphaned means the record belongs to a process spawned by a
	// previous supervisor process. The current process holds no handle to it
	// and cannot signal it.
	NodeOrphaned NodeStatus = "orphaned"
	// NodeError means the process spawned but never became ready within the
	// startup timeout. The process may still be running.
	NodeError NodeStatus = "error"
)

// Terminal reports whether the status is a terminal state.
func (s NodeStatus) Terminal() bool {
	switch s {
	case NodeStopped, NodeOrphaned, NodeError:
		return true
	}
	return false
}

// NodeInstance represents one externally spawned local test node process.
type NodeInstance struct {
	ID           string     `json:"id"`
	Name         string     `json:"name,omitempty"`
	Port         int        `json:"port"`
	ChainID      uint64     `json:"chainId,omitempty"`
	ForkURL      string     `json:"forkUrl,omitempty"`
	ForkBlock    uint64     `json:"forkBlock,omitempty"`
	Status       NodeStatus `json:"status"`
	PID          int        `json:"pid,omitempty"`
	LogFile      string     `json:"logFile,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	TerminatedAt *time.Time `json:"terminatedAt,omitempty"`
}

// RPCURL returns the HTTP RPC endpoint of the instance.
func (n *NodeInstance) RPCURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", n.Port)
}

// Clone returns a copy of the instance so callers never share the
// supervisor-owned record.
func (n *NodeInstance) Clone() *NodeInstance {
	c := *n
	if n.TerminatedAt != nil {
		t := *n.TerminatedAt
		c.TerminatedAt = &t
	}
	return &c
}

// NodeOptions are the caller-supplied parameters for starting a node.
type NodeOptions struct {
	Name string `json:"name,omitempty"`
	// Port overrides automatic allocation when non-zero.
	Port      int    `json:"port,omitempty"`
	ChainID   uint64 `json:"chainId,omitempty"`
	ForkURL   string `json:"forkUrl,omitempty"`
	ForkBlock uint64 `json:"forkBlock,omitempty"`
}
