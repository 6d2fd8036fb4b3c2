package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/devnet-tools/devnetctl/internal/domain"
)

var (
	runningStyle  = color.New(color.FgGreen)
	stoppedStyle  = color.New(color.Faint)
	orphanedStyle = color.New(color.FgYellow)
	errorStyle    = color.New(color.FgRed)
	idStyle       = color.New(color.Bold)
)

// NodeRenderer renders node instance records.
type NodeRenderer struct {
	out  io.Writer
	json bool
}

// NewNodeRenderer creates a node renderer. With json set, all output is
// machine-readable JSON.
func NewNodeRenderer(out io.Writer, json bool) *NodeRenderer {
	return &NodeRenderer{out: out, json: json}
}

// RenderInstance renders one instance record.
func (r *NodeRenderer) RenderInstance(inst *domain.NodeInstance) error {
	if r.json {
		return writeJSON(r.out, inst)
	}

	fmt.Fprintf(r.out, "%s %s\n", idStyle.Sprint(inst.ID), statusBadge(inst.Status))
	if inst.Name != "" {
		fmt.Fprintf(r.out, "  Name:     %s\n", inst.Name)
	}
	fmt.Fprintf(r.out, "  RPC URL:  %s\n", inst.RPCURL())
	if inst.ChainID != 0 {
		fmt.Fprintf(r.out, "  Chain ID: %d\n", inst.ChainID)
	}
	if inst.ForkURL != "" {
		fmt.Fprintf(r.out, "  Fork:     %s", inst.ForkURL)
		if inst.ForkBlock != 0 {
			fmt.Fprintf(r.out, " @ block %d", inst.ForkBlock)
		}
		fmt.Fprintln(r.out)
	}
	if inst.PID != 0 {
		fmt.Fprintf(r.out, "  PID:      %d\n", inst.PID)
	}
	if inst.LogFile != "" {
		fmt.Fprintf(r.out, "  Logs:     %s\n", inst.LogFile)
	}
	fmt.Fprintf(r.out, "  Created:  %s\n", inst.CreatedAt.Format("2006-01-02 15:04:05"))
	if inst.TerminatedAt != nil {
		fmt.Fprintf(r.out, "  Ended:    %s\n", inst.TerminatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// RenderList renders instances as a table.
func (r *NodeRenderer) RenderList(instances []*domain.NodeInstance) error {
	if r.json {
		return writeJSON(r.out, instances)
	}
	if len(instances) == 0 {
		fmt.Fprintln(r.out, "No nodes found")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Status", "Port", "Chain ID", "PID", "Created"})

	for _, inst := range instances {
		name := inst.Name
		if name == "" {
			name = "-"
		}
		chainID := "-"
		if inst.ChainID != 0 {
			chainID = fmt.Sprintf("%d", inst.ChainID)
		}
		pid := "-"
		if inst.PID != 0 && inst.Status == domain.NodeRunning {
			pid = fmt.Sprintf("%d", inst.PID)
		}
		t.AppendRow(table.Row{
			inst.ID,
			name,
			statusBadge(inst.Status),
			inst.Port,
			chainID,
			pid,
			inst.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	t.Render()
	return nil
}

func statusBadge(status domain.NodeStatus) string {
	switch status {
	case domain.NodeRunning:
		return runningStyle.Sprint("running")
	case domain.NodeStarting:
		return runningStyle.Sprint("starting")
	case domain.NodeStopped:
		return stoppedStyle.Sprint("stopped")
	case domain.NodeOrphaned:
		return orphanedStyle.Sprint("orphaned")
	case domain.NodeError:
		return errorStyle.Sprint("error")
	default:
		return string(status)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
