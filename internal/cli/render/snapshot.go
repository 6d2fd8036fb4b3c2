package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/devnet-tools/devnetctl/internal/domain"
	"github.com/devnet-tools/devnetctl/internal/server"
)

// SnapshotRenderer renders snapshot records and revert outcomes.
type SnapshotRenderer struct {
	out  io.Writer
	json bool
}

// NewSnapshotRenderer creates a snapshot renderer.
func NewSnapshotRenderer(out io.Writer, json bool) *SnapshotRenderer {
	return &SnapshotRenderer{out: out, json: json}
}

// RenderCaptured renders a freshly captured snapshot.
func (r *SnapshotRenderer) RenderCaptured(snap *domain.Snapshot) error {
	if r.json {
		return writeJSON(r.out, snap)
	}
	label := snap.Token
	if snap.Name != "" {
		label = fmt.Sprintf("%s (%s)", snap.Name, snap.Token)
	}
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Snapshot %s captured at block %d", label, snap.BlockNumber)))
	return nil
}

// RenderReverted renders a revert outcome, including any staleness warning.
func (r *SnapshotRenderer) RenderReverted(resp *server.RevertResponse) error {
	if r.json {
		return writeJSON(r.out, resp)
	}
	if resp.Warning != "" {
		fmt.Fprintln(r.out, FormatWarning(resp.Warning))
	}
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Reverted to snapshot %s, chain now at block %d", resp.Snapshot.Token, resp.BlockNumber)))
	return nil
}

// RenderList renders snapshots as a table, oldest first.
func (r *SnapshotRenderer) RenderList(snaps []*domain.Snapshot) error {
	if r.json {
		return writeJSON(r.out, snaps)
	}
	if len(snaps) == 0 {
		fmt.Fprintln(r.out, "No snapshots found")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Token", "Name", "Block", "Captured", "Consumed"})

	for _, snap := range snaps {
		name := snap.Name
		if name == "" {
			name = "-"
		}
		consumed := ""
		if snap.Consumed {
			consumed = "yes"
		}
		t.AppendRow(table.Row{
			snap.Token,
			name,
			snap.BlockNumber,
			snap.CreatedAt.Format("2006-01-02 15:04:05"),
			consumed,
		})
	}

	t.Render()
	return nil
}
