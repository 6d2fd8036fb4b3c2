// Package ports implements the RPC port allocator for node instances.
package ports

import (
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/devnet-tools/devnetctl/internal/domain/config"
	"github.com/devnet-tools/devnetctl/internal/usecase"
)

// Allocator hands out exclusive-use ports from an inclusive range.
//
// The scan is ascending and deterministic within a process run. Candidates
// must both be free in the allocator's own bookkeeping and pass an OS-level
// bind-and-release probe; the probe is best-effort against processes outside
// our control and is not a guarantee.
type Allocator struct {
	mu        sync.Mutex
	start     int
	end       int
	allocated map[int]bool

	// probe is injectable for tests; defaults to a TCP listen on loopback.
	probe func(port int) (io.Closer, error)
}

// NewAllocator creates an allocator over the inclusive range [start, end].
func NewAllocator(start, end int) *Allocator {
	return &Allocator{
		start:     start,
		end:       end,
		allocated: make(map[int]bool),
		probe: func(port int) (io.Closer, error) {
			return net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		},
	}
}

// ProvideAllocator creates the allocator from runtime configuration.
func ProvideAllocator(cfg *config.RuntimeConfig) usecase.PortAllocator {
	return NewAllocator(cfg.PortRangeStart, cfg.PortRangeEnd)
}

// Allocate returns the lowest free port that passes the bind probe, or false
// if the range is exhausted. Marking is atomic with the decision to return a
// port, so two concurrent callers never receive the same one.
func (a *Allocator) Allocate() (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for port := a.start; port <= a.end; port++ {
		if a.allocated[port] {
			continue
		}
		l, err := a.probe(port)
		if err != nil {
			// Some unrelated process holds the port; skip it but leave it
			// unallocated so a later scan can retry.
			continue
		}
		_ = l.Close()
		a.allocated[port] = true
		return port, true
	}
	return 0, false
}

// Release returns a port to the pool. Releasing a port that is not allocated
// is a no-op.
func (a *Allocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.allocated, port)
}

var _ usecase.PortAllocator = (*Allocator)(nil)
