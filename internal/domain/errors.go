package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested instance, snapshot, or
	// impersonation target doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when a snapshot name is already
	// registered. Names are never silently renamed.
	ErrDuplicateName = errors.New("name already in use")

	// ErrCapacityExhausted is returned when the port range has no free port
	// left. Retrying without releasing a port is futile.
	ErrCapacityExhausted = errors.New("no free port in configured range")

	// ErrOrphaned is returned when stopping an instance whose owning process
	// was spawned by a previous supervisor. There is no process handle to
	// signal, so the stop is rejected rather than silently succeeding.
	ErrOrphaned = errors.New("instance is orphaned and cannot be signaled")
)

// StartupTimeoutError means the node process spawned at the OS level but
// never answered a liveness probe within the configured timeout. The process
// is left running for inspection and remains reachable for an explicit stop.
type StartupTimeoutError struct {
	ID      string
	Timeout time.Duration
}

func (e *StartupTimeoutError) Error() string {
	return fmt.Sprintf("node %s did not become ready within %s (process left running)", e.ID, e.Timeout)
}
