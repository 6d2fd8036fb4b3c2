// Package anvil supervises external anvil node processes: spawning, liveness
// probing, output redaction, exit observation, and teardown.
package anvil

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"

	"github.com/devnet-tools/devnetctl/internal/domain"
	"github.com/devnet-tools/devnetctl/internal/domain/config"
	"github.com/devnet-tools/devnetctl/internal/usecase"
)

// Supervisor owns every spawned node process and the in-memory instance map.
// All lifecycle transitions go through it; callers only ever see copies of
// the records.
type Supervisor struct {
	cfg    *config.RuntimeConfig
	log    *slog.Logger
	store  usecase.NodeStore
	alloc  usecase.PortAllocator
	dial   usecase.ChainDialer
	redact *Redactor

	mu    sync.RWMutex
	nodes map[string]*managedNode
}

// managedNode pairs an instance record with its process handle.
type managedNode struct {
	inst *domain.NodeInstance
	cmd  *exec.Cmd
	// client is set once the instance reached running.
	client usecase.ChainClient
	// allocatedPort is false when the caller supplied an explicit port
	// override; such ports are never returned to the allocator.
	allocatedPort bool
	portReleased  bool
	// done is closed when the exit watcher has observed process exit and
	// finished its bookkeeping.
	done chan struct{}
}

// NewSupervisor creates a supervisor. Reconcile must be called once before
// Start accepts work.
func NewSupervisor(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	store usecase.NodeStore,
	alloc usecase.PortAllocator,
	dial usecase.ChainDialer,
) (*Supervisor, error) {
	redact, err := NewRedactor(cfg.RedactPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid redact pattern: %w", err)
	}
	return &Supervisor{
		cfg:    cfg,
		log:    log,
		store:  store,
		alloc:  alloc,
		dial:   dial,
		redact: redact,
		nodes:  make(map[string]*managedNode),
	}, nil
}

func newNodeID() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return "node-" + hex.EncodeToString(buf)
}

// Start spawns a node process and blocks until its RPC endpoint answers a
// liveness probe or the startup timeout elapses. On timeout the process is
// left running so it can be inspected and stopped explicitly.
func (s *Supervisor) Start(ctx context.Context, opts domain.NodeOptions) (*domain.NodeInstance, error) {
	port := opts.Port
	allocated := false
	if port == 0 {
		p, ok := s.alloc.Allocate()
		if !ok {
			return nil, domain.ErrCapacityExhausted
		}
		port = p
		allocated = true
	}

	id := newNodeID()
	name := opts.Name
	if name == "" {
		name = id
	}
	inst := &domain.NodeInstance{
		ID:        id,
		Name:      name,
		Port:      port,
		ChainID:   opts.ChainID,
		ForkURL:   opts.ForkURL,
		ForkBlock: opts.ForkBlock,
		Status:    domain.NodeStarting,
		CreatedAt: time.Now(),
	}

	releaseOnFailure := func() {
		if allocated {
			s.alloc.Release(port)
		}
	}

	logDir := filepath.Join(s.cfg.DataDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		releaseOnFailure()
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	inst.LogFile = filepath.Join(logDir, id+".log")
	logFile, err := os.Create(inst.LogFile)
	if err != nil {
		releaseOnFailure()
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	cmd := exec.Command(s.cfg.NodeBinary, buildNodeArgs(inst)...)
	// Streams are captured, never inherited: everything the process prints
	// passes through the redactor before reaching any sink.
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		logFile.Close()
		releaseOnFailure()
		return nil, fmt.Errorf("failed to attach stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		logFile.Close()
		releaseOnFailure()
		return nil, fmt.Errorf("failed to attach stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		releaseOnFailure()
		// A spawn failure is fatal to this call only, never to the daemon.
		return nil, fmt.Errorf("failed to start %s: %w", s.cfg.NodeBinary, err)
	}
	inst.PID = cmd.Process.Pid

	m := &managedNode{
		inst:          inst,
		cmd:           cmd,
		allocatedPort: allocated,
		done:          make(chan struct{}),
	}
	s.mu.Lock()
	s.nodes[id] = m
	s.mu.Unlock()

	if err := s.store.Upsert(ctx, inst); err != nil {
		s.log.Error("failed to persist starting record", "id", id, "err", err)
	}

	var pumps sync.WaitGroup
	pumps.Add(2)
	go s.pumpOutput(id, stdout, logFile, &pumps)
	go s.pumpOutput(id, stderr, logFile, &pumps)
	go func() {
		pumps.Wait()
		exitErr := cmd.Wait()
		logFile.Close()
		s.onExit(id, exitErr)
		close(m.done)
	}()

	s.log.Info("node process spawned", "id", id, "pid", inst.PID, "port", port)

	if err := s.awaitReady(ctx, m); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// awaitReady polls the node's RPC endpoint until it answers a block-height
// query, bounded by the startup timeout. A malformed or missing response is
// "not yet ready", not an error.
func (s *Supervisor) awaitReady(ctx context.Context, m *managedNode) error {
	inst := m.inst
	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer cancel()

	var client usecase.ChainClient
	err := retry.Do(
		func() error {
			select {
			case <-m.done:
				return retry.Unrecoverable(fmt.Errorf("node %s exited during startup", inst.ID))
			default:
			}
			if client == nil {
				c, err := s.dial(inst.RPCURL())
				if err != nil {
					return err
				}
				client = c
			}
			_, err := client.BlockNumber(pollCtx)
			return err
		},
		retry.Context(pollCtx),
		retry.Attempts(0),
		retry.Delay(s.cfg.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		s.mu.Lock()
		if inst.Status == domain.NodeStarting {
			inst.Status = domain.NodeRunning
			m.client = client
		}
		status := inst.Status
		rec := inst.Clone()
		s.mu.Unlock()
		if status != domain.NodeRunning {
			// The process died between the probe and the transition.
			if client != nil {
				client.Close()
			}
			return fmt.Errorf("node %s exited during startup", inst.ID)
		}
		if err := s.store.Upsert(ctx, rec); err != nil {
			s.log.Error("failed to persist running record", "id", inst.ID, "err", err)
		}
		s.log.Info("node is ready", "id", inst.ID, "port", inst.Port)
		return nil
	}

	if client != nil {
		client.Close()
	}

	if errors.Is(pollCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		s.mu.Lock()
		if inst.Status == domain.NodeStarting {
			inst.Status = domain.NodeError
		}
		rec := inst.Clone()
		s.mu.Unlock()
		if err := s.store.Upsert(context.WithoutCancel(ctx), rec); err != nil {
			s.log.Error("failed to persist error record", "id", inst.ID, "err", err)
		}
		// The process is deliberately left running so operators can inspect
		// it; it remains reachable for an explicit stop.
		s.log.Warn("node never became ready", "id", inst.ID, "timeout", s.cfg.StartupTimeout)
		return &domain.StartupTimeoutError{ID: inst.ID, Timeout: s.cfg.StartupTimeout}
	}
	// Caller cancellation or the process exited under us. The exit watcher
	// owns any terminal bookkeeping; the record stays as-is here.
	return err
}

// pumpOutput copies one process stream line by line through the redactor.
func (s *Supervisor) pumpOutput(id string, r io.Reader, w io.Writer, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := s.redact.RedactLine(scanner.Text())
		fmt.Fprintln(w, line)
		s.log.Debug("node output", "id", id, "line", line)
	}
	if err := scanner.Err(); err != nil {
		s.log.Debug("node output stream closed", "id", id, "err", err)
	}
}

// onExit runs exactly once per process, when the exit watcher observes the
// process leaving. It transitions non-terminal instances to stopped,
// releases the port, and persists the change without caller involvement.
func (s *Supervisor) onExit(id string, exitErr error) {
	s.mu.Lock()
	m, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	inst := m.inst
	now := time.Now()
	switch inst.Status {
	case domain.NodeStarting, domain.NodeRunning:
		inst.Status = domain.NodeStopped
		inst.TerminatedAt = &now
	case domain.NodeError:
		// Startup timed out earlier; keep the error status but record when
		// the process actually went away.
		inst.TerminatedAt = &now
	}
	if m.allocatedPort && !m.portReleased {
		s.alloc.Release(inst.Port)
		m.portReleased = true
	}
	client := m.client
	m.client = nil
	rec := inst.Clone()
	s.mu.Unlock()

	if client != nil {
		client.Close()
	}
	if err := s.store.Upsert(context.Background(), rec); err != nil {
		s.log.Error("failed to persist exit", "id", id, "err", err)
	}
	s.log.Info("node process exited", "id", id, "status", rec.Status, "err", exitErr)
}

// Stop gracefully terminates an instance: SIGTERM, then a hard kill after
// the configured grace period. Stopping an orphaned instance is rejected
// because this process holds no handle to signal. Stopping an already
// stopped instance is a no-op.
func (s *Supervisor) Stop(ctx context.Context, id string) (*domain.NodeInstance, error) {
	s.mu.RLock()
	m, ok := s.nodes[id]
	var status domain.NodeStatus
	if ok {
		status = m.inst.Status
	}
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	switch status {
	case domain.NodeOrphaned:
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrOrphaned)
	case domain.NodeStopped:
		return s.Get(id)
	}

	if err := m.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already gone; the exit watcher finishes the bookkeeping.
		s.log.Debug("signal failed", "id", id, "err", err)
	}
	select {
	case <-m.done:
	case <-time.After(s.cfg.StopGrace):
		s.log.Warn("node ignored SIGTERM, killing", "id", id)
		_ = m.cmd.Process.Kill()
		<-m.done
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Get(id)
}

// StopAll stops every instance this process owns. Orphaned instances are
// skipped with a warning since they cannot be signaled.
func (s *Supervisor) StopAll(ctx context.Context) error {
	s.mu.RLock()
	type target struct {
		id     string
		status domain.NodeStatus
	}
	targets := make([]target, 0, len(s.nodes))
	for id, m := range s.nodes {
		targets = append(targets, target{id: id, status: m.inst.Status})
	}
	s.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, tg := range targets {
		switch tg.status {
		case domain.NodeOrphaned:
			s.log.Warn("skipping orphaned instance, no process handle to signal", "id", tg.id)
			continue
		case domain.NodeStopped:
			continue
		}
		id := tg.id
		g.Go(func() error {
			_, err := s.Stop(ctx, id)
			if errors.Is(err, domain.ErrOrphaned) || errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// Get returns a copy of an instance record.
func (s *Supervisor) Get(id string) (*domain.NodeInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	return m.inst.Clone(), nil
}

// List returns copies of all in-memory instance records ordered by creation.
func (s *Supervisor) List() []*domain.NodeInstance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*domain.NodeInstance, 0, len(s.nodes))
	for _, m := range s.nodes {
		result = append(result, m.inst.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// ClientFor returns the control-plane client of a running instance.
func (s *Supervisor) ClientFor(id string) (usecase.ChainClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	if m.inst.Status != domain.NodeRunning {
		return nil, fmt.Errorf("node %s is %s, not running", id, m.inst.Status)
	}
	if m.client == nil {
		c, err := s.dial(m.inst.RPCURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to node %s: %w", id, err)
		}
		m.client = c
	}
	return m.client, nil
}

var _ usecase.NodeSupervisor = (*Supervisor)(nil)
