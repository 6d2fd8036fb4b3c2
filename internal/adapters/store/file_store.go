// Package store implements the durable instance record store as a JSON file
// registry under the data directory.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/devnet-tools/devnetctl/internal/domain"
	"github.com/devnet-tools/devnetctl/internal/domain/config"
	"github.com/devnet-tools/devnetctl/internal/usecase"
)

const nodesFile = "nodes.json"

// FileStore persists node instance records in a single JSON file. Records
// are append/update-only: nothing here ever deletes a historical record.
type FileStore struct {
	mu      sync.RWMutex
	dir     string
	records map[string]*domain.NodeInstance
}

// NewFileStore creates the store and loads any existing records.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s := &FileStore{
		dir:     dataDir,
		records: make(map[string]*domain.NodeInstance),
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load node registry: %w", err)
	}
	return s, nil
}

// ProvideFileStore creates the store from runtime configuration.
func ProvideFileStore(cfg *config.RuntimeConfig) (usecase.NodeStore, error) {
	return NewFileStore(cfg.DataDir)
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(filepath.Join(s.dir, nodesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &s.records)
}

// save writes the registry atomically: temp file then rename.
// Caller must hold the write lock.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal node registry: %w", err)
	}
	path := filepath.Join(s.dir, nodesFile)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write node registry: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Upsert inserts or updates an instance record and flushes to disk.
func (s *FileStore) Upsert(ctx context.Context, instance *domain.NodeInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[instance.ID] = instance.Clone()
	return s.save()
}

// Get returns a record by id, or domain.ErrNotFound.
func (s *FileStore) Get(ctx context.Context, id string) (*domain.NodeInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec.Clone(), nil
}

// List returns all records ordered by creation time.
func (s *FileStore) List(ctx context.Context) ([]*domain.NodeInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*domain.NodeInstance, 0, len(s.records))
	for _, rec := range s.records {
		result = append(result, rec.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ListByStatus returns all records with the given status.
func (s *FileStore) ListByStatus(ctx context.Context, status domain.NodeStatus) ([]*domain.NodeInstance, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]*domain.NodeInstance, 0, len(all))
	for _, rec := range all {
		if rec.Status == status {
			result = append(result, rec)
		}
	}
	return result, nil
}

var _ usecase.NodeStore = (*FileStore)(nil)
