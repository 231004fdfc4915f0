package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/saviobatista/sbs-deconflict/internal/config"
	"github.com/saviobatista/sbs-deconflict/internal/db"
	"github.com/saviobatista/sbs-deconflict/internal/redis"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

// Store is the persisted simulation state. Reads and writes always cover
// the whole collection.
type Store interface {
	LoadAll(ctx context.Context) (types.State, error)
	SaveAll(ctx context.Context, state types.State) error
}

// ClosableStore is a Store holding a connection or file handle
type ClosableStore interface {
	Store
	Close() error
}

// FileStore keeps the state as a JSON array in a single file
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// LoadAll reads the whole state file
func (s *FileStore) LoadAll(ctx context.Context) (types.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st types.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	return st, nil
}

// SaveAll rewrites the whole state file. The write goes to a temporary
// file first so readers never observe a partial collection.
func (s *FileStore) SaveAll(ctx context.Context, st types.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st == nil {
		st = types.State{}
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Close is a no-op for the file backend
func (s *FileStore) Close() error {
	return nil
}

// FromFlightPlans builds a fresh state from the flight plans, copying
// each plan's type, altitude and speed with no recorded changes
func FromFlightPlans(plans []types.FlightPlan) types.State {
	st := make(types.State, 0, len(plans))
	for _, p := range plans {
		st = append(st, types.StateEntry{
			ACID:      p.ACID,
			PlaneType: p.PlaneType,
			Altitude:  p.Altitude,
			Speed:     p.Speed,
			Changes:   0,
		})
	}
	return st
}

// Reset overwrites the store with a fresh state built from the plans
func Reset(ctx context.Context, store Store, plans []types.FlightPlan) (types.State, error) {
	st := FromFlightPlans(plans)
	if err := store.SaveAll(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to reset state: %w", err)
	}
	return st, nil
}

// Open connects to the state backend selected in the configuration
func Open(ctx context.Context, cfg *config.Config) (ClosableStore, error) {
	switch cfg.StateBackend {
	case config.BackendFile, "":
		return NewFileStore(cfg.StateFile), nil

	case config.BackendRedis:
		client, err := redis.New(cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis client: %w", err)
		}
		return client, nil

	case config.BackendPostgres:
		client, err := db.New(cfg.DBConnStr)
		if err != nil {
			return nil, fmt.Errorf("failed to create database client: %w", err)
		}
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}
