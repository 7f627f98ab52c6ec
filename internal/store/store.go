// Package store persists session snapshots as JSON blobs under a fixed key
// in a pluggable key-value backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"
)

// DefaultKey is the key the session snapshot lives under.
const DefaultKey = "todoAppState"

const dirName = ".todo"

// Store loads and saves snapshots through a Backend.
type Store struct {
	backend Backend
	key     string
	log     *log.Logger
}

func New(backend Backend, key string, logger *log.Logger) *Store {
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Store{backend: backend, key: key, log: logger}
}

func (s *Store) Key() string { return s.key }

// Load returns the stored snapshot, or nil when none was ever saved.
// A blob that fails validation yields an error wrapping ErrCorruptSnapshot.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	b, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load %s: %w", s.key, err)
	}
	st, err := DecodeSnapshot(b)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.key, err)
	}
	return st, nil
}

func (s *Store) Save(ctx context.Context, st *Snapshot) error {
	b, err := EncodeSnapshot(st)
	if err != nil {
		return err
	}
	if err := s.backend.Put(ctx, s.key, b); err != nil {
		return fmt.Errorf("save %s: %w", s.key, err)
	}
	return nil
}

// Quarantine moves the stored blob to a side key so the next Save does not destroy it.
// It returns the side key, or "" when there was nothing to move.
func (s *Store) Quarantine(ctx context.Context) (string, error) {
	b, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	side := s.key + ".corrupt." + strings.ToLower(ulid.Make().String())
	if err := s.backend.Put(ctx, side, b); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", s.key, err)
	}
	if err := s.backend.Delete(ctx, s.key); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", s.key, err)
	}
	s.log.Warn("quarantined corrupt snapshot", "key", s.key, "moved_to", side, "bytes", len(b))
	return side, nil
}

func (s *Store) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// DiscoverDir walks up from start looking for a .todo directory.
func DiscoverDir(start string) (string, bool) {
	dir := start
	for {
		candidate := filepath.Join(dir, dirName)
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// DefaultDir is the nearest .todo directory above the working directory, else ~/.todo.
func DefaultDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("TODO_HOME")); v != "" {
		return v, nil
	}
	cwd, err := os.Getwd()
	if err == nil {
		if found, ok := DiscoverDir(cwd); ok {
			return found, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dirName), nil
}

// ExportName returns a unique file name for an exported snapshot.
func ExportName(now time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy())
	return "todo-export-" + strings.ToLower(id.String()) + ".json"
}
