package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// ErrNotFound is returned by Backend.Get for a key that was never written or was deleted.
var ErrNotFound = errors.New("key not found")

// Backend is a string-keyed blob store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type BackendKind string

const (
	BackendFile   BackendKind = "file"
	BackendSQLite BackendKind = "sqlite"
	BackendBadger BackendKind = "badger"
	BackendMemory BackendKind = "memory"
)

// BackendKinds lists every supported backend.
var BackendKinds = []BackendKind{BackendFile, BackendSQLite, BackendBadger, BackendMemory}

func ParseBackendKind(s string) (BackendKind, error) {
	k := BackendKind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return BackendFile, nil
	}
	for _, x := range BackendKinds {
		if x == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid backend: %q (expected file|sqlite|badger|memory)", s)
}

// OpenBackend opens the backend of the given kind rooted at dir. The memory backend ignores dir.
func OpenBackend(ctx context.Context, kind BackendKind, dir string, logger *log.Logger) (Backend, error) {
	switch kind {
	case BackendMemory:
		return NewMemoryBackend(), nil
	case BackendFile, "":
		return NewFileBackend(dir)
	case BackendSQLite:
		return OpenSQLiteBackend(ctx, dir)
	case BackendBadger:
		return OpenBadgerBackend(dir, logger)
	default:
		return nil, fmt.Errorf("invalid backend: %q", kind)
	}
}

func validKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("empty key")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}
