// Package store keeps validated SAF-T entities per owner between runs.
//
// Entities are addressed by (owner, kind, key). Saving an entity whose key
// already exists replaces it as a whole; List returns entities in the order
// their keys were first saved.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LosLebos/SAFT-T-Portugal/internal/log"
	"github.com/LosLebos/SAFT-T-Portugal/internal/saft"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

var (
	// ErrOwnerRequired is returned when an operation has no owner.
	ErrOwnerRequired = errors.New("owner is required")
	// ErrUnknownBackend is returned by Open for unsupported backends.
	ErrUnknownBackend = errors.New("unknown store backend")
)

// Store persists entities per owner.
type Store interface {
	// Save validates and upserts entities.
	Save(ctx context.Context, owner string, entities ...saft.Entity) error
	// List returns the owner's entities of one kind.
	List(ctx context.Context, owner string, kind saft.Kind) ([]saft.Entity, error)
	Close() error
}

// Open creates the store for backend. path is used by the SQLite backend.
func Open(backend, path string, logger *log.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return NewSQLiteStore(path, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// checkSave validates arguments common to every backend.
func checkSave(owner string, entities []saft.Entity) error {
	if owner == "" {
		return ErrOwnerRequired
	}
	for i, e := range entities {
		if e == nil {
			return fmt.Errorf("entity %d is nil", i)
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("refusing to save invalid %s %q: %w", e.Kind(), e.Key(), err)
		}
	}
	return nil
}
