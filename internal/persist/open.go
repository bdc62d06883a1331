package persist

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/taskdeck/schema"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Store is satisfied by both backends and matches core.StateStore.
type Store interface {
	SetInitialQuery(ctx context.Context, visitor schema.VisitorID, query string) error
	InitialQuery(ctx context.Context, visitor schema.VisitorID) (string, error)
	SetSelectedRepository(ctx context.Context, visitor schema.VisitorID, fullName string) error
	SelectedRepository(ctx context.Context, visitor schema.VisitorID) (string, error)
	Clear(ctx context.Context, visitor schema.VisitorID) error
	Close() error
}

// Open selects a backend. path defaults to a location under stateDir.
func Open(backend, path, stateDir string, logger pslog.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendSQLite:
		if strings.TrimSpace(path) == "" {
			path = filepath.Join(stateDir, "taskdeck.db")
		}
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Info("state store opened", "backend", BackendSQLite, "path", path)
		}
		return store, nil
	case BackendFile:
		if strings.TrimSpace(path) == "" {
			path = filepath.Join(stateDir, "visitors")
		}
		store, err := NewFileStoreWithLogger(path, logger)
		if err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Info("state store opened", "backend", BackendFile, "path", path)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported state.backend %q", backend)
	}
}
