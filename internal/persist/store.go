// Package persist stores the per-visitor state that the home route hands to
// the app: the initial task query and the selected repository.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/taskdeck/schema"
)

// VisitorSnapshot is the persisted state of one visitor.
type VisitorSnapshot struct {
	InitialQuery       string    `json:"initial_query,omitempty"`
	SelectedRepository string    `json:"selected_repository,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FileStore persists one JSON document per visitor.
type FileStore struct {
	mu  sync.Mutex
	dir string
	log pslog.Logger
}

// NewFileStore constructs a persistent store at the given directory.
func NewFileStore(dir string) (*FileStore, error) {
	return NewFileStoreWithLogger(dir, nil)
}

// NewFileStoreWithLogger constructs a persistent store with logging.
func NewFileStoreWithLogger(dir string, logger pslog.Logger) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	return &FileStore{dir: dir, log: logger}, nil
}

// SetInitialQuery implements core.StateStore.
func (s *FileStore) SetInitialQuery(_ context.Context, visitor schema.VisitorID, query string) error {
	return s.update(visitor, func(snapshot *VisitorSnapshot) {
		snapshot.InitialQuery = query
	})
}

// InitialQuery implements core.StateStore.
func (s *FileStore) InitialQuery(_ context.Context, visitor schema.VisitorID) (string, error) {
	snapshot, _, err := s.Load(visitor)
	return snapshot.InitialQuery, err
}

// SetSelectedRepository implements core.StateStore.
func (s *FileStore) SetSelectedRepository(_ context.Context, visitor schema.VisitorID, fullName string) error {
	return s.update(visitor, func(snapshot *VisitorSnapshot) {
		snapshot.SelectedRepository = fullName
	})
}

// SelectedRepository implements core.StateStore.
func (s *FileStore) SelectedRepository(_ context.Context, visitor schema.VisitorID) (string, error) {
	snapshot, _, err := s.Load(visitor)
	return snapshot.SelectedRepository, err
}

// Clear implements core.StateStore.
func (s *FileStore) Clear(_ context.Context, visitor schema.VisitorID) error {
	path, err := s.pathForVisitor(visitor)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Ping verifies the state directory is still a directory.
func (s *FileStore) Ping(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("state path %s is not a directory", s.dir)
	}
	return nil
}

// Close implements core.StateStore.
func (s *FileStore) Close() error {
	return nil
}

// Load reads a visitor snapshot from disk.
func (s *FileStore) Load(visitor schema.VisitorID) (VisitorSnapshot, bool, error) {
	path, err := s.pathForVisitor(visitor)
	if err != nil {
		return VisitorSnapshot{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(visitor, path)
}

func (s *FileStore) loadLocked(visitor schema.VisitorID, path string) (VisitorSnapshot, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.debug("state load miss", "visitor", visitor)
			return VisitorSnapshot{}, false, nil
		}
		s.warn("state load failed", "visitor", visitor, "err", err)
		return VisitorSnapshot{}, false, err
	}
	var snapshot VisitorSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.warn("state load failed", "visitor", visitor, "err", err)
		return VisitorSnapshot{}, false, err
	}
	return snapshot, true, nil
}

func (s *FileStore) update(visitor schema.VisitorID, mutate func(*VisitorSnapshot)) error {
	path, err := s.pathForVisitor(visitor)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, _, err := s.loadLocked(visitor, path)
	if err != nil {
		return err
	}
	mutate(&snapshot)
	snapshot.UpdatedAt = time.Now().UTC()
	if err := writeJSONAtomic(path, snapshot); err != nil {
		s.warn("state save failed", "visitor", visitor, "err", err)
		return err
	}
	if s.log != nil {
		s.log.Trace("state save ok", "visitor", visitor)
	}
	return nil
}

func (s *FileStore) pathForVisitor(visitor schema.VisitorID) (string, error) {
	if err := schema.ValidateVisitorID(visitor); err != nil {
		return "", fmt.Errorf("%w: %q", err, visitor)
	}
	return filepath.Join(s.dir, string(visitor)+".json"), nil
}

func (s *FileStore) debug(msg string, kv ...any) {
	if s.log != nil {
		s.log.Debug(msg, kv...)
	}
}

func (s *FileStore) warn(msg string, kv ...any) {
	if s.log != nil {
		s.log.Warn(msg, kv...)
	}
}

func writeJSONAtomic(path string, payload any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "state-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
