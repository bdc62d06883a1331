package core

import (
	"context"
	"sync"
	"time"

	"pkt.systems/taskdeck/internal/logx"
	"pkt.systems/taskdeck/schema"
)

// DefaultImportTTL bounds how long an imported archive waits for the app to pick it up.
const DefaultImportTTL = 30 * time.Minute

type importEntry struct {
	file      schema.ImportedFile
	expiresAt time.Time
}

// ImportRegistry holds at most one imported archive per visitor in memory.
// Nothing is written to disk.
type ImportRegistry struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[schema.VisitorID]importEntry
	now   func() time.Time
}

// NewImportRegistry constructs a registry whose entries expire after ttl.
func NewImportRegistry(ttl time.Duration) *ImportRegistry {
	if ttl <= 0 {
		ttl = DefaultImportTTL
	}
	return &ImportRegistry{
		ttl:   ttl,
		items: make(map[schema.VisitorID]importEntry),
		now:   time.Now,
	}
}

// Put replaces the visitor's archive.
func (r *ImportRegistry) Put(visitor schema.VisitorID, file schema.ImportedFile) {
	now := r.now()
	r.mu.Lock()
	r.sweepLocked(now)
	_, replaced := r.items[visitor]
	r.items[visitor] = importEntry{file: file, expiresAt: now.Add(r.ttl)}
	count := len(r.items)
	r.mu.Unlock()
	logx.WithVisitor(context.Background(), visitor).Debug("import stored", "name", file.Name, "bytes", file.Size, "replaced", replaced, "entries", count)
}

// Peek returns the visitor's archive without consuming it.
func (r *ImportRegistry) Peek(visitor schema.VisitorID) (schema.ImportedFile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.getLocked(visitor)
	if !ok {
		return schema.ImportedFile{}, false
	}
	return entry.file, true
}

// Take returns and removes the visitor's archive.
func (r *ImportRegistry) Take(visitor schema.VisitorID) (schema.ImportedFile, bool) {
	r.mu.Lock()
	entry, ok := r.getLocked(visitor)
	if ok {
		delete(r.items, visitor)
	}
	r.mu.Unlock()
	if !ok {
		return schema.ImportedFile{}, false
	}
	logx.WithVisitor(context.Background(), visitor).Debug("import taken", "name", entry.file.Name)
	return entry.file, true
}

// Delete drops the visitor's archive.
func (r *ImportRegistry) Delete(visitor schema.VisitorID) {
	r.mu.Lock()
	delete(r.items, visitor)
	r.mu.Unlock()
}

// Len reports the number of live entries.
func (r *ImportRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(r.now())
	return len(r.items)
}

// Sweep drops expired entries and reports how many went.
func (r *ImportRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.items)
	r.sweepLocked(r.now())
	return before - len(r.items)
}

func (r *ImportRegistry) getLocked(visitor schema.VisitorID) (importEntry, bool) {
	entry, ok := r.items[visitor]
	if !ok {
		return importEntry{}, false
	}
	if r.now().After(entry.expiresAt) {
		delete(r.items, visitor)
		logx.WithVisitor(context.Background(), visitor).Debug("import expired", "name", entry.file.Name)
		return importEntry{}, false
	}
	return entry, true
}

func (r *ImportRegistry) sweepLocked(now time.Time) {
	for visitor, entry := range r.items {
		if now.After(entry.expiresAt) {
			delete(r.items, visitor)
		}
	}
}
