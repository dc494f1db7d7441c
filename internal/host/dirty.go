package host

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DirtyEntry records one disabled importer instance.
type DirtyEntry struct {
	Kind  string
	Name  string
	Print string
	At    time.Time
}

// DirtyBoard collects disabled-state signals.
type DirtyBoard struct {
	mu      sync.Mutex
	logger  *slog.Logger
	entries map[string]DirtyEntry
}

// NewDirtyBoard creates an empty board.
func NewDirtyBoard(logger *slog.Logger) *DirtyBoard {
	return &DirtyBoard{logger: logger, entries: make(map[string]DirtyEntry)}
}

func (b *DirtyBoard) MarkDirty(kind, name, print string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[name] = DirtyEntry{Kind: kind, Name: name, Print: print, At: time.Now()}
	b.logger.Error("importer entered dirty state", "kind", kind, "importer", name, "print", print)
}

// IsDirty reports whether the named instance was marked dirty.
func (b *DirtyBoard) IsDirty(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.entries[name]
	return ok
}

// Entries returns all dirty instances ordered by name.
func (b *DirtyBoard) Entries() []DirtyEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]DirtyEntry, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
