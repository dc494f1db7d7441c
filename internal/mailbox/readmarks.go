package mailbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ReadMarks is the local read-flag ledger for POP3, which keeps no
// per-message flags. Each line holds a UID and the Unix time it was marked,
// separated by a tab.
type ReadMarks struct {
	mu     sync.Mutex
	path   string
	marked map[string]time.Time
	now    func() time.Time
}

// OpenReadMarks loads the ledger at path. A missing file is an empty ledger;
// its directory is created on open.
func OpenReadMarks(path string) (*ReadMarks, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create read marks dir: %w", err)
	}

	m := &ReadMarks{
		path:   path,
		marked: make(map[string]time.Time),
		now:    time.Now,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read marks %s: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		uid, stamp, _ := strings.Cut(strings.TrimSpace(line), "\t")
		if uid == "" {
			continue
		}
		var at time.Time
		if secs, err := strconv.ParseInt(stamp, 10, 64); err == nil {
			at = time.Unix(secs, 0)
		}
		m.marked[uid] = at
	}
	return m, nil
}

// Mark records uid as read. A UID already in the ledger keeps its
// original time.
func (m *ReadMarks) Mark(uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.marked[uid]; ok {
		return nil
	}

	at := m.now()
	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open read marks for append: %w", err)
	}
	_, werr := fmt.Fprintf(f, "%s\t%d\n", uid, at.Unix())
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("write read mark %s: %w", uid, werr)
	}

	m.marked[uid] = at
	return nil
}

// MarkedAt returns when uid was marked read. The time is zero for entries
// written without one.
func (m *ReadMarks) MarkedAt(uid string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.marked[uid]
	return at, ok
}

// Count returns the number of marked messages.
func (m *ReadMarks) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.marked)
}
