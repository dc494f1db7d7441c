// Package archive keeps a local mbox copy of accepted source messages.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/emersion/go-mbox"
)

// Mbox appends raw messages to a single mbox file.
type Mbox struct {
	mu sync.Mutex
	f  *os.File
	w  *mbox.Writer
}

// OpenMbox opens path for appending, creating it and its directory if
// needed.
func OpenMbox(path string) (*Mbox, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}

	// Separate from messages written by an earlier process.
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		if _, err := f.WriteString("\n"); err != nil {
			f.Close()
			return nil, fmt.Errorf("write archive %s: %w", path, err)
		}
	}

	return &Mbox{f: f, w: mbox.NewWriter(f)}, nil
}

// Append stores one raw RFC 5322 message.
func (m *Mbox) Append(from string, date time.Time, raw []byte) error {
	if date.IsZero() {
		date = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	mw, err := m.w.CreateMessage(from, date)
	if err != nil {
		return fmt.Errorf("archive message from %s: %w", from, err)
	}
	if _, err := mw.Write(raw); err != nil {
		return fmt.Errorf("archive message from %s: %w", from, err)
	}
	return nil
}

// Close flushes the last message and closes the file.
func (m *Mbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.w.Close(); err != nil {
		m.f.Close()
		return fmt.Errorf("close archive writer: %w", err)
	}
	return m.f.Close()
}
