package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/tracyhatemice/mailimport/internal/message"
)

// Writer prints records in a human-readable form. Useful for dry runs.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdout creates a Writer on os.Stdout.
func NewStdout() *Writer {
	return &Writer{w: os.Stdout}
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (p *Writer) Add(_ context.Context, importer, sourceType string, rec *message.Record) error {
	var b strings.Builder

	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "Importer: %s (%s)\n", importer, sourceType)
	fmt.Fprintf(&b, "ID: %s\n", rec.ID)
	fmt.Fprintf(&b, "Header: %s\n", rec.Header)
	fmt.Fprintf(&b, "Copyright: %s\n", rec.Copyright)
	fmt.Fprintf(&b, "Directories: %s\n", strings.Join(rec.Directories, ", "))
	b.WriteString("Content:\n")
	b.WriteString(rec.Content + "\n")
	b.WriteString("========================================\n")

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.w, b.String()); err != nil {
		return fmt.Errorf("writing record %s: %w", rec.ID, err)
	}
	return nil
}
