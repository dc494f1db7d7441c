// Package sink delivers normalized records to the message bus.
package sink

import (
	"context"

	"github.com/tracyhatemice/mailimport/internal/message"
)

// Sink receives records produced by importers. Add must not retain rec
// beyond its own storage of it.
type Sink interface {
	Add(ctx context.Context, importer, sourceType string, rec *message.Record) error
}
