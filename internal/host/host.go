// Package host is the small import framework importers plug into: it
// registers importer kinds, builds instances from configuration, tracks
// which instances are disabled and schedules their import cycles.
package host

import (
	"context"
	"log/slog"

	"github.com/tracyhatemice/mailimport/internal/sink"
)

// Importer is implemented by every importer kind. The host holds the only
// reference and never runs two cycles of one instance at the same time.
type Importer interface {
	Name() string

	// RunCycle performs one complete import. Failures are logged by the
	// importer and never returned to the host.
	RunCycle(ctx context.Context)

	// ResetState drops any per-instance state kept between cycles.
	ResetState()

	// TryRecover is called after a restart to resume interrupted work.
	TryRecover()
}

// Descriptor identifies an importer kind.
type Descriptor struct {
	Kind      string // source type tag, e.g. "MAIL"
	ConfigKey string // value of the instance's type field, e.g. "IMPORT_MAIL"
	Version   int
}

// Instance is the configuration of one importer instance.
type Instance struct {
	Name       string
	Print      string // display name
	Type       string
	Properties map[string]string
}

// DirtyNotifier receives the disabled-state signal from importers that
// cannot work as configured.
type DirtyNotifier interface {
	MarkDirty(kind, name, print string)
}

// Secrets resolves credentials by key.
type Secrets interface {
	Get(key string) (string, error)
}

// Deps are the host capabilities handed to an importer at construction.
type Deps struct {
	Logger    *slog.Logger
	Sink      sink.Sink
	Dirty     DirtyNotifier
	Secrets   Secrets // may be nil
	ImportDir string
	DataDir   string
}

// Factory builds an importer instance.
type Factory func(inst Instance, deps Deps) (Importer, error)
