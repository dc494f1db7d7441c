package host

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultInterval = 60 * time.Second

type scheduled struct {
	imp      Importer
	interval time.Duration
}

// Scheduler runs each importer's cycles on its own interval. Every
// instance gets one goroutine, so its cycles never overlap.
type Scheduler struct {
	logger  *slog.Logger
	entries []scheduled
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add schedules imp every interval. A non-positive interval means 60s.
func (s *Scheduler) Add(imp Importer, interval time.Duration) {
	if interval <= 0 {
		interval = defaultInterval
	}
	s.entries = append(s.entries, scheduled{imp: imp, interval: interval})
}

// Len returns the number of scheduled importers.
func (s *Scheduler) Len() int {
	return len(s.entries)
}

// Run polls every importer until ctx is cancelled, then waits for running
// cycles to finish.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, e := range s.entries {
		e := e
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, e)
		}()
	}
	wg.Wait()
}

// RunOnce runs a single cycle of every importer, one after another.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, e := range s.entries {
		e.imp.TryRecover()
		e.imp.RunCycle(ctx)
	}
}

func (s *Scheduler) loop(ctx context.Context, e scheduled) {
	name := e.imp.Name()
	s.logger.Info("starting importer", "importer", name, "interval", e.interval)

	e.imp.TryRecover()

	// Run immediately on start, then on interval.
	e.imp.RunCycle(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.imp.ResetState()
			s.logger.Info("importer stopped", "importer", name)
			return
		case <-ticker.C:
			e.imp.RunCycle(ctx)
		}
	}
}
