package host

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingImporter struct {
	name      string
	cycles    atomic.Int32
	recovers  atomic.Int32
	resets    atomic.Int32
	running   atomic.Bool
	overlap   atomic.Bool
	cycleTime time.Duration
}

func (c *countingImporter) Name() string { return c.name }

func (c *countingImporter) RunCycle(context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		c.overlap.Store(true)
	}
	time.Sleep(c.cycleTime)
	c.cycles.Add(1)
	c.running.Store(false)
}

func (c *countingImporter) ResetState() { c.resets.Add(1) }
func (c *countingImporter) TryRecover() { c.recovers.Add(1) }

func TestRegistry_RegisterAndBuild(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	desc := Descriptor{Kind: "MAIL", ConfigKey: "IMPORT_MAIL", Version: 1}

	var gotInst Instance
	err := r.Register(desc, func(inst Instance, deps Deps) (Importer, error) {
		gotInst = inst
		return &countingImporter{name: inst.Name}, nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	imp, err := r.Build(Instance{Name: "newsroom", Type: "IMPORT_MAIL"}, Deps{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if imp.Name() != "newsroom" || gotInst.Name != "newsroom" {
		t.Errorf("Build: got importer %q, instance %q", imp.Name(), gotInst.Name)
	}

	if got := r.Descriptors(); len(got) != 1 || got[0] != desc {
		t.Errorf("Descriptors: got %+v", got)
	}
}

func TestRegistry_Errors(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	desc := Descriptor{Kind: "MAIL", ConfigKey: "IMPORT_MAIL", Version: 1}
	factoryErr := errors.New("bad config")
	factory := func(Instance, Deps) (Importer, error) { return nil, factoryErr }

	if err := r.Register(desc, factory); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(desc, factory); err == nil {
		t.Error("duplicate Register should fail")
	}
	if err := r.Register(Descriptor{Kind: "X"}, factory); err == nil {
		t.Error("Register with empty config key should fail")
	}
	if _, err := r.Build(Instance{Name: "x", Type: "IMPORT_RSS"}, Deps{}); err == nil {
		t.Error("Build with unknown type should fail")
	}
	if _, err := r.Build(Instance{Name: "x", Type: "IMPORT_MAIL"}, Deps{}); !errors.Is(err, factoryErr) {
		t.Errorf("Build: got %v, want wrapped factory error", err)
	}
}

func TestDirtyBoard(t *testing.T) {
	t.Parallel()

	b := NewDirtyBoard(discardLogger())
	if b.IsDirty("newsroom") {
		t.Fatal("new board should be clean")
	}

	b.MarkDirty("MAIL", "newsroom", "Newsroom mail")

	if !b.IsDirty("newsroom") {
		t.Error("newsroom should be dirty")
	}
	entries := b.Entries()
	if len(entries) != 1 || entries[0].Kind != "MAIL" || entries[0].Print != "Newsroom mail" {
		t.Errorf("Entries: got %+v", entries)
	}
}

func TestScheduler_RunOnce(t *testing.T) {
	t.Parallel()

	a := &countingImporter{name: "a"}
	b := &countingImporter{name: "b"}

	s := NewScheduler(discardLogger())
	s.Add(a, time.Minute)
	s.Add(b, 0)
	s.RunOnce(context.Background())

	if a.cycles.Load() != 1 || b.cycles.Load() != 1 {
		t.Errorf("cycles: got a=%d b=%d, want 1 each", a.cycles.Load(), b.cycles.Load())
	}
	if a.recovers.Load() != 1 {
		t.Errorf("TryRecover calls: got %d, want 1", a.recovers.Load())
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	imp := &countingImporter{name: "newsroom", cycleTime: 5 * time.Millisecond}
	s := NewScheduler(discardLogger())
	s.Add(imp, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	wg.Wait()

	if imp.cycles.Load() < 2 {
		t.Errorf("cycles: got %d, want at least 2", imp.cycles.Load())
	}
	if imp.overlap.Load() {
		t.Error("cycles of one importer overlapped")
	}
	if imp.resets.Load() != 1 {
		t.Errorf("ResetState calls: got %d, want 1", imp.resets.Load())
	}
}
