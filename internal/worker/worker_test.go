package worker

import (
	"context"
	"testing"
	"time"

	"github.com/aeroterra/sim/internal/config"
	"github.com/aeroterra/sim/internal/logging"
	"github.com/aeroterra/sim/internal/storage/memory"
	"github.com/aeroterra/sim/pkg/core"
)

func newTestManager(t *testing.T) (*Manager, *Queues, *memory.Backend) {
	t.Helper()
	backend := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	if err := backend.Init(); err != nil {
		t.Fatal(err)
	}
	if err := backend.StartSession(&core.Session{Name: "worker test", StartTime: time.Now()}); err != nil {
		t.Fatal(err)
	}

	queues := NewQueues()
	m := NewManager(Dependencies{
		Queues:     queues,
		LogManager: logging.NewSlogManager(),
	}, backend, 10*time.Millisecond)
	return m, queues, backend
}

func TestDrainOnceEmptiesAllQueues(t *testing.T) {
	m, queues, backend := newTestManager(t)

	queues.Flight.Push(core.FlightSample{Tick: 1}, core.FlightSample{Tick: 2})
	queues.Ground.Push(core.GroundSample{Tick: 3})
	queues.Modes.Push(core.ModeChange{From: core.ModeFlight, To: core.ModeGround})
	queues.Perf.Push(core.PerfSample{Tick: 4})

	m.DrainOnce(context.Background())

	if queues.Flight.Len()+queues.Ground.Len()+queues.Modes.Len()+queues.Perf.Len() != 0 {
		t.Error("queues not emptied")
	}

	if err := backend.EndSession(); err != nil {
		t.Fatal(err)
	}
	// The samples reached the backend in order.
	if backend.ExportedFilePath() == "" {
		t.Fatal("backend exported nothing")
	}
}

func TestRunDrainsOnShutdown(t *testing.T) {
	m, queues, _ := newTestManager(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx)
	}()

	queues.Flight.Push(core.FlightSample{Tick: 1})
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if queues.Flight.Len() != 0 {
		t.Error("final drain skipped queued samples")
	}
}

func TestGetLastDBWriteDurationWithoutProvider(t *testing.T) {
	m, _, _ := newTestManager(t)

	// The memory backend does not track write durations.
	if d := m.GetLastDBWriteDuration(); d != 0 {
		t.Errorf("duration = %v, want 0", d)
	}
}
