package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/aeroterra/sim/internal/config"
	"github.com/aeroterra/sim/pkg/core"
)

func newTestBackend(t *testing.T, compress bool) *Backend {
	t.Helper()
	b := New(config.MemoryConfig{OutputDir: t.TempDir(), CompressOutput: compress})
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestSessionLifecycle(t *testing.T) {
	b := newTestBackend(t, false)

	s := &core.Session{Name: "test run", StartTime: time.Now()}
	if err := b.StartSession(s); err != nil {
		t.Fatal(err)
	}
	if s.ID == 0 {
		t.Error("StartSession did not assign an ID")
	}

	if err := b.RecordFlightSample(&core.FlightSample{SessionID: s.ID, Tick: 10, Speed: 55}); err != nil {
		t.Fatal(err)
	}
	if err := b.RecordGroundSample(&core.GroundSample{SessionID: s.ID, Tick: 20, Speed: 12}); err != nil {
		t.Fatal(err)
	}
	if err := b.RecordModeChange(&core.ModeChange{SessionID: s.ID, From: core.ModeFlight, To: core.ModeGround}); err != nil {
		t.Fatal(err)
	}
	if err := b.RecordPerfSample(&core.PerfSample{SessionID: s.ID, Tick: 20}); err != nil {
		t.Fatal(err)
	}

	if err := b.EndSession(); err != nil {
		t.Fatal(err)
	}

	path := b.ExportedFilePath()
	if path == "" {
		t.Fatal("no exported file path")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rec Recording
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.FlightSamples) != 1 || rec.FlightSamples[0].Speed != 55 {
		t.Errorf("flight samples = %+v", rec.FlightSamples)
	}
	if len(rec.GroundSamples) != 1 || len(rec.ModeChanges) != 1 || len(rec.PerfSamples) != 1 {
		t.Errorf("recording incomplete: %+v", rec)
	}
	if rec.Session.EndTime.IsZero() {
		t.Error("session end time not stamped")
	}
}

func TestDoubleStartRejected(t *testing.T) {
	b := newTestBackend(t, false)

	if err := b.StartSession(&core.Session{Name: "one", StartTime: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := b.StartSession(&core.Session{Name: "two", StartTime: time.Now()}); err == nil {
		t.Error("second StartSession accepted")
	}
}

func TestEndWithoutStartRejected(t *testing.T) {
	b := newTestBackend(t, false)
	if err := b.EndSession(); err == nil {
		t.Error("EndSession without a session accepted")
	}
}

func TestCompressedExport(t *testing.T) {
	b := newTestBackend(t, true)

	s := &core.Session{Name: "gz run", StartTime: time.Now()}
	if err := b.StartSession(s); err != nil {
		t.Fatal(err)
	}
	if err := b.RecordFlightSample(&core.FlightSample{Tick: 1}); err != nil {
		t.Fatal(err)
	}
	if err := b.EndSession(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(b.ExportedFilePath())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer gz.Close()

	var rec Recording
	if err := json.NewDecoder(gz).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.FlightSamples) != 1 {
		t.Errorf("decoded %d flight samples, want 1", len(rec.FlightSamples))
	}
}

func TestSessionIDsIncrement(t *testing.T) {
	b := newTestBackend(t, false)

	one := &core.Session{Name: "a", StartTime: time.Now()}
	if err := b.StartSession(one); err != nil {
		t.Fatal(err)
	}
	if err := b.EndSession(); err != nil {
		t.Fatal(err)
	}

	two := &core.Session{Name: "b", StartTime: time.Now()}
	if err := b.StartSession(two); err != nil {
		t.Fatal(err)
	}
	if two.ID != one.ID+1 {
		t.Errorf("session IDs = %d, %d", one.ID, two.ID)
	}
}
