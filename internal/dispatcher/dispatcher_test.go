package dispatcher

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// testLogger captures log output for assertions.
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) log(level, msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, level+": "+msg)
}

func (l *testLogger) Debug(msg string, kv ...any) { l.log("DEBUG", msg, kv...) }
func (l *testLogger) Info(msg string, kv ...any)  { l.log("INFO", msg, kv...) }
func (l *testLogger) Error(msg string, kv ...any) { l.log("ERROR", msg, kv...) }

func (l *testLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestDispatchSyncHandler(t *testing.T) {
	d, err := New(&testLogger{})
	if err != nil {
		t.Fatal(err)
	}

	var got Event
	d.Register("test.topic", func(e Event) (any, error) {
		got = e
		return "done", nil
	})

	result, err := d.Dispatch(Event{Topic: "test.topic", Payload: 42})
	if err != nil {
		t.Fatal(err)
	}
	if result != "done" {
		t.Errorf("result = %v, want done", result)
	}
	if got.Payload != 42 {
		t.Errorf("handler saw payload %v, want 42", got.Payload)
	}
}

func TestDispatchUnknownTopic(t *testing.T) {
	d, err := New(&testLogger{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = d.Dispatch(Event{Topic: "nope"})
	if err == nil || !strings.Contains(err.Error(), "unknown topic") {
		t.Errorf("err = %v, want unknown topic", err)
	}
}

func TestBufferedHandlerProcesses(t *testing.T) {
	d, err := New(&testLogger{})
	if err != nil {
		t.Fatal(err)
	}

	processed := make(chan Event, 1)
	d.Register("buffered", func(e Event) (any, error) {
		processed <- e
		return nil, nil
	}, Buffered(4))

	result, err := d.Dispatch(Event{Topic: "buffered", Payload: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if result != "queued" {
		t.Errorf("result = %v, want queued", result)
	}

	select {
	case e := <-processed:
		if e.Payload != "x" {
			t.Errorf("payload = %v", e.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("buffered handler never ran")
	}
}

func TestBufferedHandlerDropsWhenFull(t *testing.T) {
	d, err := New(&testLogger{})
	if err != nil {
		t.Fatal(err)
	}

	block := make(chan struct{})
	d.Register("full", func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(1))
	defer close(block)

	// First event occupies the worker, second fills the buffer. Give the
	// worker a moment to take the first off the channel.
	if _, err := d.Dispatch(Event{Topic: "full"}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := d.Dispatch(Event{Topic: "full"}); err != nil {
		t.Fatal(err)
	}

	_, err = d.Dispatch(Event{Topic: "full"})
	if err == nil || !strings.Contains(err.Error(), "queue full") {
		t.Errorf("err = %v, want queue full", err)
	}
}

func TestBlockingHandlerNeverDrops(t *testing.T) {
	d, err := New(&testLogger{})
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	count := 0
	d.Register("blocking", func(e Event) (any, error) {
		mu.Lock()
		count++
		mu.Unlock()
		return nil, nil
	}, Buffered(1), Blocking())

	for i := 0; i < 10; i++ {
		if _, err := d.Dispatch(Event{Topic: "blocking"}); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := count
		mu.Unlock()
		if n == 10 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("processed %d of 10 events", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLoggedHandler(t *testing.T) {
	logger := &testLogger{}
	d, err := New(logger)
	if err != nil {
		t.Fatal(err)
	}

	d.Register("logged", func(e Event) (any, error) {
		return nil, errors.New("boom")
	}, Logged())

	d.Dispatch(Event{Topic: "logged"})

	if !logger.contains("DEBUG: handling event") {
		t.Error("missing start log")
	}
	if !logger.contains("ERROR: event failed") {
		t.Error("missing failure log")
	}
}

func TestHasHandler(t *testing.T) {
	d, err := New(&testLogger{})
	if err != nil {
		t.Fatal(err)
	}

	d.Register(TopicModeChanged, func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler(TopicModeChanged) {
		t.Error("registered topic not found")
	}
	if d.HasHandler(TopicFailsafe) {
		t.Error("unregistered topic found")
	}
}

func TestPublishDropsUnregistered(t *testing.T) {
	d, err := New(&testLogger{})
	if err != nil {
		t.Fatal(err)
	}

	// Must not panic or error: telemetry consumers are optional.
	d.Publish(TopicFlightTelemetry, 1)

	got := false
	d.Register(TopicFlightTelemetry, func(e Event) (any, error) {
		got = true
		if e.Timestamp.IsZero() {
			t.Error("Publish did not stamp the event time")
		}
		return nil, nil
	})
	d.Publish(TopicFlightTelemetry, 2)
	if !got {
		t.Error("registered handler not invoked by Publish")
	}
}
