package trace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/auraforge/orchestrator/internal/domain"
)

// flakySink fails the first failures appends, then accepts everything.
type flakySink struct {
	mu       sync.Mutex
	failures int
	events   []domain.TraceEvent
}

func (s *flakySink) AppendTrace(ctx context.Context, event *domain.TraceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.events = append(s.events, *event)
	return nil
}

func (s *flakySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestEmitter_Delivers(t *testing.T) {
	sink := &flakySink{}
	e := NewEmitter(sink, discardLogger(), Options{})
	defer e.Close(context.Background())

	e.Record(domain.TraceEvent{ProjectID: "p1", Kind: domain.TraceGeneration, Status: domain.TraceOK})

	waitFor(t, func() bool { return sink.count() == 1 })

	sink.mu.Lock()
	defer sink.mu.Unlock()
	ev := sink.events[0]
	if ev.ID == "" {
		t.Error("emitter should assign an event id")
	}
	if ev.CreatedAt.IsZero() {
		t.Error("emitter should stamp the event time")
	}
}

func TestEmitter_RetriesWithBackoff(t *testing.T) {
	sink := &flakySink{failures: 3}
	e := NewEmitter(sink, discardLogger(), Options{RetryBase: time.Millisecond, RetryMax: 10 * time.Millisecond})
	defer e.Close(context.Background())

	e.Record(domain.TraceEvent{Kind: domain.TraceGeneration, Status: domain.TraceError})

	waitFor(t, func() bool { return sink.count() == 1 })
}

func TestEmitter_RecordNeverBlocks(t *testing.T) {
	// A sink that is down forever with a tiny buffer: Record must return
	// promptly regardless.
	sink := &flakySink{failures: 1 << 30}
	e := NewEmitter(sink, discardLogger(), Options{BufferSize: 1, RetryBase: time.Hour})
	defer e.Close(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			e.Record(domain.TraceEvent{Kind: domain.TraceGeneration})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a saturated buffer")
	}
}

func TestEmitter_CloseFlushes(t *testing.T) {
	sink := &flakySink{}
	e := NewEmitter(sink, discardLogger(), Options{BufferSize: 64})

	for i := 0; i < 10; i++ {
		e.Record(domain.TraceEvent{Kind: domain.TraceGeneration, Status: domain.TraceOK})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := sink.count(); got != 10 {
		t.Errorf("flushed %d events, want 10", got)
	}
}
