// Package trace delivers audit events to a sink without putting the sink
// on the request path. Events are buffered and retried with backoff; a sink
// outage degrades observability but never fails a generation.
package trace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/auraforge/orchestrator/internal/domain"
)

// Sink receives audit events. The storage layer satisfies this directly.
type Sink interface {
	AppendTrace(ctx context.Context, event *domain.TraceEvent) error
}

// Options tune the emitter's buffering and retry schedule.
type Options struct {
	BufferSize int
	RetryBase  time.Duration
	RetryMax   time.Duration
}

func (o Options) withDefaults() Options {
	if o.BufferSize <= 0 {
		o.BufferSize = 256
	}
	if o.RetryBase <= 0 {
		o.RetryBase = 250 * time.Millisecond
	}
	if o.RetryMax <= 0 {
		o.RetryMax = 30 * time.Second
	}
	return o
}

// Emitter is a fire-and-forget event recorder backed by one background
// drain goroutine.
type Emitter struct {
	sink   Sink
	logger *slog.Logger
	opts   Options

	ch   chan domain.TraceEvent
	done chan struct{}
	wg   sync.WaitGroup

	closeOnce sync.Once
}

// NewEmitter creates and starts an emitter.
func NewEmitter(sink Sink, logger *slog.Logger, opts Options) *Emitter {
	e := &Emitter{
		sink:   sink,
		logger: logger,
		opts:   opts.withDefaults(),
		done:   make(chan struct{}),
	}
	e.ch = make(chan domain.TraceEvent, e.opts.BufferSize)

	e.wg.Add(1)
	go e.drain()

	return e
}

// Record enqueues an event. It assigns the id and timestamp if unset and
// never blocks: with a full buffer the event is counted out loud rather
// than queued, keeping observability off the latency path.
func (e *Emitter) Record(event domain.TraceEvent) {
	if event.ID == "" {
		event.ID = "tr_" + uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	select {
	case e.ch <- event:
	default:
		e.logger.Error("trace buffer full, event not recorded",
			slog.String("event_id", event.ID),
			slog.String("kind", string(event.Kind)),
			slog.String("project_id", event.ProjectID),
		)
	}
}

func (e *Emitter) drain() {
	defer e.wg.Done()

	for {
		select {
		case ev := <-e.ch:
			e.deliver(ev)
		case <-e.done:
			// Flush whatever is still queued.
			for {
				select {
				case ev := <-e.ch:
					e.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

// deliver writes one event, retrying with exponential backoff until it
// lands or the emitter shuts down.
func (e *Emitter) deliver(ev domain.TraceEvent) {
	backoff := e.opts.RetryBase

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := e.sink.AppendTrace(ctx, &ev)
		cancel()
		if err == nil {
			return
		}

		e.logger.Error("trace sink append failed, will retry",
			slog.String("event_id", ev.ID),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)

		select {
		case <-time.After(backoff):
		case <-e.done:
			e.logger.Error("trace event lost at shutdown",
				slog.String("event_id", ev.ID),
				slog.String("kind", string(ev.Kind)),
			)
			return
		}

		backoff *= 2
		if backoff > e.opts.RetryMax {
			backoff = e.opts.RetryMax
		}
	}
}

// Close stops the emitter after flushing queued events, honoring ctx for
// the wait.
func (e *Emitter) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		close(e.done)
	})

	finished := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
