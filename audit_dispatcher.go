package goWarden

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// auditDispatcher hands events to a sink on a single background goroutine so
// request paths never block on sink I/O.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool
	logger     zerolog.Logger

	queue     chan AuditEvent
	stop      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// newAuditDispatcher returns nil when auditing is disabled; a nil dispatcher
// accepts and ignores every call.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink, logger zerolog.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		logger:     logger,
		queue:      make(chan AuditEvent, size),
		stop:       make(chan struct{}),
	}

	d.wg.Add(1)
	go d.loop()

	return d
}

func (d *auditDispatcher) loop() {
	defer d.wg.Done()

	ctx := context.Background()
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(ctx, event)
		case <-d.stop:
			d.drain(ctx)
			return
		}
	}
}

func (d *auditDispatcher) drain(ctx context.Context) {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(ctx, event)
		default:
			return
		}
	}
}

// Emit queues event. With dropIfFull a full queue drops the event and counts
// it; otherwise Emit waits for room, ctx cancellation or Close.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			if d.dropped.Add(1) == 1 {
				d.logger.Warn().Str("event_type", event.EventType).Msg("audit queue full, dropping events")
			}
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops accepting events, flushes the queue to the sink and waits for
// the dispatcher goroutine.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

// Dropped returns the number of events discarded because the queue was full.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
