package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls how issuance and verification events are buffered on their
// way to the sink. Verify sits on the login click's critical path, so the
// default posture is DropIfFull: losing an audit event under backpressure is
// preferable to stalling a login.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher decouples the engine's hot paths from a possibly slow sink. Emit
// enqueues and returns; a single worker forwards events in order; Close
// drains whatever is still buffered before returning. Drops are counted both
// in total and per event type, so operators can tell which signal was lost —
// a burst of dropped denial events reads very differently from dropped sweep
// summaries.
type Dispatcher struct {
	cfg  Config
	sink Sink

	ch   chan Event
	done chan struct{}
	wg   sync.WaitGroup

	dropped       atomic.Uint64
	droppedMu     sync.Mutex
	droppedByType map[string]uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:           cfg,
		sink:          sink,
		ch:            make(chan Event, cfg.BufferSize),
		done:          make(chan struct{}),
		droppedByType: make(map[string]uint64),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			d.drain()
			return
		}
	}
}

// drain flushes buffered events so denials emitted just before shutdown still
// reach the sink.
func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit enqueues an event for asynchronous delivery. A zero Timestamp is
// stamped here so every record carries the dispatch time even when the
// producer skipped it. With DropIfFull the call never blocks; otherwise it
// waits until the buffer accepts the event, the ctx expires, or the
// dispatcher shuts down.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.recordDrop(event.EventType)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
	case <-d.done:
	}
}

func (d *Dispatcher) recordDrop(eventType string) {
	d.dropped.Add(1)

	d.droppedMu.Lock()
	d.droppedByType[eventType]++
	d.droppedMu.Unlock()
}

func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the total number of events lost to backpressure.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType returns a copy of the per-event-type drop counters. The map
// only holds types that have actually been dropped.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	if d == nil {
		return nil
	}

	d.droppedMu.Lock()
	defer d.droppedMu.Unlock()

	if len(d.droppedByType) == 0 {
		return nil
	}
	out := make(map[string]uint64, len(d.droppedByType))
	for k, v := range d.droppedByType {
		out[k] = v
	}
	return out
}
