package audit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDrainTimeout bounds how long Close waits for the sink.
const DefaultDrainTimeout = 5 * time.Second

// ErrDrainTimeout is returned by Close when the sink did not take every
// buffered event before the drain deadline. Undelivered events count as dropped.
var ErrDrainTimeout = errors.New("audit drain timed out")

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the session operation
	// that emitted them.
	DropIfFull bool
	// DrainTimeout bounds Close. Zero uses DefaultDrainTimeout.
	DrainTimeout time.Duration
}

// Dispatcher relays session audit events to a sink on its own goroutine so
// login, refresh and logout never wait on sink I/O.
type Dispatcher struct {
	sink         Sink
	dropIfFull   bool
	drainTimeout time.Duration

	events  chan Event
	stop    chan struct{}
	abandon chan struct{}
	relayed chan struct{}

	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewDispatcher starts the relay goroutine. It returns nil when cfg is
// disabled; a nil *Dispatcher accepts and discards events.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:         sink,
		dropIfFull:   cfg.DropIfFull,
		drainTimeout: cfg.DrainTimeout,
		events:       make(chan Event, cfg.BufferSize),
		stop:         make(chan struct{}),
		abandon:      make(chan struct{}),
		relayed:      make(chan struct{}),
	}
	go d.relay()
	return d
}

func (d *Dispatcher) relay() {
	defer close(d.relayed)

	for {
		// Stop wins over pending events so the drain deadline applies to them.
		select {
		case <-d.stop:
			d.drain()
			return
		default:
		}

		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case <-d.abandon:
			d.discard()
			return
		default:
		}

		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

func (d *Dispatcher) discard() {
	for {
		select {
		case <-d.events:
			d.dropped.Add(1)
		default:
			return
		}
	}
}

// Emit queues event. With DropIfFull a full buffer drops it; otherwise Emit
// blocks until there is room, ctx ends or the dispatcher closes.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// Close stops accepting events and waits up to the drain timeout for the
// buffer to reach the sink. On timeout it returns [ErrDrainTimeout] and the
// relay discards whatever is still queued once the sink returns. Later calls
// return the first result.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)

		timer := time.NewTimer(d.drainTimeout)
		defer timer.Stop()

		select {
		case <-d.relayed:
		case <-timer.C:
			close(d.abandon)
			d.closeErr = ErrDrainTimeout
		}
	})
	return d.closeErr
}

// Dropped returns how many events never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
