package monitor

import (
	"errors"
	"sync"

	"go.uber.org/atomic"

	"github.com/jhwbarlow/sockwho/internal/wire"
)

// DefaultChannelSize is the capacity of the dispatcher channel.
const DefaultChannelSize = 1024

var (
	ErrDispatcherFull   = errors.New("dispatcher channel full")
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

// Dispatcher is the bounded channel shared by every reader, consumed by the
// single event processor. Sending never blocks: when the channel is full or
// the dispatcher is closed the event is dropped.
type Dispatcher struct {
	events chan wire.Event

	done chan struct{}
	once sync.Once

	sent    atomic.Uint64
	dropped atomic.Uint64
}

func NewDispatcher(size int) *Dispatcher {
	return &Dispatcher{
		events: make(chan wire.Event, size),
		done:   make(chan struct{}),
	}
}

// Send hands event to the processor, or drops it.
func (d *Dispatcher) Send(event wire.Event) error {
	select {
	case <-d.done:
		d.dropped.Inc()
		return ErrDispatcherClosed
	default:
	}

	select {
	case d.events <- event:
		d.sent.Inc()
		return nil
	default:
		d.dropped.Inc()
		return ErrDispatcherFull
	}
}

// Events is the channel the processor consumes. It is never closed, since
// readers may still be sending; use Done to observe shutdown.
func (d *Dispatcher) Events() <-chan wire.Event {
	return d.events
}

func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.done) })
}

func (d *Dispatcher) Sent() uint64 {
	return d.sent.Load()
}

func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}
