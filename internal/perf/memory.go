package perf

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/jhwbarlow/sockwho/internal/probe"
)

// MemoryRing is a bounded in-process Ring. Writes never block: when the ring
// is full the record is counted as lost, as the kernel does.
type MemoryRing struct {
	records chan []byte
	lost    atomic.Uint64
	notify  chan struct{}

	done chan struct{}
	once sync.Once
}

func NewMemoryRing(capacity int) *MemoryRing {
	return &MemoryRing{
		records: make(chan []byte, capacity),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Write queues a copy of record.
func (r *MemoryRing) Write(record []byte) error {
	select {
	case <-r.done:
		return ErrClosed
	default:
	}

	cp := make([]byte, len(record))
	copy(cp, record)

	select {
	case r.records <- cp:
	default:
		r.lost.Inc()
		select {
		case r.notify <- struct{}{}:
		default:
		}
	}

	return nil
}

func (r *MemoryRing) ReadEvents(bufs [][]byte) (Events, error) {
	for {
		events := r.drain(bufs, 0)
		if events.Read > 0 || events.Lost > 0 {
			return events, nil
		}

		select {
		case <-r.done:
			return r.closedDrain(bufs)
		case record := <-r.records:
			bufs[0] = fill(bufs[0], record)
			return r.drain(bufs, 1), nil
		case <-r.notify:
		}
	}
}

// closedDrain hands out whatever was queued before Close.
func (r *MemoryRing) closedDrain(bufs [][]byte) (Events, error) {
	events := r.drain(bufs, 0)
	if events.Read > 0 || events.Lost > 0 {
		return events, nil
	}
	return Events{}, ErrClosed
}

func (r *MemoryRing) drain(bufs [][]byte, read int) Events {
	for read < len(bufs) {
		select {
		case record := <-r.records:
			bufs[read] = fill(bufs[read], record)
			read++
			continue
		default:
		}
		break
	}

	return Events{Read: read, Lost: r.lost.Swap(0)}
}

// Pending returns the number of queued records.
func (r *MemoryRing) Pending() int {
	return len(r.records)
}

func (r *MemoryRing) Close() error {
	r.once.Do(func() { close(r.done) })
	return nil
}

// MemoryArray is a set of per-CPU MemoryRings for each named queue, standing
// in for the perf event arrays of the BPF object.
type MemoryArray struct {
	cpus  []int
	rings map[string]map[int]*MemoryRing
}

func NewMemoryArray(queues []string, cpus []int, capacity int) *MemoryArray {
	a := &MemoryArray{
		cpus:  cpus,
		rings: make(map[string]map[int]*MemoryRing, len(queues)),
	}
	for _, queue := range queues {
		a.rings[queue] = make(map[int]*MemoryRing, len(cpus))
		for _, cpu := range cpus {
			a.rings[queue][cpu] = NewMemoryRing(capacity)
		}
	}
	return a
}

func (a *MemoryArray) CPUs() []int {
	return a.cpus
}

func (a *MemoryArray) ring(queue string, cpu int) (*MemoryRing, error) {
	ring, ok := a.rings[queue][cpu]
	if !ok {
		return nil, fmt.Errorf("no ring for queue %q on CPU %d", queue, cpu)
	}
	return ring, nil
}

// OpenRing returns the ring of queue on cpu.
func (a *MemoryArray) OpenRing(queue string, cpu int) (Ring, error) {
	ring, err := a.ring(queue, cpu)
	if err != nil {
		return nil, err
	}
	return ring, nil
}

// Output writes record to queue on the invoking CPU.
func (a *MemoryArray) Output(ctx probe.Context, queue string, record []byte) error {
	ring, err := a.ring(queue, ctx.CPU())
	if err != nil {
		return err
	}
	return ring.Write(record)
}

// Close closes every ring.
func (a *MemoryArray) Close() error {
	for _, rings := range a.rings {
		for _, ring := range rings {
			ring.Close()
		}
	}
	return nil
}
