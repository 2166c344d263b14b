package monitor

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jhwbarlow/sockwho/internal/perf"
)

// reader drains one (CPU, queue) ring. It owns its scratch buffers, so
// readers share nothing but the dispatcher.
type reader struct {
	cpu         int
	queue       Queue
	ring        perf.Ring
	dispatcher  *Dispatcher
	lostHandler lostEventHandler
	logger      *zap.SugaredLogger

	bufs [][]byte
}

func newReader(cpu int,
	queue Queue,
	ring perf.Ring,
	dispatcher *Dispatcher,
	lostHandler lostEventHandler,
	batchSize int,
	logger *zap.SugaredLogger) *reader {
	bufs := make([][]byte, batchSize)
	for i := range bufs {
		bufs[i] = make([]byte, 0, queue.RecordSize)
	}

	return &reader{
		cpu:         cpu,
		queue:       queue,
		ring:        ring,
		dispatcher:  dispatcher,
		lostHandler: lostHandler,
		logger:      logger.With("queue", queue.Name, "cpu", cpu),
		bufs:        bufs,
	}
}

// Run reads until the ring is closed. Records are decoded and dispatched in
// the order the ring returns them.
func (r *reader) run() error {
	for {
		events, err := r.ring.ReadEvents(r.bufs)
		if errors.Is(err, perf.ErrClosed) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s on CPU %d: %w", r.queue.Name, r.cpu, err)
		}

		if events.Lost > 0 {
			if err := r.lostHandler.handle(r.queue.Name, r.cpu, events.Lost); err != nil {
				r.logger.Warnf("Error handling lost events: %v", err)
			}
		}

		for _, buf := range r.bufs[:events.Read] {
			event, err := r.queue.Decode(buf)
			if err != nil {
				r.logger.Warnf("Failed to decode event: %v", err)
				continue
			}

			if err := r.dispatcher.Send(event); err != nil {
				r.logger.Warnf("Failed to send event to consumer: %v", err)
			}
		}
	}
}
