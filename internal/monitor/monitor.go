package monitor

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jhwbarlow/sockwho/internal/perf"
)

// DefaultBatchSize is the number of scratch buffers each reader owns.
const DefaultBatchSize = 1024

// RingOpener is an interface which describes objects which give access to
// the ring of a queue on one CPU.
type RingOpener interface {
	OpenRing(queue string, cpu int) (perf.Ring, error)
}

// Monitor launches one reader per CPU for every queue.
type Monitor struct {
	queues      []Queue
	cpus        []int
	opener      RingOpener
	dispatcher  *Dispatcher
	batchSize   int
	lostHandler *loggingLostEventHandler
	logger      *zap.SugaredLogger
}

func New(queues []Queue,
	cpus []int,
	opener RingOpener,
	dispatcher *Dispatcher,
	batchSize int,
	logger *zap.SugaredLogger) *Monitor {
	return &Monitor{
		queues:      queues,
		cpus:        cpus,
		opener:      opener,
		dispatcher:  dispatcher,
		batchSize:   batchSize,
		lostHandler: newLoggingLostEventHandler(logger),
		logger:      logger,
	}
}

// Launch opens every (queue, CPU) ring and starts its reader in group.
// Readers return once their ring is closed.
func (m *Monitor) Launch(group *errgroup.Group) error {
	for _, queue := range m.queues {
		for _, cpu := range m.cpus {
			ring, err := m.opener.OpenRing(queue.Name, cpu)
			if err != nil {
				return fmt.Errorf("opening %s ring on CPU %d: %w", queue.Name, cpu, err)
			}

			reader := newReader(cpu, queue, ring, m.dispatcher, m.lostHandler, m.batchSize, m.logger)
			group.Go(reader.run)
		}
	}

	m.logger.Debugf("Launched %d readers", len(m.queues)*len(m.cpus))

	return nil
}

// Lost returns the number of events the kernel reported lost so far.
func (m *Monitor) Lost() uint64 {
	return m.lostHandler.total.Load()
}
