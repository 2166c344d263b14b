// Package tracer wires the BPF runner, the per-CPU readers and the event
// processor together.
package tracer

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/jhwbarlow/sockwho/internal/loader"
	"github.com/jhwbarlow/sockwho/internal/perf"
)

// Must match the name used in the BPF C
const moduleName = "sockwho"

// BPFRunner is an interface which describes objects which load the BPF
// programs into the kernel, attach them, and give access to the per-CPU
// rings the programs write their events to.
type bpfRunner interface {
	Run() error
	OpenRing(queue string, cpu int) (perf.Ring, error)
	Close() error
}

// PerfEventRing is a ring backed by a perf event, whose file descriptor is
// installed in the perf event array of its queue.
type perfEventRing interface {
	perf.Ring
	FD() int
}

type ringOpenFunc func(cpu, pages int) (perfEventRing, error)

func openKernelRing(cpu, pages int) (perfEventRing, error) {
	ring, err := perf.OpenKernelRing(cpu, pages)
	if err != nil {
		return nil, err
	}
	return ring, nil
}

// LibBPFGoBPFRunner is a bpfRunner which loads the BPF programs into the kernel
// using the libbpfgo library, and reads them through kernel perf rings.
type libBPFGoBPFRunner struct {
	moduleCreator loader.ModuleCreator
	tracepoints   []loader.Tracepoint
	queues        []string
	cpus          []int
	pages         int
	openRing      ringOpenFunc
	logger        *zap.SugaredLogger

	module loader.Module
	rings  map[string]map[int]perfEventRing
}

func newLibBPFGoBPFRunner(moduleCreator loader.ModuleCreator,
	tracepoints []loader.Tracepoint,
	queues []string,
	cpus []int,
	pages int,
	logger *zap.SugaredLogger) *libBPFGoBPFRunner {
	return &libBPFGoBPFRunner{
		moduleCreator: moduleCreator,
		tracepoints:   tracepoints,
		queues:        queues,
		cpus:          cpus,
		pages:         pages,
		openRing:      openKernelRing,
		logger:        logger,
		rings:         make(map[string]map[int]perfEventRing, len(queues)),
	}
}

// Run loads the BPF programs into the kernel, attaches them to their
// tracepoints and routes the output of every queue on every CPU to a ring.
// Whatever was set up before a failure is released by Close.
func (r *libBPFGoBPFRunner) Run() error {
	module, err := r.moduleCreator.CreateModule(moduleName)
	if err != nil {
		return fmt.Errorf("creating BPF module: %w", err)
	}
	r.module = module

	if err := module.LoadObject(); err != nil {
		return fmt.Errorf("loading BPF object into kernel: %w", err)
	}

	if err := loader.NewAttacher(module, r.tracepoints, r.logger).Attach(); err != nil {
		return fmt.Errorf("attaching BPF programs: %w", err)
	}

	for _, queue := range r.queues {
		if err := r.openRings(queue); err != nil {
			return err
		}
	}

	r.logger.Infow("BPF programs attached",
		"tracepoints", len(r.tracepoints),
		"cpus", len(r.cpus))

	return nil
}

func (r *libBPFGoBPFRunner) openRings(queue string) error {
	perfEventArray, err := r.module.GetMap(queue)
	if err != nil {
		return fmt.Errorf("getting perf event array %q: %w", queue, err)
	}

	r.rings[queue] = make(map[int]perfEventRing, len(r.cpus))
	for _, cpu := range r.cpus {
		ring, err := r.openRing(cpu, r.pages)
		if err != nil {
			return fmt.Errorf("opening %s ring: %w", queue, err)
		}
		r.rings[queue][cpu] = ring

		if err := perfEventArray.SetPerfEventFD(cpu, ring.FD()); err != nil {
			return fmt.Errorf("installing %s ring for CPU %d: %w", queue, cpu, err)
		}
	}

	return nil
}

// OpenRing returns the ring of queue on cpu opened by Run.
func (r *libBPFGoBPFRunner) OpenRing(queue string, cpu int) (perf.Ring, error) {
	ring, ok := r.rings[queue][cpu]
	if !ok {
		return nil, fmt.Errorf("no %s ring open for CPU %d", queue, cpu)
	}
	return ring, nil
}

// Close closes the rings, unblocking their readers, then unloads the BPF
// programs loaded into the kernel by this runner.
func (r *libBPFGoBPFRunner) Close() error {
	var err error
	for queue, rings := range r.rings {
		for cpu, ring := range rings {
			if closeErr := ring.Close(); closeErr != nil {
				err = multierr.Append(err, fmt.Errorf("closing %s ring for CPU %d: %w", queue, cpu, closeErr))
			}
		}
	}

	if r.module != nil {
		r.logger.Info("Closing BPF module")
		r.module.Close()
	}

	return err
}
