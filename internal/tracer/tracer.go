package tracer

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jhwbarlow/sockwho/internal/config"
	"github.com/jhwbarlow/sockwho/internal/loader"
	"github.com/jhwbarlow/sockwho/internal/monitor"
	"github.com/jhwbarlow/sockwho/internal/perf"
	"github.com/jhwbarlow/sockwho/internal/processor"
	"github.com/jhwbarlow/sockwho/internal/wire"
)

// Tracer traces socket activity live until its context is cancelled.
type Tracer struct {
	runner    bpfRunner
	queues    []monitor.Queue
	cpus      []int
	cfg       config.Config
	processor *processor.Processor
	logger    *zap.SugaredLogger
}

// New returns a Tracer attaching to tracepoints on every online CPU. Events
// are written to out, one per line.
func New(cfg config.Config,
	tracepoints []loader.Tracepoint,
	out io.Writer,
	logger *zap.SugaredLogger) (*Tracer, error) {
	cpus, err := perf.OnlineCPUs()
	if err != nil {
		return nil, fmt.Errorf("listing CPUs: %w", err)
	}

	queues := monitor.Queues(wire.NativeDecoder())
	moduleCreator := loader.NewLibBPFGoModuleCreator(loader.NewObjectLoader(cfg.BPFObject))
	runner := newLibBPFGoBPFRunner(moduleCreator,
		tracepoints,
		monitor.QueueNames(queues),
		cpus,
		cfg.PerfBufferPages,
		logger)

	return newTracer(runner, queues, cpus, cfg, processor.New(out, logger), logger), nil
}

func newTracer(runner bpfRunner,
	queues []monitor.Queue,
	cpus []int,
	cfg config.Config,
	proc *processor.Processor,
	logger *zap.SugaredLogger) *Tracer {
	return &Tracer{
		runner:    runner,
		queues:    queues,
		cpus:      cpus,
		cfg:       cfg,
		processor: proc,
		logger:    logger,
	}
}

// Run starts the BPF runner, then reads and prints events until ctx is done
// or a reader fails. Everything started is closed before Run returns.
func (t *Tracer) Run(ctx context.Context) error {
	if err := t.runner.Run(); err != nil {
		return multierr.Append(fmt.Errorf("starting BPF runner: %w", err), t.runner.Close())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatcher := monitor.NewDispatcher(t.cfg.ChannelSize)
	group, ctx := errgroup.WithContext(ctx)

	// Closing the rings is what stops the readers
	group.Go(func() error {
		<-ctx.Done()
		dispatcher.Close()
		if err := t.runner.Close(); err != nil {
			return fmt.Errorf("closing BPF runner: %w", err)
		}
		return nil
	})

	m := monitor.New(t.queues, t.cpus, t.runner, dispatcher, t.cfg.ReadBatchSize, t.logger)
	if err := launchReaders(m, group, cancel); err != nil {
		return err
	}

	group.Go(func() error {
		return t.processor.Run(ctx, dispatcher.Events())
	})

	t.logger.Info("Tracing socket activity")

	err := group.Wait()

	t.logger.Infow("Stopped tracing",
		"processed", t.processor.Processed(),
		"skipped", t.processor.Skipped(),
		"dropped", dispatcher.Dropped(),
		"lost", m.Lost())

	return err
}

// launchReaders starts the readers of m in group. If not all of them could be
// started, the group is cancelled and waited for.
func launchReaders(m *monitor.Monitor, group *errgroup.Group, cancel context.CancelFunc) error {
	if err := m.Launch(group); err != nil {
		cancel()
		return multierr.Append(fmt.Errorf("launching readers: %w", err), group.Wait())
	}
	return nil
}
