package tracer

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/jhwbarlow/sockwho/internal/config"
	"github.com/jhwbarlow/sockwho/internal/monitor"
	"github.com/jhwbarlow/sockwho/internal/perf"
	"github.com/jhwbarlow/sockwho/internal/probe"
	"github.com/jhwbarlow/sockwho/internal/processor"
	"github.com/jhwbarlow/sockwho/internal/wire"
)

var simulatedCPUs = []int{0, 1}

const (
	sockaddrPtr     = 0x7ffd0000
	handledPollTime = 10 * time.Millisecond
)

// step is one tracepoint hit of the simulated scenario.
type step struct {
	description string
	probe       func(probe.Context) int32
	invocation  *probe.Invocation
	emits       bool
}

func enterStep(description string,
	probes *probe.Probes,
	syscall wire.Syscall,
	pidTGID uint64,
	fd int64,
	sockaddr []byte,
	comm string,
	cpu int) step {
	return step{
		description: description,
		probe:       probe.Entrypoint(probes.Enter(syscall)),
		invocation: &probe.Invocation{
			Record:  probe.SyscallEnterRecord(syscall, fd, sockaddrPtr),
			Memory:  map[uint64][]byte{sockaddrPtr: sockaddr},
			PidTGID: pidTGID,
			Comm:    wire.CommandFromString(comm),
			OnCPU:   cpu,
		},
	}
}

func exitStep(description string, probes *probe.Probes, pidTGID uint64, ret int64, comm string, cpu int) step {
	return step{
		description: description,
		probe:       probe.Entrypoint[probe.Context](probes.Exit),
		invocation: &probe.Invocation{
			Record:  probe.SyscallExitRecord(ret),
			PidTGID: pidTGID,
			Comm:    wire.CommandFromString(comm),
			OnCPU:   cpu,
		},
		emits: true,
	}
}

func stateStep(description string, probes *probe.Probes, record []byte, pidTGID uint64, comm string, cpu int) step {
	return step{
		description: description,
		probe:       probe.Entrypoint[probe.Context](probes.SetState),
		invocation: &probe.Invocation{
			Record:  record,
			PidTGID: pidTGID,
			Comm:    wire.CommandFromString(comm),
			OnCPU:   cpu,
		},
		emits: true,
	}
}

func ipv6Loopback() [wire.AddressLen]byte {
	var addr [wire.AddressLen]byte
	addr[wire.AddressLen-1] = 1
	return addr
}

func scenario(probes *probe.Probes) []step {
	myapp := probe.PIDTGID(4242, 4242)
	curl := probe.PIDTGID(5151, 5152)
	dig := probe.PIDTGID(6000, 6000)

	linkLocal := [wire.AddressLen]byte{0xfe, 0x80, 15: 0x01}
	documentation := [wire.AddressLen]byte{0x20, 0x01, 0x0d, 0xb8, 15: 0x02}

	return []step{
		enterStep("bind entry", probes, wire.SyscallBind, myapp, 3,
			probe.SockaddrIn([4]byte{127, 0, 0, 1}, 8080), "myapp", 0),
		enterStep("connect entry", probes, wire.SyscallConnect, curl, 5,
			probe.SockaddrIn6(ipv6Loopback(), 443), "curl", 1),
		exitStep("bind exit", probes, myapp, 0, "myapp", 0),
		exitStep("connect exit", probes, curl, -int64(unix.ECONNREFUSED), "curl", 1),
		enterStep("sendto entry without socket", probes, wire.SyscallSendTo, dig, -1,
			probe.SockaddrIn([4]byte{10, 0, 0, 53}, 53), "dig", 0),
		exitStep("sendto exit without entry", probes, dig, -int64(unix.EBADF), "dig", 0),
		stateStep("IPv6 handshake completes", probes,
			probe.StateRecord(2, 1, 5000, 443, unix.AF_INET6, linkLocal, documentation), curl, "curl", 1),
		stateStep("illegal old state", probes,
			probe.StateRecord(99, 1, 22, 40000, unix.AF_INET,
				wire.CanonicalIPv4([4]byte{10, 0, 0, 1}),
				wire.CanonicalIPv4([4]byte{10, 0, 0, 2})), probe.PIDTGID(700, 700), "sshd", 0),
	}
}

// Simulate runs a fixed scenario of tracepoint hits through the probe model,
// in-memory per-CPU rings, the readers and the processor, then returns once
// every emitted event has been handled.
func Simulate(ctx context.Context, cfg config.Config, out io.Writer, logger *zap.SugaredLogger) error {
	queues := monitor.Queues(wire.NativeDecoder())
	array := perf.NewMemoryArray(monitor.QueueNames(queues), simulatedCPUs, cfg.ChannelSize)
	probes := probe.New(probe.NewCallTable(probe.DefaultTableCapacity), array)

	var emitted uint64
	for _, step := range scenario(probes) {
		status := step.probe(step.invocation)
		logger.Debugw("Simulated tracepoint hit",
			"step", step.description,
			"cpu", step.invocation.OnCPU,
			"status", status)

		if step.emits && status == 0 {
			emitted++
		}
	}

	dispatcher := monitor.NewDispatcher(cfg.ChannelSize)
	m := monitor.New(queues, simulatedCPUs, array, dispatcher, cfg.ReadBatchSize, logger)
	proc := processor.New(out, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		<-ctx.Done()
		dispatcher.Close()
		return array.Close()
	})

	if err := launchReaders(m, group, cancel); err != nil {
		return err
	}

	group.Go(func() error {
		return proc.Run(ctx, dispatcher.Events())
	})

	group.Go(func() error {
		defer cancel()

		ticker := time.NewTicker(handledPollTime)
		defer ticker.Stop()

		for proc.Processed()+proc.Skipped()+dispatcher.Dropped()+m.Lost() < emitted {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}

		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	logger.Infow("Simulation complete",
		"emitted", emitted,
		"processed", proc.Processed(),
		"skipped", proc.Skipped())

	return nil
}
