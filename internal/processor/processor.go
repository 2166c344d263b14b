// Package processor renders decoded events, one line per event, in the order
// they arrive from the dispatcher.
package processor

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"syscall"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/jhwbarlow/sockwho/internal/wire"
)

// Processor is the single consumer of the dispatcher channel.
type Processor struct {
	out    io.Writer
	logger *zap.SugaredLogger

	processed atomic.Uint64
	skipped   atomic.Uint64
}

func New(out io.Writer, logger *zap.SugaredLogger) *Processor {
	return &Processor{
		out:    out,
		logger: logger,
	}
}

// Run handles events one at a time until ctx is done or events is closed.
// An event which cannot be handled is logged and skipped.
func (p *Processor) Run(ctx context.Context, events <-chan wire.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}

			if err := p.Handle(event); err != nil {
				p.skipped.Inc()
				p.logger.Warnw("Failed to handle event", "error", err)
				continue
			}
			p.processed.Inc()
		}
	}
}

// Handle renders a single event.
func (p *Processor) Handle(event wire.Event) error {
	var (
		line string
		err  error
	)

	switch e := event.(type) {
	case *wire.SockaddrEvent:
		line = formatSockaddrEvent(e)
	case *wire.SocketStateEvent:
		line, err = formatSocketStateEvent(e)
	default:
		err = fmt.Errorf("unexpected event type %T", event)
	}
	if err != nil {
		return err
	}

	if _, err := io.WriteString(p.out, line+"\n"); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}

	return nil
}

// Processed returns the number of events rendered so far.
func (p *Processor) Processed() uint64 {
	return p.processed.Load()
}

// Skipped returns the number of events which failed to be handled.
func (p *Processor) Skipped() uint64 {
	return p.skipped.Load()
}

func endpoint(family wire.AddressFamily, address [wire.AddressLen]byte, port uint16) string {
	return net.JoinHostPort(wire.Address(family, address).String(), strconv.Itoa(int(port)))
}

func formatResult(ret int32) string {
	result := strconv.Itoa(int(ret))
	if ret >= 0 {
		return result
	}

	if name := unix.ErrnoName(syscall.Errno(-ret)); name != "" {
		return result + " (" + name + ")"
	}
	return result
}

func formatSockaddrEvent(e *wire.SockaddrEvent) string {
	return fmt.Sprintf("%s/%d/%d syscall::%s(%s) = %s",
		wire.CommandString(e.Command),
		e.Pid,
		int32(e.Fd),
		e.Syscall,
		endpoint(e.Family, e.Address, wire.NetworkToHostPort(e.Port)),
		formatResult(e.Errno))
}

func formatSocketStateEvent(e *wire.SocketStateEvent) (string, error) {
	oldState, err := ParseTCPState(e.OldState)
	if err != nil {
		return "", fmt.Errorf("parsing old state: %w", err)
	}

	newState, err := ParseTCPState(e.NewState)
	if err != nil {
		return "", fmt.Errorf("parsing new state: %w", err)
	}

	return fmt.Sprintf("%s/%d socket::set_state(%s <-> %s) %s -> %s",
		wire.CommandString(e.Command),
		e.Pid,
		endpoint(e.Family, e.SrcAddress, e.SrcPort),
		endpoint(e.Family, e.DstAddress, e.DstPort),
		oldState,
		newState), nil
}
