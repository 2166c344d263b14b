package probe

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/jhwbarlow/sockwho/internal/wire"
)

// Probes holds the state shared by all handlers: the in-flight table and the
// event queues.
type Probes struct {
	table     *CallTable
	output    Output
	endianess binary.ByteOrder
	decoder   *wire.Decoder
}

func New(table *CallTable, output Output) *Probes {
	endianess := wire.SystemEndianess()
	return &Probes{
		table:     table,
		output:    output,
		endianess: endianess,
		decoder:   wire.NewDecoder(endianess),
	}
}

func (p *Probes) Table() *CallTable {
	return p.table
}

func (p *Probes) readUint64(ctx Context, offset int) (uint64, error) {
	var buf [8]byte
	if err := ctx.ReadField(offset, buf[:]); err != nil {
		return 0, CodeReadFailed
	}
	return p.endianess.Uint64(buf[:]), nil
}

func (p *Probes) readUint32(ctx Context, offset int) (uint32, error) {
	var buf [4]byte
	if err := ctx.ReadField(offset, buf[:]); err != nil {
		return 0, CodeReadFailed
	}
	return p.endianess.Uint32(buf[:]), nil
}

func (p *Probes) readUint16(ctx Context, offset int) (uint16, error) {
	var buf [2]byte
	if err := ctx.ReadField(offset, buf[:]); err != nil {
		return 0, CodeReadFailed
	}
	return p.endianess.Uint16(buf[:]), nil
}

// Enter returns the sys_enter handler for syscall. It records the socket
// address the syscall was invoked with in the in-flight table.
func (p *Probes) Enter(syscall wire.Syscall) Probe[Context] {
	layout := layoutOf(syscall)

	return func(ctx Context) error {
		pidTGID := ctx.PIDTGID()

		fd, err := p.readUint64(ctx, layout.fd)
		if err != nil {
			return err
		}
		// fd is a C int; only the low 32 bits are meaningful
		if int32(fd) == -1 {
			return nil
		}

		sockaddr, err := p.readUint64(ctx, layout.sockaddr)
		if err != nil {
			return err
		}

		family, address, port, err := p.readSockaddr(ctx, sockaddr)
		if err != nil {
			return err
		}

		event := wire.SockaddrEvent{
			Pid:     pid(pidTGID),
			Fd:      uint32(fd),
			Address: address,
			Port:    port,
			Family:  family,
			Syscall: syscall,
			Command: ctx.Command(),
		}

		return p.table.Insert(pidTGID, event)
	}
}

func (p *Probes) readSockaddr(ctx Context, addr uint64) (wire.AddressFamily, [wire.AddressLen]byte, uint16, error) {
	var address [wire.AddressLen]byte

	var tag [2]byte
	if err := ctx.ReadUser(addr, tag[:]); err != nil {
		return 0, address, 0, CodeReadFailed
	}

	switch p.endianess.Uint16(tag[:]) {
	case unix.AF_INET:
		var sockaddr [sockaddrInLen]byte
		if err := ctx.ReadUser(addr, sockaddr[:]); err != nil {
			return 0, address, 0, CodeReadFailed
		}
		var quad [4]byte
		copy(quad[:], sockaddr[sockaddrInAddrOffset:])
		port := p.endianess.Uint16(sockaddr[sockaddrPortOffset:])
		return wire.FamilyIPv4, wire.CanonicalIPv4(quad), port, nil
	case unix.AF_INET6:
		var sockaddr [sockaddrIn6Len]byte
		if err := ctx.ReadUser(addr, sockaddr[:]); err != nil {
			return 0, address, 0, CodeReadFailed
		}
		copy(address[:], sockaddr[sockaddrIn6AddrOffset:])
		port := p.endianess.Uint16(sockaddr[sockaddrPortOffset:])
		return wire.FamilyIPv6, address, port, nil
	default:
		return 0, address, 0, CodeUnknownFamily
	}
}

// Exit is the sys_exit handler shared by all traced syscalls. It completes the
// in-flight entry of the calling thread with the return value and emits it.
// The command is taken at exit, so an exec() between entry and exit is
// reported under the new name.
func (p *Probes) Exit(ctx Context) error {
	ret, err := p.readUint64(ctx, exitReturnOffset)
	if err != nil {
		return err
	}

	pidTGID := ctx.PIDTGID()
	event, ok := p.table.Lookup(pidTGID)
	if !ok {
		return CodeNoEntry
	}
	defer p.table.Delete(pidTGID)

	event.Errno = int32(int64(ret))
	event.Command = ctx.Command()

	return p.emit(ctx, &event)
}

// SetState is the sock:inet_sock_set_state handler.
func (p *Probes) SetState(ctx Context) error {
	oldState, err := p.readUint32(ctx, stateOldOffset)
	if err != nil {
		return err
	}
	newState, err := p.readUint32(ctx, stateNewOffset)
	if err != nil {
		return err
	}
	srcPort, err := p.readUint16(ctx, stateSportOffset)
	if err != nil {
		return err
	}
	dstPort, err := p.readUint16(ctx, stateDportOffset)
	if err != nil {
		return err
	}
	family, err := p.readUint16(ctx, stateFamilyOffset)
	if err != nil {
		return err
	}

	event := &wire.SocketStateEvent{
		SrcPort:  srcPort,
		DstPort:  dstPort,
		OldState: oldState,
		NewState: newState,
		Pid:      pid(ctx.PIDTGID()),
		Command:  ctx.Command(),
	}

	switch family {
	case unix.AF_INET:
		var src, dst [4]byte
		if err := ctx.ReadField(stateSaddrOffset, src[:]); err != nil {
			return CodeReadFailed
		}
		if err := ctx.ReadField(stateDaddrOffset, dst[:]); err != nil {
			return CodeReadFailed
		}
		event.Family = wire.FamilyIPv4
		event.SrcAddress = wire.CanonicalIPv4(src)
		event.DstAddress = wire.CanonicalIPv4(dst)
	case unix.AF_INET6:
		if err := ctx.ReadField(stateSaddrV6Offset, event.SrcAddress[:]); err != nil {
			return CodeReadFailed
		}
		if err := ctx.ReadField(stateDaddrV6Offset, event.DstAddress[:]); err != nil {
			return CodeReadFailed
		}
		event.Family = wire.FamilyIPv6
	default:
		return CodeUnknownFamily
	}

	return p.emit(ctx, event)
}

func (p *Probes) emit(ctx Context, event wire.Event) error {
	record, err := p.decoder.Encode(event)
	if err != nil {
		return CodeOutputFailed
	}
	if err := p.output.Output(ctx, wire.QueueOf(event), record); err != nil {
		return CodeOutputFailed
	}
	return nil
}
