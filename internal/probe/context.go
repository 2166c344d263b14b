// Package probe holds the semantics of the kernel probes in bpf/sockwho.bpf.c:
// the syscall entry/exit handlers, the state transition handler and the
// in-flight call table correlating entries with exits.
//
// Handlers only ever read fixed-size fields into fixed-size buffers and never
// loop over unbounded input. Any failed read drops the invocation with a Code.
package probe

import "github.com/jhwbarlow/sockwho/internal/wire"

// Context is the raw tracepoint invocation a probe runs against.
type Context interface {
	// ReadField copies len(dst) bytes of the tracepoint record at offset.
	ReadField(offset int, dst []byte) error
	// ReadUser copies len(dst) bytes of the traced process' memory at addr.
	ReadUser(addr uint64, dst []byte) error
	// PIDTGID returns the kernel's combined thread group / thread id.
	PIDTGID() uint64
	// Command returns the current process name.
	Command() [wire.TaskCommLen]byte
	// CPU returns the CPU the invocation runs on.
	CPU() int
}

// Output is a per-CPU event queue set, keyed by map name.
type Output interface {
	Output(ctx Context, queue string, record []byte) error
}

// Argument layouts of the syscalls tracepoints (see
// /sys/kernel/tracing/events/syscalls/sys_enter_*/format).
type syscallLayout struct {
	fd       int
	sockaddr int
}

var (
	// bind, connect
	controlLayout = syscallLayout{fd: 16, sockaddr: 24}
	// recvfrom, sendto
	ioLayout = syscallLayout{fd: 16, sockaddr: 48}
)

func layoutOf(syscall wire.Syscall) syscallLayout {
	switch syscall {
	case wire.SyscallRecvFrom, wire.SyscallSendTo:
		return ioLayout
	default:
		return controlLayout
	}
}

const exitReturnOffset = 16

// Layout of sock:inet_sock_set_state.
const (
	stateOldOffset     = 16
	stateNewOffset     = 20
	stateSportOffset   = 24
	stateDportOffset   = 26
	stateFamilyOffset  = 28
	stateSaddrOffset   = 32
	stateDaddrOffset   = 36
	stateSaddrV6Offset = 40
	stateDaddrV6Offset = 56
)

// Record sizes, used to build synthetic invocations.
const (
	syscallEnterRecordLen = 64
	syscallExitRecordLen  = 24
	stateRecordLen        = 72
)

// struct sockaddr_in and struct sockaddr_in6, up to the end of the address.
const (
	sockaddrInLen         = 8
	sockaddrIn6Len        = 24
	sockaddrPortOffset    = 2
	sockaddrInAddrOffset  = 4
	sockaddrIn6AddrOffset = 8
)

// pid converts a pid/tgid pair into what userspace considers a pid.
func pid(pidTGID uint64) uint32 {
	return uint32(pidTGID >> 32)
}
