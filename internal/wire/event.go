// Package wire defines the fixed-layout records exchanged between the kernel
// probes and userspace. The struct layouts must match those of the equivalent
// structs in bpf/sockwho.bpf.c.
package wire

const (
	TaskCommLen = 16 // Defined in kernel (linux/sched.h)
	AddressLen  = 16
)

// Must match the map names used in the BPF C
const (
	SockaddrEventsMap    = "SOCKADDR_EVENTS"
	SocketStateEventsMap = "SOCKET_STATE_EVENTS"
)

// Event is a decoded record from one of the event queues. It is implemented
// only by *SockaddrEvent and *SocketStateEvent.
type Event interface {
	queue() string
}

// AddressFamily tags the layout of the address buffers of an event.
type AddressFamily uint8

const (
	FamilyIPv4 AddressFamily = iota
	FamilyIPv6
)

func (f AddressFamily) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// Syscall identifies the traced syscall an address event was produced by.
type Syscall uint8

const (
	SyscallBind Syscall = iota
	SyscallConnect
	SyscallRecvFrom
	SyscallSendTo
)

func (s Syscall) String() string {
	switch s {
	case SyscallBind:
		return "bind"
	case SyscallConnect:
		return "connect"
	case SyscallRecvFrom:
		return "recvfrom"
	case SyscallSendTo:
		return "sendto"
	default:
		return "unknown"
	}
}

// SockaddrEvent is a syscall-level address event, produced once the exit of
// the syscall has been observed.
//
// Port is kept exactly as read from the sockaddr, i.e. in network byte order.
// Errno holds the raw return value of the syscall.
type SockaddrEvent struct {
	Pid     uint32
	Fd      uint32
	Address [AddressLen]byte
	Port    uint16
	Family  AddressFamily
	Syscall Syscall
	Errno   int32
	Command [TaskCommLen]byte
}

func (*SockaddrEvent) queue() string { return SockaddrEventsMap }

// SocketStateEvent is a TCP state transition as reported by the
// sock:inet_sock_set_state tracepoint. Ports are in host byte order.
type SocketStateEvent struct {
	SrcPort    uint16
	DstPort    uint16
	Family     AddressFamily
	_          [3]byte // Alignment padding
	OldState   uint32
	NewState   uint32
	Pid        uint32
	SrcAddress [AddressLen]byte
	DstAddress [AddressLen]byte
	Command    [TaskCommLen]byte
}

func (*SocketStateEvent) queue() string { return SocketStateEventsMap }

// QueueOf returns the name of the queue the event travels on.
func QueueOf(e Event) string {
	return e.queue()
}
