package probe

import (
	"encoding/binary"
	"errors"

	"golang.org/x/sys/unix"

	"github.com/jhwbarlow/sockwho/internal/wire"
)

var ErrBadAddress = errors.New("bad address")

// Invocation is a synthetic tracepoint invocation: a tracepoint record plus
// the traced process' memory it may point into.
type Invocation struct {
	Record  []byte
	Memory  map[uint64][]byte
	PidTGID uint64
	Comm    [wire.TaskCommLen]byte
	OnCPU   int
}

func (i *Invocation) ReadField(offset int, dst []byte) error {
	if offset < 0 || offset+len(dst) > len(i.Record) {
		return ErrBadAddress
	}
	copy(dst, i.Record[offset:])
	return nil
}

func (i *Invocation) ReadUser(addr uint64, dst []byte) error {
	for base, region := range i.Memory {
		if addr >= base && uint64(len(dst)) <= uint64(len(region)) &&
			addr-base <= uint64(len(region))-uint64(len(dst)) {
			copy(dst, region[addr-base:])
			return nil
		}
	}
	return ErrBadAddress
}

func (i *Invocation) PIDTGID() uint64 {
	return i.PidTGID
}

func (i *Invocation) Command() [wire.TaskCommLen]byte {
	return i.Comm
}

func (i *Invocation) CPU() int {
	return i.OnCPU
}

// PIDTGID combines a process and thread id the way the kernel does.
func PIDTGID(pid, tid uint32) uint64 {
	return uint64(pid)<<32 | uint64(tid)
}

// SyscallEnterRecord lays out a sys_enter record for syscall.
func SyscallEnterRecord(syscall wire.Syscall, fd int64, sockaddr uint64) []byte {
	order := wire.SystemEndianess()
	layout := layoutOf(syscall)
	record := make([]byte, syscallEnterRecordLen)
	order.PutUint64(record[layout.fd:], uint64(fd))
	order.PutUint64(record[layout.sockaddr:], sockaddr)
	return record
}

// SyscallExitRecord lays out a sys_exit record.
func SyscallExitRecord(ret int64) []byte {
	record := make([]byte, syscallExitRecordLen)
	wire.SystemEndianess().PutUint64(record[exitReturnOffset:], uint64(ret))
	return record
}

// SockaddrIn lays out a struct sockaddr_in. port is in host byte order.
func SockaddrIn(addr [4]byte, port uint16) []byte {
	sockaddr := make([]byte, 16)
	wire.SystemEndianess().PutUint16(sockaddr, unix.AF_INET)
	binary.BigEndian.PutUint16(sockaddr[sockaddrPortOffset:], port)
	copy(sockaddr[sockaddrInAddrOffset:], addr[:])
	return sockaddr
}

// SockaddrIn6 lays out a struct sockaddr_in6. port is in host byte order.
func SockaddrIn6(addr [wire.AddressLen]byte, port uint16) []byte {
	sockaddr := make([]byte, 28)
	wire.SystemEndianess().PutUint16(sockaddr, unix.AF_INET6)
	binary.BigEndian.PutUint16(sockaddr[sockaddrPortOffset:], port)
	copy(sockaddr[sockaddrIn6AddrOffset:], addr[:])
	return sockaddr
}

// StateRecord lays out a sock:inet_sock_set_state record. family is AF_INET or
// AF_INET6; IPv4 addresses are taken from the first four bytes of src and dst.
func StateRecord(oldState, newState uint32, srcPort, dstPort uint16, family uint16, src, dst [wire.AddressLen]byte) []byte {
	order := wire.SystemEndianess()
	record := make([]byte, stateRecordLen)
	order.PutUint32(record[stateOldOffset:], oldState)
	order.PutUint32(record[stateNewOffset:], newState)
	order.PutUint16(record[stateSportOffset:], srcPort)
	order.PutUint16(record[stateDportOffset:], dstPort)
	order.PutUint16(record[stateFamilyOffset:], family)
	if family == unix.AF_INET {
		copy(record[stateSaddrOffset:stateSaddrOffset+4], src[:4])
		copy(record[stateDaddrOffset:stateDaddrOffset+4], dst[:4])
	} else {
		copy(record[stateSaddrV6Offset:], src[:])
		copy(record[stateDaddrV6Offset:], dst[:])
	}
	return record
}
