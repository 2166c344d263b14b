package wire

import (
	"bytes"
	"encoding/binary"
	"net"
)

// CanonicalIPv4 embeds an IPv4 address in an address buffer. The trailing
// twelve bytes are zero.
func CanonicalIPv4(addr [4]byte) [AddressLen]byte {
	var buf [AddressLen]byte
	copy(buf[:4], addr[:])
	return buf
}

// Address resolves an address buffer according to its family. For IPv4 only
// the first four bytes are read.
func Address(family AddressFamily, buf [AddressLen]byte) net.IP {
	switch family {
	case FamilyIPv4:
		return net.IPv4(buf[0], buf[1], buf[2], buf[3])
	default:
		ip := make(net.IP, net.IPv6len)
		copy(ip, buf[:])
		return ip
	}
}

// NetworkToHostPort converts a port read raw from a sockaddr, and then
// decoded in host byte order, into its numeric value.
func NetworkToHostPort(port uint16) uint16 {
	var raw [2]byte
	SystemEndianess().PutUint16(raw[:], port)
	return binary.BigEndian.Uint16(raw[:])
}

// HostToNetworkPort is the inverse of NetworkToHostPort.
func HostToNetworkPort(port uint16) uint16 {
	var raw [2]byte
	binary.BigEndian.PutUint16(raw[:], port)
	return SystemEndianess().Uint16(raw[:])
}

// CommandString returns the process name held in a NUL-padded command buffer.
func CommandString(command [TaskCommLen]byte) string {
	if i := bytes.IndexByte(command[:], 0); i >= 0 {
		return string(command[:i])
	}
	return string(command[:])
}

// CommandFromString truncates name to fit a command buffer, as the kernel does.
func CommandFromString(name string) [TaskCommLen]byte {
	var command [TaskCommLen]byte
	copy(command[:TaskCommLen-1], name)
	return command
}
