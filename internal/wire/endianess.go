package wire

import (
	"encoding/binary"
	"unsafe"
)

// The kernel writes tracepoint fields and event records in host byte order.
var hostEndianess = detectEndianess()

// SystemEndianess returns the byte order of the host.
func SystemEndianess() binary.ByteOrder {
	return hostEndianess
}

func detectEndianess() binary.ByteOrder {
	var buf [2]byte
	*(*uint16)(unsafe.Pointer(&buf[0])) = 0x0102

	if buf[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}
