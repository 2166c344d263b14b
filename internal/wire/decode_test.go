package wire

import (
	"encoding/binary"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutSizes(t *testing.T) {
	assert.Equal(t, SockaddrEventSize, binary.Size(SockaddrEvent{}))
	assert.Equal(t, SocketStateEventSize, binary.Size(SocketStateEvent{}))
}

func TestDecodeSockaddrEvent(t *testing.T) {
	/*
		__u32 pid;
		__u32 fd;
		__u8 address[16];
		__u16 port;
		__u8 family;
		__u8 syscall;
		__s32 errno;
		char command[TASK_COMM_LEN];
	*/
	mockEventData := []byte{
		0xAB, 0xD8, 0x03, 0x00, // 252075 little endian
		0x03, 0x00, 0x00, 0x00, // 3 little endian
		0x7F, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // 127.0.0.1 zero-padded
		0x1F, 0x90, // 8080 network order
		0x00,                   // IPv4
		0x00,                   // bind
		0x00, 0x00, 0x00, 0x00, // 0 little endian
		0x6D, 0x79, 0x61, 0x70, 0x70, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // ASCII "myapp"
		0x00, 0x00, 0x00, 0x00, // perf raw sample padding
	}

	event, err := NewDecoder(binary.LittleEndian).DecodeSockaddrEvent(mockEventData)
	require.NoError(t, err)

	assert.Equal(t, uint32(252075), event.Pid)
	assert.Equal(t, uint32(3), event.Fd)
	assert.Equal(t, FamilyIPv4, event.Family)
	assert.Equal(t, SyscallBind, event.Syscall)
	assert.Equal(t, int32(0), event.Errno)
	assert.Equal(t, "myapp", CommandString(event.Command))
	assert.True(t, Address(event.Family, event.Address).Equal(net.ParseIP("127.0.0.1")))
	assert.Equal(t, uint16(0x901F), event.Port)
}

func TestDecodeSocketStateEvent(t *testing.T) {
	/*
		__u16 src_port;
		__u16 dst_port;
		__u8 family;
		__u8 _padding[3];
		__u32 old_state;
		__u32 new_state;
		__u32 pid;
		__u8 src_address[16];
		__u8 dst_address[16];
		char command[TASK_COMM_LEN];
	*/
	mockEventData := []byte{
		0x38, 0x15, // 5432 little endian
		0x7C, 0xD8, // 55420 little endian
		0x01,             // IPv6
		0x00, 0x00, 0x00, // Alignment padding
		0x02, 0x00, 0x00, 0x00, // SYN-SENT
		0x01, 0x00, 0x00, 0x00, // ESTABLISHED
		0x2A, 0x00, 0x00, 0x00, // 42 little endian
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, // ::1
		0x20, 0x01, 0x0D, 0xB8, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, // 2001:db8::2
		0x70, 0x6F, 0x73, 0x74, 0x67, 0x72, 0x65, 0x73, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // ASCII "postgres"
	}

	event, err := NewDecoder(binary.LittleEndian).DecodeSocketStateEvent(mockEventData)
	require.NoError(t, err)

	assert.Equal(t, uint16(5432), event.SrcPort)
	assert.Equal(t, uint16(55420), event.DstPort)
	assert.Equal(t, FamilyIPv6, event.Family)
	assert.Equal(t, uint32(2), event.OldState)
	assert.Equal(t, uint32(1), event.NewState)
	assert.Equal(t, uint32(42), event.Pid)
	assert.Equal(t, "::1", Address(event.Family, event.SrcAddress).String())
	assert.Equal(t, "2001:db8::2", Address(event.Family, event.DstAddress).String())
	assert.Equal(t, "postgres", CommandString(event.Command))
}

func TestDecodeShortRecordError(t *testing.T) {
	decoder := NewDecoder(binary.LittleEndian)

	_, err := decoder.DecodeSockaddrEvent([]byte{0x00})
	if !errors.Is(err, ErrShortRecord) {
		t.Errorf("expected error chain to include %q, got %v", ErrShortRecord, err)
	}

	_, err = decoder.DecodeSocketStateEvent(make([]byte, SocketStateEventSize-1))
	if !errors.Is(err, ErrShortRecord) {
		t.Errorf("expected error chain to include %q, got %v", ErrShortRecord, err)
	}
}

func TestEncodeMatchesDecode(t *testing.T) {
	decoder := NativeDecoder()
	original := &SocketStateEvent{
		SrcPort:    443,
		DstPort:    50000,
		Family:     FamilyIPv4,
		OldState:   10,
		NewState:   3,
		Pid:        7,
		SrcAddress: CanonicalIPv4([4]byte{10, 0, 0, 1}),
		DstAddress: CanonicalIPv4([4]byte{10, 0, 0, 2}),
		Command:    CommandFromString("nginx"),
	}

	data, err := decoder.Encode(original)
	require.NoError(t, err)
	require.Len(t, data, SocketStateEventSize)

	decoded, err := decoder.DecodeSocketStateEvent(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}
