package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Sizes of the records as laid out by the BPF C. Records read from a perf
// ring may carry trailing alignment padding beyond these sizes.
const (
	SockaddrEventSize    = 48
	SocketStateEventSize = 68
)

var ErrShortRecord = errors.New("record shorter than event layout")

// Decoder converts raw records into events, and events back into raw records.
type Decoder struct {
	endianess binary.ByteOrder
}

func NewDecoder(endianess binary.ByteOrder) *Decoder {
	return &Decoder{endianess}
}

// NativeDecoder returns a Decoder using the byte order of the host.
func NativeDecoder() *Decoder {
	return NewDecoder(SystemEndianess())
}

// DecodeSockaddrEvent creates an address event from the supplied record.
func (d *Decoder) DecodeSockaddrEvent(data []byte) (*SockaddrEvent, error) {
	if len(data) < SockaddrEventSize {
		return nil, fmt.Errorf("decoding %s record of %d bytes: %w", SockaddrEventsMap, len(data), ErrShortRecord)
	}

	event := new(SockaddrEvent)
	if err := binary.Read(bytes.NewReader(data), d.endianess, event); err != nil {
		return nil, fmt.Errorf("decoding event data: %w", err)
	}

	return event, nil
}

// DecodeSocketStateEvent creates a state transition event from the supplied record.
func (d *Decoder) DecodeSocketStateEvent(data []byte) (*SocketStateEvent, error) {
	if len(data) < SocketStateEventSize {
		return nil, fmt.Errorf("decoding %s record of %d bytes: %w", SocketStateEventsMap, len(data), ErrShortRecord)
	}

	event := new(SocketStateEvent)
	if err := binary.Read(bytes.NewReader(data), d.endianess, event); err != nil {
		return nil, fmt.Errorf("decoding event data: %w", err)
	}

	return event, nil
}

// Encode lays the event out as the kernel would.
func (d *Decoder) Encode(event Event) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, d.endianess, event); err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", QueueOf(event), err)
	}

	return buf.Bytes(), nil
}
