package perf

import (
	"github.com/jhwbarlow/sockwho/internal/wire"
)

// Record types of struct perf_event_header (linux/perf_event.h).
const (
	recordLost   = 2
	recordSample = 9
)

const (
	headerLen     = 8 // type u32, misc u16, size u16
	sampleSizeLen = 4 // PERF_SAMPLE_RAW size u32
)

// ringData is the data area of a perf ring. Positions grow monotonically and
// wrap modulo the power-of-two length of the area.
type ringData struct {
	data []byte
	mask uint64
}

func newRingData(data []byte) ringData {
	return ringData{data: data, mask: uint64(len(data) - 1)}
}

func (r ringData) copyAt(pos uint64, dst []byte) {
	n := copy(dst, r.data[pos&r.mask:])
	if n < len(dst) {
		copy(dst[n:], r.data)
	}
}

// readRecords walks the records between tail and head, copying samples into
// bufs until they are all used. It returns the position up to which records
// were consumed.
func (r ringData) readRecords(head, tail uint64, bufs [][]byte) (uint64, Events) {
	endianess := wire.SystemEndianess()

	var events Events
	var header [headerLen]byte
	for tail < head && events.Read < len(bufs) {
		r.copyAt(tail, header[:])
		recordType := endianess.Uint32(header[0:4])
		recordSize := uint64(endianess.Uint16(header[6:8]))
		if recordSize < headerLen {
			// Corrupted ring; skip to what the kernel has written.
			return head, events
		}

		switch recordType {
		case recordSample:
			var size [sampleSizeLen]byte
			r.copyAt(tail+headerLen, size[:])
			n := uint64(endianess.Uint32(size[:]))
			buf := bufs[events.Read]
			if n > uint64(cap(buf)) {
				n = uint64(cap(buf))
			}
			buf = buf[:n]
			r.copyAt(tail+headerLen+sampleSizeLen, buf)
			bufs[events.Read] = buf
			events.Read++
		case recordLost:
			var lost [8]byte
			r.copyAt(tail+headerLen+8, lost[:]) // skip id
			events.Lost += endianess.Uint64(lost[:])
		}

		tail += recordSize
	}

	return tail, events
}
