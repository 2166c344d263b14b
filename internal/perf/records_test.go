package perf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhwbarlow/sockwho/internal/wire"
)

// ringWriter lays records out the way the kernel does, wrapping at the end
// of the data area.
type ringWriter struct {
	ring ringData
	head uint64
}

func (w *ringWriter) put(b []byte) {
	for _, c := range b {
		w.ring.data[w.head&w.ring.mask] = c
		w.head++
	}
}

func (w *ringWriter) sample(payload []byte) {
	endianess := wire.SystemEndianess()
	size := headerLen + sampleSizeLen + len(payload)
	padded := (size + 7) &^ 7

	header := make([]byte, headerLen+sampleSizeLen)
	endianess.PutUint32(header[0:], recordSample)
	endianess.PutUint16(header[6:], uint16(padded))
	endianess.PutUint32(header[8:], uint32(padded-headerLen-sampleSizeLen))
	w.put(header)
	w.put(payload)
	w.put(make([]byte, padded-size))
}

func (w *ringWriter) lost(count uint64) {
	endianess := wire.SystemEndianess()
	record := make([]byte, headerLen+16)
	endianess.PutUint32(record[0:], recordLost)
	endianess.PutUint16(record[6:], uint16(len(record)))
	endianess.PutUint64(record[headerLen:], 0xABCD) // id
	endianess.PutUint64(record[headerLen+8:], count)
	w.put(record)
}

func scratch(n, size int) [][]byte {
	bufs := make([][]byte, n)
	for i := range bufs {
		bufs[i] = make([]byte, 0, size)
	}
	return bufs
}

func TestReadRecordsSamplesAndLost(t *testing.T) {
	w := &ringWriter{ring: newRingData(make([]byte, 256))}
	w.sample([]byte("first"))
	w.lost(3)
	w.sample([]byte("second"))

	bufs := scratch(4, 16)
	tail, events := w.ring.readRecords(w.head, 0, bufs)

	assert.Equal(t, w.head, tail)
	assert.Equal(t, 2, events.Read)
	assert.Equal(t, uint64(3), events.Lost)
	assert.Equal(t, "first", string(bufs[0][:5]))
	assert.Equal(t, "second", string(bufs[1][:6]))
}

func TestReadRecordsWrapAround(t *testing.T) {
	w := &ringWriter{ring: newRingData(make([]byte, 64))}
	// Move the head close to the end of the area
	w.head = 48
	payload := []byte("wrapping-payload")
	w.sample(payload)

	bufs := scratch(1, 32)
	tail, events := w.ring.readRecords(w.head, 48, bufs)

	assert.Equal(t, w.head, tail)
	require.Equal(t, 1, events.Read)
	assert.Equal(t, payload, bufs[0][:len(payload)])
}

func TestReadRecordsStopsWhenBuffersExhausted(t *testing.T) {
	w := &ringWriter{ring: newRingData(make([]byte, 512))}
	for i := 0; i < 5; i++ {
		w.sample([]byte{byte(i)})
	}

	bufs := scratch(2, 8)
	tail, events := w.ring.readRecords(w.head, 0, bufs)
	assert.Equal(t, 2, events.Read)
	assert.Less(t, tail, w.head)
	assert.Equal(t, byte(0), bufs[0][0])
	assert.Equal(t, byte(1), bufs[1][0])

	tail, events = w.ring.readRecords(w.head, tail, bufs)
	assert.Equal(t, 2, events.Read)
	assert.Equal(t, byte(2), bufs[0][0])

	tail, events = w.ring.readRecords(w.head, tail, bufs)
	assert.Equal(t, 1, events.Read)
	assert.Equal(t, w.head, tail)
}

func TestReadRecordsTruncatesToBufferCapacity(t *testing.T) {
	w := &ringWriter{ring: newRingData(make([]byte, 128))}
	w.sample([]byte("0123456789"))

	bufs := scratch(1, 4)
	_, events := w.ring.readRecords(w.head, 0, bufs)
	require.Equal(t, 1, events.Read)
	assert.Equal(t, "0123", string(bufs[0]))
}
