// Package perf reads fixed-size records handed to userspace by the kernel
// probes through per-CPU perf rings.
package perf

import "errors"

var ErrClosed = errors.New("ring closed")

// Events reports the outcome of one ReadEvents call.
type Events struct {
	// Read is the number of buffers filled with a record.
	Read int
	// Lost is the number of records the producer dropped since the last read
	// because the ring was full.
	Lost uint64
}

// Ring is one CPU's queue of records.
type Ring interface {
	// ReadEvents blocks until records or losses are available, then fills up
	// to len(bufs) buffers, in the order the records were produced. Each
	// buffer is truncated and reused; records longer than its capacity are
	// truncated to it.
	ReadEvents(bufs [][]byte) (Events, error)
	// Close unblocks a pending ReadEvents, which then returns ErrClosed.
	Close() error
}

func fill(buf []byte, record []byte) []byte {
	n := len(record)
	if n > cap(buf) {
		n = cap(buf)
	}
	buf = buf[:n]
	copy(buf, record)
	return buf
}
