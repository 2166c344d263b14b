package probe

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/jhwbarlow/sockwho/internal/wire"
)

// DefaultTableCapacity matches max_entries of the in-flight map in the BPF C.
const DefaultTableCapacity = 1024

const tableBuckets = 64

// CallTable is a bounded store of syscall entries awaiting their exit, keyed
// by pid/tgid. Inserting past capacity fails; entries are never evicted, only
// deleted by the exit that completes them.
type CallTable struct {
	capacity int64
	size     atomic.Int64
	buckets  [tableBuckets]tableBucket
}

type tableBucket struct {
	mu      sync.Mutex
	entries map[uint64]wire.SockaddrEvent
}

func NewCallTable(capacity int) *CallTable {
	t := &CallTable{capacity: int64(capacity)}
	for i := range t.buckets {
		t.buckets[i].entries = make(map[uint64]wire.SockaddrEvent)
	}
	return t
}

func (t *CallTable) bucket(key uint64) *tableBucket {
	// pid/tgid values are dense in their low bits
	return &t.buckets[(key^key>>32)%tableBuckets]
}

// Insert stores the entry for key, replacing any previous one.
func (t *CallTable) Insert(key uint64, event wire.SockaddrEvent) error {
	b := t.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.entries[key]; !ok {
		if t.size.Inc() > t.capacity {
			t.size.Dec()
			return CodeTableFull
		}
	}
	b.entries[key] = event

	return nil
}

func (t *CallTable) Lookup(key uint64) (wire.SockaddrEvent, bool) {
	b := t.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	event, ok := b.entries[key]
	return event, ok
}

// Delete removes the entry for key and reports whether there was one.
func (t *CallTable) Delete(key uint64) bool {
	b := t.bucket(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.entries[key]; !ok {
		return false
	}
	delete(b.entries, key)
	t.size.Dec()

	return true
}

func (t *CallTable) Len() int {
	return int(t.size.Load())
}
