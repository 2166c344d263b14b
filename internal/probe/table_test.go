package probe

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhwbarlow/sockwho/internal/wire"
)

func TestCallTableCapacity(t *testing.T) {
	table := NewCallTable(4)

	for i := uint64(0); i < 4; i++ {
		require.NoError(t, table.Insert(i, wire.SockaddrEvent{Fd: uint32(i)}))
	}

	err := table.Insert(100, wire.SockaddrEvent{})
	assert.ErrorIs(t, err, CodeTableFull)
	assert.Equal(t, 4, table.Len())

	// Replacing an existing key does not need room
	require.NoError(t, table.Insert(2, wire.SockaddrEvent{Fd: 22}))
	event, ok := table.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, uint32(22), event.Fd)

	// Nothing was evicted to make room
	for i := uint64(0); i < 4; i++ {
		_, ok := table.Lookup(i)
		assert.True(t, ok, "entry %d", i)
	}

	assert.True(t, table.Delete(0))
	assert.False(t, table.Delete(0))
	require.NoError(t, table.Insert(100, wire.SockaddrEvent{}))
}

func TestCallTableConcurrentAccess(t *testing.T) {
	const workers, perWorker = 8, 500
	table := NewCallTable(workers * perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := PIDTGID(uint32(w), uint32(i))
				if err := table.Insert(key, wire.SockaddrEvent{Pid: uint32(w)}); err != nil {
					t.Errorf("insert %d/%d: %v", w, i, err)
					return
				}
				if _, ok := table.Lookup(key); !ok {
					t.Errorf("lookup %d/%d: missing", w, i)
				}
				if i%2 == 0 {
					table.Delete(key)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker/2, table.Len())
}

func TestCallTableNeverExceedsCapacity(t *testing.T) {
	const capacity = 100
	table := NewCallTable(capacity)

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := table.Insert(PIDTGID(uint32(w), uint32(i)), wire.SockaddrEvent{}); err == nil {
					mu.Lock()
					inserted++
					mu.Unlock()
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, capacity, inserted)
	assert.Equal(t, capacity, table.Len())
}

func TestEntrypoint(t *testing.T) {
	ok := Entrypoint(Probe[Context](func(Context) error { return nil }))
	assert.Equal(t, int32(0), ok(new(Invocation)))

	failed := Entrypoint(Probe[Context](func(Context) error { return CodeNoEntry }))
	assert.Equal(t, int32(CodeNoEntry), failed(new(Invocation)))

	other := Entrypoint(Probe[Context](func(Context) error { return errors.New("mock error") }))
	assert.Equal(t, int32(1), other(new(Invocation)))
}

func TestEntrypointWrapsHandlers(t *testing.T) {
	probes := New(NewCallTable(DefaultTableCapacity), new(mockOutput))

	exit := Entrypoint(Probe[Context](probes.Exit))
	assert.Equal(t, int32(CodeNoEntry), exit(exitInvocation(1, 0, "x")))

	enter := Entrypoint(probes.Enter(wire.SyscallBind))
	assert.Equal(t, int32(0), enter(enterInvocation(wire.SyscallBind, 1, -1, nil, "x")))
}
