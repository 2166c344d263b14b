package perf

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func openTestKernelRing(t *testing.T) *KernelRing {
	t.Helper()

	ring, err := OpenKernelRing(0, 1)
	if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) || errors.Is(err, unix.ENOENT) {
		t.Skipf("perf events unavailable: %v", err)
	}
	require.NoError(t, err)

	return ring
}

func TestOpenKernelRingPagesNotPowerOfTwo(t *testing.T) {
	_, err := OpenKernelRing(0, 3)
	if err == nil {
		t.Error("expected error, got nil")
	}

	t.Logf("got error %q (of type %T)", err, err)
}

func TestKernelRingCloseWakesReader(t *testing.T) {
	ring := openTestKernelRing(t)
	assert.Equal(t, 0, ring.CPU())
	assert.Greater(t, ring.FD(), 0)

	done := make(chan error, 1)
	go func() {
		_, err := ring.ReadEvents(scratch(4, 64))
		done <- err
	}()

	// Nothing writes to the ring, so the reader is parked in poll
	select {
	case err := <-done:
		t.Fatalf("expected reader to block, returned %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, ring.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("reader was not woken by close")
	}

	assert.NoError(t, ring.Close(), "second close")

	_, err := ring.ReadEvents(scratch(1, 64))
	assert.ErrorIs(t, err, ErrClosed)
}
