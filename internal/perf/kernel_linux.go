package perf

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/jhwbarlow/sockwho/internal/wire"
)

// KernelRing is the perf ring of one CPU, written to by bpf_perf_event_output.
type KernelRing struct {
	cpu    int
	fd     int
	wakeFd int
	mmap   []byte
	meta   *unix.PerfEventMmapPage
	ring   ringData

	mu     sync.Mutex // held by ReadEvents; Close takes it to release the ring
	closed atomic.Bool
}

// OpenKernelRing opens a BPF output perf event on cpu backed by a ring of
// pages memory pages. pages must be a power of two.
func OpenKernelRing(cpu, pages int) (*KernelRing, error) {
	if pages <= 0 || pages&(pages-1) != 0 {
		return nil, fmt.Errorf("perf ring size of %d pages is not a power of two", pages)
	}

	attr := unix.PerfEventAttr{
		Type:        unix.PERF_TYPE_SOFTWARE,
		Config:      unix.PERF_COUNT_SW_BPF_OUTPUT,
		Sample_type: unix.PERF_SAMPLE_RAW,
		Wakeup:      1,
	}
	attr.Size = uint32(unsafe.Sizeof(attr))

	fd, err := unix.PerfEventOpen(&attr, -1, cpu, -1, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("opening perf event on CPU %d: %w", cpu, err)
	}

	pageSize := os.Getpagesize()
	mmap, err := unix.Mmap(fd, 0, pageSize*(pages+1), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mapping perf ring on CPU %d: %w", cpu, err)
	}

	wakeFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Munmap(mmap)
		unix.Close(fd)
		return nil, fmt.Errorf("creating wake-up eventfd: %w", err)
	}

	if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
		unix.Close(wakeFd)
		unix.Munmap(mmap)
		unix.Close(fd)
		return nil, fmt.Errorf("enabling perf event on CPU %d: %w", cpu, err)
	}

	return &KernelRing{
		cpu:    cpu,
		fd:     fd,
		wakeFd: wakeFd,
		mmap:   mmap,
		meta:   (*unix.PerfEventMmapPage)(unsafe.Pointer(&mmap[0])),
		ring:   newRingData(mmap[pageSize:]),
	}, nil
}

// FD returns the perf event file descriptor, to be stored in the BPF perf
// event array at index CPU.
func (r *KernelRing) FD() int {
	return r.fd
}

func (r *KernelRing) CPU() int {
	return r.cpu
}

func (r *KernelRing) ReadEvents(bufs [][]byte) (Events, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fds := []unix.PollFd{
		{Fd: int32(r.fd), Events: unix.POLLIN},
		{Fd: int32(r.wakeFd), Events: unix.POLLIN},
	}
	for {
		if r.closed.Load() {
			return Events{}, ErrClosed
		}

		head := atomic.LoadUint64(&r.meta.Data_head)
		tail := atomic.LoadUint64(&r.meta.Data_tail)
		if head != tail {
			consumed, events := r.ring.readRecords(head, tail, bufs)
			atomic.StoreUint64(&r.meta.Data_tail, consumed)
			if events.Read > 0 || events.Lost > 0 {
				return events, nil
			}
		}

		if _, err := unix.Poll(fds, -1); err != nil && !errors.Is(err, unix.EINTR) {
			return Events{}, fmt.Errorf("polling perf ring on CPU %d: %w", r.cpu, err)
		}
	}
}

// Close wakes a pending ReadEvents and releases the ring once it returned.
func (r *KernelRing) Close() error {
	if r.closed.Swap(true) {
		return nil
	}

	var one [8]byte
	wire.SystemEndianess().PutUint64(one[:], 1)
	_, err := unix.Write(r.wakeFd, one[:])

	r.mu.Lock()
	defer r.mu.Unlock()

	return multierr.Combine(
		err,
		unix.IoctlSetInt(r.fd, unix.PERF_EVENT_IOC_DISABLE, 0),
		unix.Munmap(r.mmap),
		unix.Close(r.fd),
		unix.Close(r.wakeFd),
	)
}
