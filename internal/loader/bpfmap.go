package loader

import bpf "github.com/aquasecurity/libbpfgo"

// Map is an interface which describes a BPF_MAP_TYPE_PERF_EVENT_ARRAY, indexed
// by CPU, whose values are the perf event file descriptors the programs
// output to.
type Map interface {
	SetPerfEventFD(cpu int, fd int) error
}

type libBPFGoMap struct {
	bpfMap *bpf.BPFMap
}

func newLibBPFGoMap(bpfMap *bpf.BPFMap) *libBPFGoMap {
	return &libBPFGoMap{bpfMap}
}

// SetPerfEventFD routes output on cpu to the perf event open on fd.
func (m *libBPFGoMap) SetPerfEventFD(cpu int, fd int) error {
	return m.bpfMap.Update(uint32(cpu), uint32(fd))
}
