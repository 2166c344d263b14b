// Package loader loads the sockwho BPF object into the kernel and attaches its
// programs to their tracepoints.
package loader

import bpf "github.com/aquasecurity/libbpfgo"

// Module is an interface which describes objects which represent a BPF object
// containing one or more BPF programs which can be loaded into the kernel.
// Once loaded into the kernel, individual programs can be retrieved from the module
// and attached to BPF hooks within the kernel, and the perf event arrays the
// programs write to can be retrieved and populated.
type Module interface {
	LoadObject() error
	GetProgram(name string) (Program, error)
	GetMap(name string) (Map, error)
	Close()
}

// LibBPFGoModule is a wrapper around a libbpfgo Module, allowing it to
// return interfaces instead of concrete types to enable mocking.
type libBPFGoModule struct {
	module *bpf.Module
}

func newLibBPFGoModule(module *bpf.Module) *libBPFGoModule {
	return &libBPFGoModule{module}
}

// LoadObject loads the BPF object represented by this module into the kernel.
func (m *libBPFGoModule) LoadObject() error {
	return m.module.BPFLoadObject()
}

// GetProgram returns a Program representing an individual BPF program within
// the loaded module.
func (m *libBPFGoModule) GetProgram(name string) (Program, error) {
	program, err := m.module.GetProgram(name)
	if err != nil {
		return nil, err
	}

	return newLibBPFGoProgram(program), nil
}

// GetMap returns the named map within the loaded module.
func (m *libBPFGoModule) GetMap(name string) (Map, error) {
	bpfMap, err := m.module.GetMap(name)
	if err != nil {
		return nil, err
	}

	return newLibBPFGoMap(bpfMap), nil
}

// Close detaches and unloads all items in the kernel related to this module,
// including programs and maps.
func (m *libBPFGoModule) Close() {
	m.module.Close()
}
