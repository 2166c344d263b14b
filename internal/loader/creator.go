package loader

import (
	"fmt"

	bpf "github.com/aquasecurity/libbpfgo"
	"github.com/cilium/ebpf/rlimit"
)

// ModuleCreator is an interface which describes objects which are "factories"
// for Modules.
type ModuleCreator interface {
	CreateModule(name string) (Module, error)
}

// LibBPFGoModuleCreator creates a Module using BPF object data provided by
// an ObjectLoader supplied during construction. It leans on the libbpfgo
// package to perform the "heavy lifting".
type LibBPFGoModuleCreator struct {
	objectLoader  ObjectLoader
	removeMemlock func() error
	newFromBuffer func(obj []byte, name string) (Module, error)
}

func NewLibBPFGoModuleCreator(objectLoader ObjectLoader) *LibBPFGoModuleCreator {
	return &LibBPFGoModuleCreator{
		objectLoader:  objectLoader,
		removeMemlock: rlimit.RemoveMemlock,
		newFromBuffer: newModuleFromBuffer,
	}
}

func newModuleFromBuffer(obj []byte, name string) (Module, error) {
	module, err := bpf.NewModuleFromBuffer(obj, name)
	if err != nil {
		return nil, err
	}

	return newLibBPFGoModule(module), nil
}

// CreateModule creates a new Module using the ObjectLoader supplied during
// construction to obtain the BPF object from which to create the Module.
// The name of the module as provided to the kernel is given in the name parameter.
// Kernels which account BPF memory against RLIMIT_MEMLOCK have the limit
// lifted first.
func (c *LibBPFGoModuleCreator) CreateModule(name string) (Module, error) {
	obj, err := c.objectLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading BPF object: %w", err)
	}

	if err := c.removeMemlock(); err != nil {
		return nil, fmt.Errorf("removing memlock rlimit: %w", err)
	}

	module, err := c.newFromBuffer(obj, name)
	if err != nil {
		return nil, fmt.Errorf("creating module from BPF object: %w", err)
	}

	return module, nil
}
