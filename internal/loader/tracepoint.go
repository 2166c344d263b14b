package loader

// Must match the tracepoint categories in the kernel
const (
	syscallsCategory = "syscalls"
	sockCategory     = "sock"
)

// Tracepoint is a logical attach point. A syscall tracepoint covers both the
// entry and the exit of the syscall.
type Tracepoint struct {
	category string
	name     string
}

// Syscall returns the logical tracepoint for the entry and exit of the named
// syscall.
func Syscall(name string) Tracepoint {
	return Tracepoint{category: syscallsCategory, name: name}
}

// Socket returns the logical tracepoint for the named sock tracepoint.
func Socket(name string) Tracepoint {
	return Tracepoint{category: sockCategory, name: name}
}

func (t Tracepoint) String() string {
	return t.category + ":" + t.name
}

// Symbol is a kernel tracepoint. The BPF program attached to it carries the
// same name.
type Symbol struct {
	Category string
	Name     string
}

// Tracepoint returns the symbol in the `category:name` form expected by the
// kernel.
func (s Symbol) Tracepoint() string {
	return s.Category + ":" + s.Name
}

// Symbols expands t into the kernel tracepoints it stands for.
func (t Tracepoint) Symbols() []Symbol {
	if t.category == syscallsCategory {
		return []Symbol{
			{Category: syscallsCategory, Name: "sys_enter_" + t.name},
			{Category: syscallsCategory, Name: "sys_exit_" + t.name},
		}
	}

	return []Symbol{{Category: t.category, Name: t.name}}
}
