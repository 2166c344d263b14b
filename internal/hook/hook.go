// Package hook maps the hook names accepted on the command line to the
// tracepoints the probes are attached to.
package hook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jhwbarlow/sockwho/internal/loader"
)

var ErrUnknownHook = errors.New("unknown hook")

type Hook string

const (
	Bind        Hook = "bind"
	Connect     Hook = "connect"
	RecvFrom    Hook = "recvfrom"
	SendTo      Hook = "sendto"
	SocketState Hook = "socket-state"
)

// Must match the tracepoint in the kernel and the program name in the BPF C
const socketStateTracepoint = "inet_sock_set_state"

// All is every hook, in attach order.
var All = []Hook{Bind, Connect, RecvFrom, SendTo, SocketState}

// Names returns the names of all hooks.
func Names() []string {
	names := make([]string, 0, len(All))
	for _, hook := range All {
		names = append(names, string(hook))
	}
	return names
}

// Parse resolves hook names. Names are case-insensitive and may repeat; the
// result holds each selected hook once, in the order of All. No names at all
// selects every hook.
func Parse(names []string) ([]Hook, error) {
	if len(names) == 0 {
		return All, nil
	}

	selected := make(map[Hook]bool, len(All))
	for _, name := range names {
		hook := Hook(strings.ToLower(strings.TrimSpace(name)))
		if !hook.valid() {
			return nil, fmt.Errorf("%w %q (expected one of %s)", ErrUnknownHook, name, strings.Join(Names(), ", "))
		}
		selected[hook] = true
	}

	hooks := make([]Hook, 0, len(selected))
	for _, hook := range All {
		if selected[hook] {
			hooks = append(hooks, hook)
		}
	}

	return hooks, nil
}

func (h Hook) valid() bool {
	for _, hook := range All {
		if h == hook {
			return true
		}
	}
	return false
}

// Tracepoint returns the logical tracepoint the hook attaches to.
func (h Hook) Tracepoint() loader.Tracepoint {
	if h == SocketState {
		return loader.Socket(socketStateTracepoint)
	}
	return loader.Syscall(string(h))
}

// Tracepoints returns the logical tracepoints of hooks.
func Tracepoints(hooks []Hook) []loader.Tracepoint {
	tracepoints := make([]loader.Tracepoint, 0, len(hooks))
	for _, hook := range hooks {
		tracepoints = append(tracepoints, hook.Tracepoint())
	}
	return tracepoints
}
