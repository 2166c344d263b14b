package loader

import (
	"fmt"

	"go.uber.org/zap"
)

// Attacher attaches the programs of a loaded module to their tracepoints.
type Attacher struct {
	module      Module
	tracepoints []Tracepoint
	logger      *zap.SugaredLogger
}

func NewAttacher(module Module, tracepoints []Tracepoint, logger *zap.SugaredLogger) *Attacher {
	return &Attacher{
		module:      module,
		tracepoints: tracepoints,
		logger:      logger,
	}
}

// Attach attaches every expanded symbol, stopping at the first failure.
// Programs attached before the failure stay attached until the module is
// closed.
func (a *Attacher) Attach() error {
	for _, tracepoint := range a.tracepoints {
		for _, symbol := range tracepoint.Symbols() {
			program, err := a.module.GetProgram(symbol.Name)
			if err != nil {
				return fmt.Errorf("loading BPF program %q: %w", symbol.Name, err)
			}

			if err := program.AttachTracepoint(symbol.Tracepoint()); err != nil {
				return fmt.Errorf("attaching to tracepoint %q: %w", symbol.Tracepoint(), err)
			}

			a.logger.Debugw("Attached BPF program", "tracepoint", symbol.Tracepoint())
		}
	}

	return nil
}
