package monitor

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// LostEventHandler is an interface which describes objects which handle
// lost events (events which the kernel could not write to a perf ring
// due to it being full).
type lostEventHandler interface {
	handle(queue string, cpu int, lostCount uint64) error
}

// LoggingLostEventHandler logs a warning for every loss and keeps a total.
type loggingLostEventHandler struct {
	logger *zap.SugaredLogger
	total  atomic.Uint64
}

func newLoggingLostEventHandler(logger *zap.SugaredLogger) *loggingLostEventHandler {
	return &loggingLostEventHandler{logger: logger}
}

// Handle handles lost events by logging a message.
func (h *loggingLostEventHandler) handle(queue string, cpu int, lostCount uint64) error {
	// There is nothing we can do about a lost event, except perhaps increase
	// the ring size or drain the ring more quickly, so just log it.
	h.total.Add(lostCount)
	h.logger.Warnw("Lost events",
		"queue", queue,
		"cpu", cpu,
		"count", lostCount)
	return nil
}
