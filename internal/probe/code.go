package probe

import (
	"errors"
	"strconv"
)

// Code is the small integer a failed probe invocation reports to the loader.
type Code int32

const (
	CodeReadFailed Code = iota + 1
	CodeUnknownFamily
	CodeNoEntry
	CodeTableFull
	CodeOutputFailed
)

func (c Code) Error() string {
	switch c {
	case CodeReadFailed:
		return "field read failed"
	case CodeUnknownFamily:
		return "unknown address family"
	case CodeNoEntry:
		return "no in-flight entry"
	case CodeTableFull:
		return "in-flight table full"
	case CodeOutputFailed:
		return "event output failed"
	default:
		return "probe error " + strconv.Itoa(int(c))
	}
}

// Probe is a handler run against one tracepoint invocation.
type Probe[C Context] func(ctx C) error

// Entrypoint adapts a probe to the status the loader expects: 0 on success
// and the probe's Code otherwise. Errors which are not a Code report 1.
func Entrypoint[C Context](probe Probe[C]) func(ctx C) int32 {
	return func(ctx C) int32 {
		err := probe(ctx)
		if err == nil {
			return 0
		}

		var code Code
		if errors.As(err, &code) {
			return int32(code)
		}

		return 1
	}
}
