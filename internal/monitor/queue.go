// Package monitor drains the per-CPU event rings and fans every decoded event
// into a single bounded dispatcher.
package monitor

import "github.com/jhwbarlow/sockwho/internal/wire"

// Queue describes one event queue: the name of its perf event array, the size
// of its records and how to decode them.
type Queue struct {
	Name       string
	RecordSize int
	Decode     func(data []byte) (wire.Event, error)
}

// Queues returns the registration table of every queue the probes write to.
func Queues(decoder *wire.Decoder) []Queue {
	return []Queue{
		{
			Name:       wire.SockaddrEventsMap,
			RecordSize: wire.SockaddrEventSize,
			Decode: func(data []byte) (wire.Event, error) {
				event, err := decoder.DecodeSockaddrEvent(data)
				if err != nil {
					return nil, err
				}
				return event, nil
			},
		},
		{
			Name:       wire.SocketStateEventsMap,
			RecordSize: wire.SocketStateEventSize,
			Decode: func(data []byte) (wire.Event, error) {
				event, err := decoder.DecodeSocketStateEvent(data)
				if err != nil {
					return nil, err
				}
				return event, nil
			},
		},
	}
}

// QueueNames returns the names of queues.
func QueueNames(queues []Queue) []string {
	names := make([]string, 0, len(queues))
	for _, queue := range queues {
		names = append(names, queue.Name)
	}
	return names
}
