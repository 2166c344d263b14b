package processor

import "fmt"

// TCPState is a kernel TCP state as defined in kernel (net/tcp_states.h).
type TCPState uint32

const (
	TCPEstablished TCPState = iota + 1
	TCPSynSent
	TCPSynRecv
	TCPFinWait1
	TCPFinWait2
	TCPTimeWait
	TCPClose
	TCPCloseWait
	TCPLastAck
	TCPListen
	TCPClosing
	TCPNewSynRecv
)

var stateNames = [...]string{
	TCPEstablished: "Established",
	TCPSynSent:     "SynSent",
	TCPSynRecv:     "SynReceived",
	TCPFinWait1:    "FinWait1",
	TCPFinWait2:    "FinWait2",
	TCPTimeWait:    "TimeWait",
	TCPClose:       "Close",
	TCPCloseWait:   "CloseWait",
	TCPLastAck:     "LastAck",
	TCPListen:      "Listen",
	TCPClosing:     "Closing",
	TCPNewSynRecv:  "NewSynReceived",
}

func (s TCPState) String() string {
	if s < TCPEstablished || s > TCPNewSynRecv {
		return fmt.Sprintf("TCPState(%d)", uint32(s))
	}
	return stateNames[s]
}

// ParseTCPState converts a raw state reported by the kernel.
func ParseTCPState(kernelState uint32) (TCPState, error) {
	state := TCPState(kernelState)
	if state < TCPEstablished || state > TCPNewSynRecv {
		return 0, fmt.Errorf("illegal kernel TCP state: %d", kernelState)
	}
	return state, nil
}
