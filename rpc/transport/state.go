package transport

// State is the lifecycle state of a socket
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateListening
	StateClosing
	StateClosed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateListening:
		return "listening"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
